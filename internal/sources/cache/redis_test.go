package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a running Redis; set TEST_REDIS_URL to run
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL not set, skipping redis store tests")
	}

	prefix := "agora-test:" + t.Name() + ":"
	store, err := NewRedisStore(context.Background(), redisURL, prefix)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", "0x01", &Entry{Value: []byte(`{"username":"alice"}`)}, time.Minute))
	require.NoError(t, store.Set(ctx, "b", "0x01", &Entry{NotFound: true}, time.Minute))
	require.NoError(t, store.Set(ctx, "c", "0x02", &Entry{Value: []byte(`true`)}, time.Minute))

	entry, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"alice"}`, string(entry.Value))

	many, err := store.GetMany(ctx, []string{"a", "b", "c", "d"})
	require.NoError(t, err)
	assert.Len(t, many, 3)
	assert.True(t, many["b"].NotFound)

	require.NoError(t, store.Purge(ctx, "0x01"))

	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = store.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)

	entry, err = store.Get(ctx, "c")
	require.NoError(t, err)
	assert.JSONEq(t, `true`, string(entry.Value))

	require.NoError(t, store.Purge(ctx, "0x02"))
}

func TestRedisStore_Expiry(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", "0x03", &Entry{NotFound: true}, 50*time.Millisecond))
	time.Sleep(150 * time.Millisecond)

	_, err := store.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
