package cache

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value, not_found FROM source_cache")).
		WithArgs("chain-registry:kusama:addr").
		WillReturnRows(sqlmock.NewRows([]string{"value", "not_found"}).AddRow([]byte(`{"displayName":"Alice"}`), false))

	entry, err := store.Get(context.Background(), "chain-registry:kusama:addr")
	require.NoError(t, err)
	assert.False(t, entry.NotFound)
	assert.JSONEq(t, `{"displayName":"Alice"}`, string(entry.Value))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMiss(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT value, not_found").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT value, not_found").
		WithArgs("key").
		WillReturnError(errors.New("connection reset"))

	_, err := store.Get(context.Background(), "key")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestPostgresStore_GetMany(t *testing.T) {
	store, mock := newMockStore(t)
	keys := []string{"delegate-registry:a", "delegate-registry:b", "delegate-registry:c"}

	mock.ExpectQuery(regexp.QuoteMeta("WHERE cache_key = ANY($1)")).
		WithArgs(pq.Array(keys)).
		WillReturnRows(sqlmock.NewRows([]string{"cache_key", "value", "not_found"}).
			AddRow("delegate-registry:a", []byte(`true`), false).
			AddRow("delegate-registry:c", nil, true))

	entries, err := store.GetMany(context.Background(), keys)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.JSONEq(t, `true`, string(entries["delegate-registry:a"].Value))
	assert.True(t, entries["delegate-registry:c"].NotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Set(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO source_cache")).
		WithArgs("key", "subject", []byte(`{"username":"alice"}`), false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO source_cache")).
		WithArgs("miss", "subject", nil, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Set(context.Background(), "key", "subject", &Entry{Value: []byte(`{"username":"alice"}`)}, time.Minute))
	require.NoError(t, store.Set(context.Background(), "miss", "subject", &Entry{NotFound: true}, time.Second))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Purge(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM source_cache WHERE subject = $1")).
		WithArgs("0xabc").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, store.Purge(context.Background(), "0xabc"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteExpired(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM source_cache WHERE expires_at <= NOW()")).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := store.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}
