package delegates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"Agora/internal/core/identity"
	"Agora/internal/sources/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/delegates/batch", r.URL.Path)
		var req batchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"alice", "bob", "carol"}, req.Addresses)
		_, _ = w.Write([]byte(`{"delegates": [
			{"address": "alice"},
			{"address": "bob", "active": false},
			{"address": ""}
		]}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, transport.Options{AllowPrivateIPs: true})
	require.NoError(t, err)

	result, err := client.FetchBatch(context.Background(), []string{"alice", "bob", "carol"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"alice": true, "bob": false}, result)
}

func TestFetchBatch_SplitsLargeRequests(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req batchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.LessOrEqual(t, len(req.Addresses), MaxBatchSize)

		resp := batchResponse{}
		for _, a := range req.Addresses {
			resp.Delegates = append(resp.Delegates, delegateEntry{Address: a})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, transport.Options{AllowPrivateIPs: true})
	require.NoError(t, err)

	addrs := make([]string, 250)
	for i := range addrs {
		addrs[i] = fmt.Sprintf("addr-%d", i)
	}

	result, err := client.FetchBatch(context.Background(), addrs)
	require.NoError(t, err)
	assert.Len(t, result, 250)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchBatch_Errors(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusNotFound)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, transport.Options{AllowPrivateIPs: true})
	require.NoError(t, err)

	result, err := client.FetchBatch(context.Background(), []string{"alice"})
	require.NoError(t, err)
	assert.Empty(t, result)

	status.Store(http.StatusBadGateway)
	_, err = client.FetchBatch(context.Background(), []string{"alice"})
	require.Error(t, err)
	assert.True(t, identity.IsTransport(err))
}
