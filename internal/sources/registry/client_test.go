package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"Agora/internal/core/identity"
	"Agora/internal/sources/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, responses map[string]string) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/identity", r.URL.Path)
		assert.Equal(t, "polkadot", r.URL.Query().Get("network"))
		body, ok := responses[r.URL.Query().Get("address")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if body == "500" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, transport.Options{AllowPrivateIPs: true})
	require.NoError(t, err)
	return client
}

func TestFetchIdentity_FullRecord(t *testing.T) {
	client := newTestClient(t, map[string]string{
		"alice": `{
			"address": "alice",
			"info": {"display": " Alice ", "legal": "Alice A.", "email": "alice@example.com",
			         "matrix": "@alice:matrix.org", "twitter": "@alice", "web": "https://alice.example.com"},
			"nickname": "ally",
			"judgements": [{"registrar": 0, "judgement": "KnownGood"}, {"registrar": 1, "judgement": "FeePaid"}]
		}`,
	})

	record, err := client.FetchIdentity(context.Background(), "alice", "polkadot")
	require.NoError(t, err)

	assert.Equal(t, "Alice", record.DisplayName)
	assert.Equal(t, "Alice A.", record.LegalName)
	assert.Equal(t, "alice@example.com", record.Email)
	assert.Equal(t, "@alice:matrix.org", record.RiotOrMatrixHandle)
	assert.Equal(t, "@alice", record.TwitterHandle)
	assert.Equal(t, "https://alice.example.com", record.WebURL)
	assert.Equal(t, "ally", record.Nickname)
	assert.Equal(t, []identity.Judgement{identity.JudgementKnownGood, identity.JudgementFeePaid}, record.Judgements)
	assert.Nil(t, record.Parent)
}

func TestFetchIdentity_SubIdentityFetchesParentTitle(t *testing.T) {
	client := newTestClient(t, map[string]string{
		"child":  `{"address": "child", "super": {"address": "parent", "subName": "Treasury"}}`,
		"parent": `{"address": "parent", "info": {"display": "Web3 Foundation"}}`,
	})

	record, err := client.FetchIdentity(context.Background(), "child", "polkadot")
	require.NoError(t, err)

	assert.Equal(t, "Treasury", record.DisplayName)
	require.NotNil(t, record.Parent)
	assert.Equal(t, "parent", record.Parent.ParentAddress)
	assert.Equal(t, "Web3 Foundation", record.Parent.ParentTitle)
}

func TestFetchIdentity_ParentFailureKeepsChild(t *testing.T) {
	client := newTestClient(t, map[string]string{
		"child":  `{"address": "child", "info": {"display": "Ops"}, "super": {"address": "parent"}}`,
		"parent": "500",
	})

	record, err := client.FetchIdentity(context.Background(), "child", "polkadot")
	require.NoError(t, err)
	assert.Equal(t, "Ops", record.DisplayName)
	require.NotNil(t, record.Parent)
	assert.Empty(t, record.Parent.ParentTitle)
}

func TestFetchIdentity_Errors(t *testing.T) {
	client := newTestClient(t, map[string]string{
		"empty":     `{}`,
		"null":      `null`,
		"malformed": `{"address": "malformed", "judgements": "KnownGood"}`,
		"down":      "500",
	})

	tests := []struct {
		addr          string
		wantNotFound  bool
		wantTransport bool
	}{
		{addr: "missing", wantNotFound: true},
		{addr: "empty", wantNotFound: true},
		{addr: "null", wantNotFound: true},
		{addr: "malformed", wantTransport: true},
		{addr: "down", wantTransport: true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			_, err := client.FetchIdentity(context.Background(), tt.addr, "polkadot")
			require.Error(t, err)
			assert.Equal(t, tt.wantNotFound, identity.IsNotFound(err))
			assert.Equal(t, tt.wantTransport, identity.IsTransport(err))
		})
	}
}

func TestMapJudgement(t *testing.T) {
	assert.Equal(t, identity.JudgementUnverified, MapJudgement("Unknown"))
	assert.Equal(t, identity.JudgementUnverified, MapJudgement("OutOfDate"))
	assert.Equal(t, identity.JudgementFeePaid, MapJudgement("FeePaid"))
	assert.Equal(t, identity.JudgementReasonable, MapJudgement("reasonable"))
	assert.Equal(t, identity.JudgementKnownGood, MapJudgement("KnownGood"))
	assert.Equal(t, identity.JudgementErroneous, MapJudgement("Erroneous"))
	assert.Equal(t, identity.JudgementLowQuality, MapJudgement("LowQuality"))
}
