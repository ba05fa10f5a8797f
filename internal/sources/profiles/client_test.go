package profiles

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Agora/internal/core/identity"
	"Agora/internal/sources/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, manual []string, status int, body string) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/profile", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("address"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, identity.NewUsernamePolicy(manual), transport.Options{AllowPrivateIPs: true})
	require.NoError(t, err)
	return client
}

func TestFetchByAddress_ChosenUsername(t *testing.T) {
	client := newTestClient(t, nil, http.StatusOK, `{
		"username": "alice",
		"createdAt": "2024-02-01T10:00:00Z",
		"image": "https://img.example.com/a.png",
		"web3Signup": true,
		"socialLinks": [
			{"type": "twitter", "value": "@alice"},
			{"type": "matrix", "value": "@alice:matrix.org"},
			{"type": "github", "value": "alice"},
			{"type": "web", "value": ""}
		]
	}`)

	profile, err := client.FetchByAddress(context.Background(), "addr")
	require.NoError(t, err)

	assert.Equal(t, "alice", profile.Username)
	assert.False(t, profile.IsAutoGeneratedUsername)
	assert.Equal(t, "https://img.example.com/a.png", profile.AvatarURL)
	require.NotNil(t, profile.CreatedAt)
	assert.True(t, profile.CreatedAt.Equal(time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, []identity.Social{
		{Type: identity.SocialTwitter, Handle: "@alice", Source: identity.SocialFromOffchain},
		{Type: identity.SocialRiot, Handle: "@alice:matrix.org", Source: identity.SocialFromOffchain},
	}, profile.SocialLinks)
}

func TestFetchByAddress_AutoGeneratedDetection(t *testing.T) {
	tests := []struct {
		name   string
		manual []string
		body   string
		want   bool
	}{
		{
			name: "legacy wallet sign-up",
			body: `{"username": "abcdefghijklmnopqrstuvwxy", "createdAt": "2023-01-01T00:00:00Z", "web3Signup": true}`,
			want: true,
		},
		{
			name: "wallet sign-up without createdAt",
			body: `{"username": "somebody", "web3Signup": true}`,
			want: true,
		},
		{
			name: "unparseable createdAt counts as missing",
			body: `{"username": "somebody", "createdAt": "yesterday", "web3Signup": true}`,
			want: true,
		},
		{
			name: "explicit flag",
			body: `{"username": "somebody", "createdAt": "2024-01-01T00:00:00Z", "isUsernameAutogenerated": true}`,
			want: true,
		},
		{
			name:   "manual allow-list",
			manual: []string{"abcdefghijklmnopqrstuvwxy"},
			body:   `{"username": "abcdefghijklmnopqrstuvwxy", "createdAt": "2023-01-01T00:00:00Z", "web3Signup": true}`,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.manual, http.StatusOK, tt.body)
			profile, err := client.FetchByAddress(context.Background(), "addr")
			require.NoError(t, err)
			assert.Equal(t, tt.want, profile.IsAutoGeneratedUsername)
		})
	}
}

func TestFetchByAddress_Errors(t *testing.T) {
	client := newTestClient(t, nil, http.StatusNotFound, "")
	_, err := client.FetchByAddress(context.Background(), "addr")
	assert.True(t, identity.IsNotFound(err))

	client = newTestClient(t, nil, http.StatusInternalServerError, "oops")
	_, err = client.FetchByAddress(context.Background(), "addr")
	assert.True(t, identity.IsTransport(err))
}
