package profiles

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"Agora/internal/core/identity"
	"Agora/internal/sources/transport"
)

// profileResponse is the profile service's JSON for one user
type profileResponse struct {
	AutoGenerated *bool        `json:"isUsernameAutogenerated"` // absent before the cutover
	CreatedAt     string       `json:"createdAt"`
	Username      string       `json:"username"`
	Bio           string       `json:"bio"`
	Image         string       `json:"image"`
	SocialLinks   []socialLink `json:"socialLinks"`
	Web3Signup    bool         `json:"web3Signup"`
}

type socialLink struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Client implements identity.OffchainProfileClient.
// The auto-generated username flag is decided here, once, by the policy.
type Client struct {
	http   *transport.Client
	policy *identity.UsernamePolicy
	logger *slog.Logger
}

// NewClient creates an off-chain profile client
func NewClient(baseURL string, policy *identity.UsernamePolicy, opts transport.Options) (*Client, error) {
	c, err := transport.New(identity.SourceProfile, baseURL, opts)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		policy = identity.NewUsernamePolicy(nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{http: c, policy: policy, logger: logger}, nil
}

// FetchByAddress fetches the profile linked to addr
func (c *Client) FetchByAddress(ctx context.Context, addr string) (*identity.OffchainProfile, error) {
	var resp profileResponse
	if err := c.http.GetJSON(ctx, "profile", url.Values{"address": {addr}}, addr, &resp); err != nil {
		return nil, err
	}

	profile := &identity.OffchainProfile{
		Username:   strings.TrimSpace(resp.Username),
		Bio:        resp.Bio,
		AvatarURL:  strings.TrimSpace(resp.Image),
		Web3Signup: resp.Web3Signup,
	}

	if resp.CreatedAt != "" {
		createdAt, err := time.Parse(time.RFC3339, resp.CreatedAt)
		if err == nil {
			profile.CreatedAt = &createdAt
		} else {
			c.logger.Warn("failed to parse profile createdAt",
				"address", addr, "createdAt", resp.CreatedAt, "error", err)
		}
	}

	for _, link := range resp.SocialLinks {
		kind, ok := socialType(link.Type)
		handle := strings.TrimSpace(link.Value)
		if !ok || handle == "" {
			continue
		}
		profile.SocialLinks = append(profile.SocialLinks, identity.Social{
			Type:   kind,
			Handle: handle,
			Source: identity.SocialFromOffchain,
		})
	}

	profile.IsAutoGeneratedUsername = c.policy.IsAutoGenerated(identity.UsernameCandidate{
		Username:      profile.Username,
		CreatedAt:     profile.CreatedAt,
		Web3Signup:    profile.Web3Signup,
		AutoGenerated: resp.AutoGenerated != nil && *resp.AutoGenerated,
	})

	return profile, nil
}

// socialType maps the profile service's link kinds onto the on-chain social types
func socialType(kind string) (identity.SocialType, bool) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "email":
		return identity.SocialEmail, true
	case "riot", "matrix", "element":
		return identity.SocialRiot, true
	case "twitter", "x":
		return identity.SocialTwitter, true
	case "web", "website":
		return identity.SocialWeb, true
	default:
		return "", false
	}
}
