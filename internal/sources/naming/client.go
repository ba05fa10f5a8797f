package naming

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/bluesky-social/indigo/atproto/syntax"

	"Agora/internal/core/identity"
	"Agora/internal/sources/transport"
)

// nameResponse is the gateway's answer for an account's federated name
type nameResponse struct {
	Name     string            `json:"name"`
	DID      string            `json:"did"`
	Services []serviceResponse `json:"services"`
}

type serviceResponse struct {
	Type     string `json:"type"`
	URL      string `json:"url"`
	Verified bool   `json:"verified"`
}

// Client implements identity.FederatedNameClient against a DID name gateway
type Client struct {
	http   *transport.Client
	logger *slog.Logger
}

// NewClient creates a federated name client
func NewClient(baseURL string, opts transport.Options) (*Client, error) {
	c, err := transport.New(identity.SourceFederatedName, baseURL, opts)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{http: c, logger: logger}, nil
}

// FetchName resolves the federated name claimed by addr.
// A response without a name is a miss. A malformed DID or service entry is
// dropped, the name itself is still returned.
func (c *Client) FetchName(ctx context.Context, addr, network string) (*identity.FederatedName, error) {
	var resp nameResponse
	query := url.Values{"address": {addr}, "network": {network}}
	if err := c.http.GetJSON(ctx, "names", query, addr, &resp); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(resp.Name)
	if name == "" {
		return nil, &identity.NotFoundError{Source: identity.SourceFederatedName, Address: addr}
	}

	result := &identity.FederatedName{Name: name}

	if resp.DID != "" {
		did, err := syntax.ParseDID(strings.TrimSpace(resp.DID))
		if err != nil {
			c.logger.Warn("federated name has invalid DID",
				"address", addr, "network", network, "did", resp.DID, "error", err)
		} else {
			result.DID = did.String()
		}
	}

	for _, svc := range resp.Services {
		u, err := url.Parse(strings.TrimSpace(svc.URL))
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			c.logger.Debug("dropping malformed service endpoint",
				"address", addr, "type", svc.Type, "url", svc.URL)
			continue
		}
		result.Endpoints = append(result.Endpoints, identity.ServiceEndpoint{
			Type:     strings.TrimSpace(svc.Type),
			URL:      u.String(),
			Verified: svc.Verified,
		})
	}

	return result, nil
}
