package delegates

import (
	"context"
	"fmt"
	"strings"

	"Agora/internal/core/identity"
	"Agora/internal/sources/transport"
)

// MaxBatchSize is the most addresses the registry accepts in one request
const MaxBatchSize = 100

type batchRequest struct {
	Addresses []string `json:"addresses"`
}

type batchResponse struct {
	Delegates []delegateEntry `json:"delegates"`
}

type delegateEntry struct {
	Address string `json:"address"`
	Active  *bool  `json:"active,omitempty"`
}

// Client implements identity.DelegateRegistryClient
type Client struct {
	http *transport.Client
}

// NewClient creates a delegate registry client
func NewClient(baseURL string, opts transport.Options) (*Client, error) {
	c, err := transport.New(identity.SourceDelegates, baseURL, opts)
	if err != nil {
		return nil, err
	}
	return &Client{http: c}, nil
}

// FetchBatch reports which of addrs are registered delegates.
// Requests larger than MaxBatchSize are split. A 404 means the registry knows
// none of them, which is an empty answer rather than an error.
func (c *Client) FetchBatch(ctx context.Context, addrs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(addrs))

	for start := 0; start < len(addrs); start += MaxBatchSize {
		end := start + MaxBatchSize
		if end > len(addrs) {
			end = len(addrs)
		}
		chunk := addrs[start:end]

		var resp batchResponse
		err := c.http.PostJSON(ctx, "delegates/batch", batchRequest{Addresses: chunk}, strings.Join(chunk, ","), &resp)
		if identity.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("delegate batch %d-%d: %w", start, end, err)
		}

		for _, d := range resp.Delegates {
			addr := strings.TrimSpace(d.Address)
			if addr == "" {
				continue
			}
			out[addr] = d.Active == nil || *d.Active
		}
	}

	return out, nil
}
