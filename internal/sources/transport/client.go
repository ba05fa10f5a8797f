package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"Agora/internal/core/identity"
)

const (
	// DefaultTimeout bounds every source call; the engine adds no timeout of its own
	DefaultTimeout = 5 * time.Second

	userAgent    = "AgoraBot/1.0"
	maxErrorBody = 1024
	maxBody      = 4 << 20
)

// Options configures a source client
type Options struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	// RequestsPerSecond caps outbound calls to one endpoint; zero disables the limit
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	AllowPrivateIPs   bool
}

// Client is a JSON-over-HTTP client for one source endpoint.
// It classifies every outcome into the identity error taxonomy:
// 404 is NotFoundError, anything else that is not a 2xx is TransportError.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	baseURL *url.URL
	source  identity.Source
}

// New creates a client for the given source and base URL
func New(source identity.Source, baseURL string, opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid %s base URL: %w", source, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid %s base URL %q: scheme must be http or https", source, baseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(opts.Timeout, opts.AllowPrivateIPs)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = int(opts.RequestsPerSecond) + 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Client{
		http:    httpClient,
		limiter: limiter,
		logger:  logger,
		baseURL: base,
		source:  source,
	}, nil
}

// Source returns the source this client talks to
func (c *Client) Source() identity.Source {
	return c.source
}

// GetJSON fetches path with query parameters and decodes the body into out.
// subject is the address the call is about, used only for error reporting.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, subject string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return c.do(req, subject, out)
}

// PostJSON sends body as JSON to path and decodes the response into out
func (c *Client) PostJSON(ctx context.Context, path string, body any, subject string, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, subject, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := *c.baseURL
	u.Path = u.Path + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, subject string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return c.transportError(subject, "rate limit wait", err)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(subject, "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("source request",
		"source", c.source,
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode == http.StatusNotFound {
		return &identity.NotFoundError{Source: c.source, Address: subject}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Limit error body to 1KB to prevent unbounded reads
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &identity.TransportError{
			Source:  c.source,
			Address: subject,
			Reason:  fmt.Sprintf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return c.transportError(subject, "failed to decode response", err)
	}
	return nil
}

func (c *Client) transportError(subject, reason string, err error) error {
	if errors.Is(err, context.Canceled) {
		reason = "cancelled"
	} else if errors.Is(err, context.DeadlineExceeded) {
		reason = "timed out"
	}
	return &identity.TransportError{
		Source:  c.source,
		Address: subject,
		Reason:  fmt.Sprintf("%s: %v", reason, err),
		Err:     err,
	}
}
