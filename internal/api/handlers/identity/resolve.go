package identity

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"Agora/internal/core/identity"
)

const (
	// DefaultNetwork is used when a request names no network
	DefaultNetwork = "polkadot"

	// MaxDelegateAddresses bounds a single getDelegates request
	MaxDelegateAddresses = 100

	maxAddressLength = 128
	maxBodyBytes     = 64 << 10
)

// ResolveHandler serves identity resolution
type ResolveHandler struct {
	resolver identity.Resolver
}

// NewResolveHandler creates a new identity resolution handler
func NewResolveHandler(resolver identity.Resolver) *ResolveHandler {
	return &ResolveHandler{resolver: resolver}
}

// HandleResolve resolves the display identity of one address
// GET /xrpc/agora.identity.resolve?address=...&network=polkadot&username=...&web3Signup=true&createdAt=...&noFederated=true&delegate=true
func (h *ResolveHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	addr, network, opts, err := parseResolveQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}

	resolved, err := h.resolver.Resolve(r.Context(), addr, network, opts)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, resolved)
}

// getDelegatesRequest is the body of agora.identity.getDelegates
type getDelegatesRequest struct {
	Network   string   `json:"network"`
	Addresses []string `json:"addresses"`
}

// getDelegatesResponse maps every requested address to its delegate flag
type getDelegatesResponse struct {
	Delegates map[string]bool `json:"delegates"`
	Network   string          `json:"network"`
}

// HandleGetDelegates answers delegate membership for a batch of addresses
// POST /xrpc/agora.identity.getDelegates {"network": "polkadot", "addresses": [...]}
func (h *ResolveHandler) HandleGetDelegates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req getDelegatesRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		return
	}
	if len(req.Addresses) == 0 {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "addresses is required")
		return
	}
	if len(req.Addresses) > MaxDelegateAddresses {
		writeError(w, http.StatusBadRequest, "InvalidRequest",
			fmt.Sprintf("at most %d addresses per request", MaxDelegateAddresses))
		return
	}
	if strings.TrimSpace(req.Network) == "" {
		req.Network = DefaultNetwork
	}

	delegates, err := h.resolver.Delegates(r.Context(), req.Addresses, req.Network)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, getDelegatesResponse{Delegates: delegates, Network: req.Network})
}

func parseResolveQuery(r *http.Request) (string, string, identity.ResolveOptions, error) {
	q := r.URL.Query()
	var opts identity.ResolveOptions

	addr := strings.TrimSpace(q.Get("address"))
	if addr == "" {
		return "", "", opts, fmt.Errorf("address parameter is required")
	}
	if len(addr) > maxAddressLength {
		return "", "", opts, fmt.Errorf("address parameter exceeds maximum length")
	}

	network := strings.TrimSpace(q.Get("network"))
	if network == "" {
		network = DefaultNetwork
	}

	var err error
	if opts.DisableFederatedLookup, err = parseBool(q.Get("noFederated")); err != nil {
		return "", "", opts, fmt.Errorf("noFederated: %w", err)
	}
	if opts.IncludeDelegate, err = parseBool(q.Get("delegate")); err != nil {
		return "", "", opts, fmt.Errorf("delegate: %w", err)
	}

	username := strings.TrimSpace(q.Get("username"))
	if username == "" {
		return addr, network, opts, nil
	}

	candidate := &identity.UsernameCandidate{Username: username}
	if candidate.Web3Signup, err = parseBool(q.Get("web3Signup")); err != nil {
		return "", "", opts, fmt.Errorf("web3Signup: %w", err)
	}
	if candidate.AutoGenerated, err = parseBool(q.Get("autoGenerated")); err != nil {
		return "", "", opts, fmt.Errorf("autoGenerated: %w", err)
	}
	if raw := q.Get("createdAt"); raw != "" {
		createdAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return "", "", opts, fmt.Errorf("createdAt must be RFC3339")
		}
		candidate.CreatedAt = &createdAt
	}
	opts.ExplicitUsernameOverride = candidate

	return addr, network, opts, nil
}

func parseBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}
