package identity

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"Agora/internal/core/identity"
)

const (
	watchReadTimeout  = 60 * time.Second
	watchPingInterval = 30 * time.Second
	watchWriteTimeout = 10 * time.Second
	maxWatchFrame     = 4 << 10
)

// watchRequest is a client frame on the watch stream. A frame either names a
// new key to resolve or asks to refresh the current one.
type watchRequest struct {
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	Address       string     `json:"address"`
	Network       string     `json:"network"`
	Username      string     `json:"username,omitempty"`
	Web3Signup    bool       `json:"web3Signup,omitempty"`
	AutoGenerated bool       `json:"autoGenerated,omitempty"`
	NoFederated   bool       `json:"noFederated,omitempty"`
	Delegate      bool       `json:"delegate,omitempty"`
	Refresh       bool       `json:"refresh,omitempty"`
}

func (req watchRequest) options() identity.ResolveOptions {
	opts := identity.ResolveOptions{
		DisableFederatedLookup: req.NoFederated,
		IncludeDelegate:        req.Delegate,
	}
	if strings.TrimSpace(req.Username) != "" {
		opts.ExplicitUsernameOverride = &identity.UsernameCandidate{
			Username:      strings.TrimSpace(req.Username),
			CreatedAt:     req.CreatedAt,
			Web3Signup:    req.Web3Signup,
			AutoGenerated: req.AutoGenerated,
		}
	}
	return opts
}

// WatchHandler streams the identity shown by one client view.
// Each connection owns a Tracker, so the last request on a connection wins.
type WatchHandler struct {
	resolver identity.Resolver
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWatchHandler creates a websocket watch handler.
// checkOrigin may be nil to accept any origin.
func NewWatchHandler(resolver identity.Resolver, checkOrigin func(r *http.Request) bool, logger *slog.Logger) *WatchHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &WatchHandler{
		resolver: resolver,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

// HandleWatch upgrades to a websocket and pushes tracker snapshots
// GET /xrpc/agora.identity.watch
func (h *WatchHandler) HandleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.Debug("watch upgrade failed", "error", err)
		return
	}
	var closeOnce sync.Once
	closeConn := func() {
		closeOnce.Do(func() {
			if closeErr := conn.Close(); closeErr != nil {
				h.logger.Debug("failed to close watch connection", "error", closeErr)
			}
		})
	}
	defer closeConn()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	tracker := identity.NewTracker(h.resolver, h.logger)
	notices := make(chan ErrorResponse, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writeLoop(ctx, conn, tracker, notices)
		// Unblocks the reader when the writer gives up first
		cancel()
		closeConn()
	}()

	h.readLoop(ctx, conn, tracker, notices)
	cancel()
	wg.Wait()
}

func (h *WatchHandler) readLoop(ctx context.Context, conn *websocket.Conn, tracker *identity.Tracker, notices chan<- ErrorResponse) {
	conn.SetReadLimit(maxWatchFrame)
	if err := conn.SetReadDeadline(time.Now().Add(watchReadTimeout)); err != nil {
		h.logger.Debug("failed to set read deadline", "error", err)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(watchReadTimeout))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("watch read error", "error", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}

		var req watchRequest
		if err := json.Unmarshal(message, &req); err != nil {
			notify(notices, ErrorResponse{Error: "InvalidRequest", Message: "frame is not valid JSON"})
			continue
		}

		if req.Refresh {
			if _, ok := tracker.Refresh(ctx); !ok {
				notify(notices, ErrorResponse{Error: "InvalidRequest", Message: "nothing to refresh"})
			}
			continue
		}

		network := strings.TrimSpace(req.Network)
		if network == "" {
			network = DefaultNetwork
		}
		tracker.Request(ctx, strings.TrimSpace(req.Address), network, req.options())
	}
}

func (h *WatchHandler) writeLoop(ctx context.Context, conn *websocket.Conn, tracker *identity.Tracker, notices <-chan ErrorResponse) {
	ticker := time.NewTicker(watchPingInterval)
	defer ticker.Stop()

	for {
		var frame interface{}
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(watchWriteTimeout))
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(watchWriteTimeout)); err != nil {
				h.logger.Debug("failed to send ping", "error", err)
				return
			}
			continue
		case notice := <-notices:
			frame = notice
		case snap := <-tracker.Updates():
			frame = snap
		}

		if err := conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout)); err != nil {
			return
		}
		if err := conn.WriteJSON(frame); err != nil {
			h.logger.Debug("failed to write watch frame", "error", err)
			return
		}
	}
}

// notify drops the notice when one is already pending
func notify(notices chan<- ErrorResponse, notice ErrorResponse) {
	select {
	case notices <- notice:
	default:
	}
}
