package identity

import (
	"context"
	"log/slog"
	"sync"
)

// State is the lifecycle state of a tracked resolution
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateResolved   State = "resolved"
	StateSuperseded State = "superseded"
	// StateFailed means the request was rejected as invalid input
	StateFailed State = "failed"
)

// Key identifies what a tracker is currently showing
type Key struct {
	Address string `json:"address"`
	Network string `json:"network"`
}

// Snapshot is the state a tracker exposes to its view
type Snapshot struct {
	Err        error             `json:"-"`
	Identity   *ResolvedIdentity `json:"identity,omitempty"`
	Key        Key               `json:"key"`
	State      State             `json:"state"`
	Error      string            `json:"error,omitempty"`
	Generation uint64            `json:"generation"`
	// Superseded counts resolutions discarded because a newer request won.
	// A discard updates Current but is not published on its own.
	Superseded uint64 `json:"superseded"`
}

// Tracker owns the identity shown by one view and enforces last-request-wins.
//
// Every Request bumps a generation counter and tags its resolution with it.
// When a resolution finishes, its result is published only if its tag is still
// the current generation; otherwise it is discarded as superseded. Superseded
// resolutions are not cancelled, they run to completion and are dropped.
type Tracker struct {
	resolver Resolver
	logger   *slog.Logger

	mu      sync.Mutex
	current Snapshot
	opts    ResolveOptions
	done    chan struct{}
	updates chan Snapshot
}

// NewTracker creates an idle tracker
func NewTracker(resolver Resolver, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	done := make(chan struct{})
	close(done)
	return &Tracker{
		resolver: resolver,
		logger:   logger,
		current:  Snapshot{State: StateIdle},
		done:     done,
		updates:  make(chan Snapshot, 1),
	}
}

// Request starts resolving a new key, superseding any in-flight resolution.
// It returns the generation assigned to the request.
func (t *Tracker) Request(ctx context.Context, addr, network string, opts ResolveOptions) uint64 {
	t.mu.Lock()
	gen := t.current.Generation + 1
	key := Key{Address: addr, Network: network}
	done := make(chan struct{})

	if t.current.State == StateFetching {
		t.logger.Debug("identity resolution superseded",
			"superseded_generation", t.current.Generation,
			"address", t.current.Key.Address,
			"network", t.current.Key.Network,
			"new_generation", gen)
	}

	t.current = Snapshot{Key: key, State: StateFetching, Generation: gen, Superseded: t.current.Superseded}
	t.opts = opts
	t.done = done
	t.publishLocked()
	t.mu.Unlock()

	go t.run(ctx, gen, key, opts, done)
	return gen
}

// Refresh re-resolves the current key. It is a no-op on an idle tracker.
func (t *Tracker) Refresh(ctx context.Context) (uint64, bool) {
	t.mu.Lock()
	key, opts, state := t.current.Key, t.opts, t.current.State
	t.mu.Unlock()

	if state == StateIdle {
		return 0, false
	}
	return t.Request(ctx, key.Address, key.Network, opts), true
}

// Current returns the latest published snapshot
func (t *Tracker) Current() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Updates delivers published snapshots. The channel holds only the latest
// snapshot: a slow reader skips intermediate states, never the final one.
func (t *Tracker) Updates() <-chan Snapshot {
	return t.updates
}

// Wait blocks until the current generation settles or ctx is done.
// If a newer request arrives while waiting, Wait follows it.
func (t *Tracker) Wait(ctx context.Context) (Snapshot, error) {
	for {
		t.mu.Lock()
		snap, done := t.current, t.done
		t.mu.Unlock()

		if snap.State != StateFetching {
			return snap, nil
		}

		select {
		case <-done:
		case <-ctx.Done():
			return t.Current(), ctx.Err()
		}
	}
}

func (t *Tracker) run(ctx context.Context, gen uint64, key Key, opts ResolveOptions, done chan struct{}) {
	defer close(done)

	resolved, err := t.resolver.Resolve(ctx, key.Address, key.Network, opts)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current.Generation != gen {
		t.logger.Debug("discarding superseded identity resolution",
			"generation", gen,
			"current_generation", t.current.Generation,
			"address", key.Address,
			"network", key.Network,
			"state", StateSuperseded)
		t.current.Superseded++
		return
	}

	snap := Snapshot{Key: key, Generation: gen, State: StateResolved, Identity: resolved, Superseded: t.current.Superseded}
	if err != nil {
		snap.State = StateFailed
		snap.Identity = nil
		snap.Err = err
		snap.Error = err.Error()
	}
	t.current = snap
	t.publishLocked()
}

// publishLocked replaces any unread snapshot with the current one
func (t *Tracker) publishLocked() {
	select {
	case <-t.updates:
	default:
	}
	t.updates <- t.current
}
