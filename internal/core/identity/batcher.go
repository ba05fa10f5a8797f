package identity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// batcher collects lookups over a short window and runs them as one batch.
// Overlapping key sets from concurrent callers are merged and deduplicated:
// requests for [a,b] and [b,c] inside one window become a single fetch of [a,b,c].
type batcher[V any] struct {
	batchFn  func(ctx context.Context, keys []string) (map[string]V, error)
	logger   *slog.Logger
	name     string
	window   time.Duration
	maxBatch int

	mu       sync.Mutex
	pending  map[string][]*batchWaiter[V]
	timer    *time.Timer
	timerSet bool
}

// batchWaiter represents a caller waiting for results
type batchWaiter[V any] struct {
	result chan batchResult[V]
	keys   []string
}

type batchResult[V any] struct {
	values map[string]V
	err    error
}

func newBatcher[V any](
	name string,
	batchFn func(ctx context.Context, keys []string) (map[string]V, error),
	window time.Duration,
	maxBatch int,
	logger *slog.Logger,
) *batcher[V] {
	if logger == nil {
		logger = slog.Default()
	}
	return &batcher[V]{
		name:     name,
		batchFn:  batchFn,
		window:   window,
		maxBatch: maxBatch,
		logger:   logger,
		pending:  make(map[string][]*batchWaiter[V]),
	}
}

// getMultiple fetches values for keys, batching with other concurrent callers.
// The returned map only contains keys the batch function answered.
func (b *batcher[V]) getMultiple(ctx context.Context, keys []string) (map[string]V, error) {
	if len(keys) == 0 {
		return map[string]V{}, nil
	}

	waiter := &batchWaiter[V]{
		keys:   keys,
		result: make(chan batchResult[V], 1),
	}

	b.mu.Lock()
	for _, key := range keys {
		b.pending[key] = append(b.pending[key], waiter)
	}

	if !b.timerSet {
		b.timerSet = true
		b.timer = time.AfterFunc(b.window, b.executeBatch)
	}

	if b.maxBatch > 0 && len(b.pending) >= b.maxBatch {
		b.timer.Stop()
		b.mu.Unlock()
		go b.executeBatch()
	} else {
		b.mu.Unlock()
	}

	select {
	case res := <-waiter.result:
		return res.values, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// executeBatch runs the batch function and distributes results to waiters
func (b *batcher[V]) executeBatch() {
	b.mu.Lock()

	keys := make([]string, 0, len(b.pending))
	for key := range b.pending {
		keys = append(keys, key)
	}

	waiterSet := make(map[*batchWaiter[V]]bool)
	for _, waiters := range b.pending {
		for _, w := range waiters {
			waiterSet[w] = true
		}
	}

	b.pending = make(map[string][]*batchWaiter[V])
	b.timerSet = false

	b.mu.Unlock()

	if len(keys) == 0 {
		return
	}

	b.logger.Debug("batcher: executing batch",
		"name", b.name,
		"keys", len(keys),
		"waiters", len(waiterSet))

	// Not bound to any single caller: one caller leaving must not fail the others.
	// The source client's own timeout bounds the call.
	results, err := b.batchFn(context.Background(), keys)

	for waiter := range waiterSet {
		if err != nil {
			waiter.result <- batchResult[V]{err: err}
			continue
		}
		values := make(map[string]V, len(waiter.keys))
		for _, key := range waiter.keys {
			if val, ok := results[key]; ok {
				values[key] = val
			}
		}
		waiter.result <- batchResult[V]{values: values}
	}
}
