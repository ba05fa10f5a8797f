// Package cache stores source lookups and wraps the identity source clients
// with read-through caching.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Store.Get when a key is absent or expired
var ErrCacheMiss = errors.New("cache miss")

// Entry is one cached lookup: either a JSON record or a negative result
type Entry struct {
	Value    json.RawMessage `json:"v,omitempty"`
	NotFound bool            `json:"nf,omitempty"`
}

// Store is a key-value store with per-entry TTL.
// Every entry is tagged with a subject (the canonical account) so all of an
// account's entries can be purged at once.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	// GetMany returns the entries present; absent keys are omitted
	GetMany(ctx context.Context, keys []string) (map[string]*Entry, error)
	Set(ctx context.Context, key, subject string, entry *Entry, ttl time.Duration) error
	// Purge removes every entry tagged with subject
	Purge(ctx context.Context, subject string) error
}

// NoopStore caches nothing
type NoopStore struct{}

func (NoopStore) Get(context.Context, string) (*Entry, error) { return nil, ErrCacheMiss }

func (NoopStore) GetMany(context.Context, []string) (map[string]*Entry, error) {
	return map[string]*Entry{}, nil
}

func (NoopStore) Set(context.Context, string, string, *Entry, time.Duration) error { return nil }

func (NoopStore) Purge(context.Context, string) error { return nil }
