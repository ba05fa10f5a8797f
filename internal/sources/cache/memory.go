package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type memoryItem struct {
	entry     *Entry
	subject   string
	expiresAt time.Time
}

// MemoryStore is a process-local LRU store.
// The LRU evicts by maxTTL; shorter per-entry TTLs are checked on read.
type MemoryStore struct {
	lru *expirable.LRU[string, memoryItem]
}

// NewMemoryStore creates an in-memory store holding at most size entries
func NewMemoryStore(size int, maxTTL time.Duration) *MemoryStore {
	if size <= 0 {
		size = 10_000
	}
	return &MemoryStore{lru: expirable.NewLRU[string, memoryItem](size, nil, maxTTL)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	item, ok := s.lru.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	if time.Now().After(item.expiresAt) {
		s.lru.Remove(key)
		return nil, ErrCacheMiss
	}
	return item.entry, nil
}

func (s *MemoryStore) GetMany(ctx context.Context, keys []string) (map[string]*Entry, error) {
	out := make(map[string]*Entry, len(keys))
	for _, key := range keys {
		if entry, err := s.Get(ctx, key); err == nil {
			out[key] = entry
		}
	}
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, key, subject string, entry *Entry, ttl time.Duration) error {
	s.lru.Add(key, memoryItem{entry: entry, subject: subject, expiresAt: time.Now().Add(ttl)})
	return nil
}

func (s *MemoryStore) Purge(_ context.Context, subject string) error {
	for _, key := range s.lru.Keys() {
		if item, ok := s.lru.Peek(key); ok && item.subject == subject {
			s.lru.Remove(key)
		}
	}
	return nil
}

// Len returns the number of entries, including expired ones not yet evicted
func (s *MemoryStore) Len() int {
	return s.lru.Len()
}
