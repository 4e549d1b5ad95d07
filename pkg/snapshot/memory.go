package snapshot

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps encoded snapshots in process memory. Suitable for
// tests and single-process setups that only need restart-free context
// swapping.
type MemoryStore struct {
	mu       sync.RWMutex
	payloads map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{payloads: make(map[string][]byte)}
}

// Save stores the encoded snapshot under its context key.
func (s *MemoryStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.payloads[snap.Context] = data
	s.mu.Unlock()
	return nil
}

// Load decodes the snapshot stored under contextKey.
func (s *MemoryStore) Load(ctx context.Context, contextKey string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.payloads[contextKey]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, contextKey)
	}
	return Decode(data)
}

// Delete removes the snapshot for contextKey. Deleting an absent key is
// not an error.
func (s *MemoryStore) Delete(ctx context.Context, contextKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.payloads, contextKey)
	s.mu.Unlock()
	return nil
}

// List returns the stored context keys sorted.
func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	keys := make([]string, 0, len(s.payloads))
	for k := range s.payloads {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
