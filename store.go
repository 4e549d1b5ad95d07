package weft

import (
	"sort"
	"sync"

	"github.com/weft-dev/weft/pkg/reconcile"
)

// DefaultContext is the context key a fresh store starts with.
const DefaultContext = "main"

// contextStore holds one record map per context key. Each context
// carries its own mutex: reconciles and clears on the same context are
// mutually exclusive, independent contexts never contend.
type contextStore struct {
	mu       sync.RWMutex
	contexts map[string]*contextEntry
}

type contextEntry struct {
	mu      sync.Mutex
	records reconcile.RecordMap
}

func newContextStore() *contextStore {
	return &contextStore{
		contexts: map[string]*contextEntry{
			DefaultContext: {records: reconcile.RecordMap{}},
		},
	}
}

// entry returns the context, creating it empty on first use.
func (s *contextStore) entry(key string) *contextEntry {
	s.mu.RLock()
	e := s.contexts[key]
	s.mu.RUnlock()
	if e != nil {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e = s.contexts[key]; e == nil {
		e = &contextEntry{records: reconcile.RecordMap{}}
		s.contexts[key] = e
	}
	return e
}

// lookup returns the context without creating it.
func (s *contextStore) lookup(key string) (*contextEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.contexts[key]
	return e, ok
}

// remove drops one context. It waits for any in-flight reconcile on
// that context before unhooking it, so a cleared context can never
// swallow a concurrent pass's swap. Reports whether the key existed.
func (s *contextStore) remove(key string) bool {
	s.mu.Lock()
	e, ok := s.contexts[key]
	if ok {
		delete(s.contexts, key)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	e.records = nil
	e.mu.Unlock()
	return true
}

// removeAll drops every context and re-seeds the default one.
func (s *contextStore) removeAll() {
	s.mu.Lock()
	old := s.contexts
	s.contexts = map[string]*contextEntry{
		DefaultContext: {records: reconcile.RecordMap{}},
	}
	s.mu.Unlock()

	for _, e := range old {
		e.mu.Lock()
		e.records = nil
		e.mu.Unlock()
	}
}

// keys returns the live context keys in lexical order.
func (s *contextStore) keys() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.contexts))
	for k := range s.contexts {
		out = append(out, k)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}
