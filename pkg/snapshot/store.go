package snapshot

import "context"

// Store persists encoded snapshots keyed by context key. Save
// overwrites any existing snapshot for the same key. Load returns
// ErrNotFound when the key has never been saved or has been deleted.
type Store interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context, contextKey string) (*Snapshot, error)
	Delete(ctx context.Context, contextKey string) error

	// List returns the stored context keys in lexical order.
	List(ctx context.Context) ([]string, error)

	// Close releases resources the store owns. Stores wrapping a
	// caller-owned handle leave it open.
	Close() error
}
