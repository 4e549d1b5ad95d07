package reconcile

import "errors"

// Engine errors. Any error from Diff means no patches were produced
// and the previous map is untouched; there is no partially applied
// state to clean up.
var (
	// ErrNilPrevious is returned when the previous map is nil. Use an
	// empty map for a first mount.
	ErrNilPrevious = errors.New("reconcile: previous map is nil")

	// ErrSubtreeNotFound is returned for a partial pass whose subtree
	// root identity is not in the previous map.
	ErrSubtreeNotFound = errors.New("reconcile: subtree root not found in previous map")

	// ErrSubtreeMismatch is returned for a partial pass whose new root
	// carries a key different from the named subtree root.
	ErrSubtreeMismatch = errors.New("reconcile: new root key does not match subtree root")

	// ErrCompositeSubtree is returned for a partial pass rooted at a
	// composite. Composites own no surface element, so a partial pass
	// cannot re-anchor their children without the enclosing level.
	ErrCompositeSubtree = errors.New("reconcile: partial pass requires a renderable subtree root")
)
