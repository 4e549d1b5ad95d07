package reconcile

import "github.com/weft-dev/weft/pkg/widget"

// Record is the engine's bookkeeping for one rendered node: what was
// last applied to the surface under which element id. The set of
// records for a context is the previous map the next pass diffs
// against. Records are never mutated after a pass completes; every
// reconcile builds replacements.
type Record struct {
	// ID is the node's surface element id ("h17"). Stable for the
	// record's whole lifetime; only insertion and replacement mint ids.
	ID string `json:"html_id"`

	// ParentID is the element id of the nearest renderable ancestor,
	// or the mount point for the root.
	ParentID string `json:"parent_html_id"`

	Identity Identity    `json:"identity"`
	Parent   Identity    `json:"parent"`
	Kind     widget.Kind `json:"kind"`
	Tag      string      `json:"tag"`

	Props widget.Props `json:"props,omitempty"`
	Text  string       `json:"text,omitempty"`

	// Children holds the identities of the node's children in order.
	Children []Identity `json:"children,omitempty"`

	Style     *widget.StyleRef           `json:"-"`
	Callbacks map[string]widget.Callback `json:"-"`

	// Initialized marks that the node's client-side initializer was
	// queued when the element mounted.
	Initialized bool `json:"initialized,omitempty"`

	Ref any `json:"-"`
}

// Renderable reports whether the record owns a surface element.
func (r *Record) Renderable() bool {
	return r != nil && r.Kind != widget.KindComposite
}

// RecordMap is one context's previous map: every live identity to its
// record.
type RecordMap map[Identity]*Record

// Root locates the logical root: the parentless record anchored at the
// mount point. When the mount moved between passes, the single
// parentless record still wins, so an old context can re-anchor.
func (m RecordMap) Root(mountID string) (Identity, bool) {
	var fallback Identity
	var fallbackCount int
	for ident, rec := range m {
		if !rec.Parent.IsZero() {
			continue
		}
		if rec.ParentID == mountID {
			return ident, true
		}
		fallback = ident
		fallbackCount++
	}
	if fallbackCount == 1 {
		return fallback, true
	}
	return Identity{}, false
}

// Subtree collects the records reachable from root, root included.
func (m RecordMap) Subtree(root Identity) RecordMap {
	out := make(RecordMap)
	m.walk(root, func(rec *Record) {
		out[rec.Identity] = rec
	})
	return out
}

func (m RecordMap) walk(ident Identity, fn func(*Record)) {
	rec, ok := m[ident]
	if !ok {
		return
	}
	fn(rec)
	for _, child := range rec.Children {
		m.walk(child, fn)
	}
}

// Clone returns a copy safe to hand out of the store: fresh map, fresh
// record values, cloned props and child lists. Component refs and
// style/callback functions are shared; they are opaque to the engine.
func (m RecordMap) Clone() RecordMap {
	if m == nil {
		return nil
	}
	out := make(RecordMap, len(m))
	for ident, rec := range m {
		cp := *rec
		cp.Props = rec.Props.Clone()
		if rec.Children != nil {
			cp.Children = make([]Identity, len(rec.Children))
			copy(cp.Children, rec.Children)
		}
		if rec.Callbacks != nil {
			cp.Callbacks = make(map[string]widget.Callback, len(rec.Callbacks))
			for ev, cb := range rec.Callbacks {
				cp.Callbacks[ev] = cb
			}
		}
		out[ident] = &cp
	}
	return out
}
