// Package widget defines the declarative tree that callers hand to the
// reconciler: nodes with tags, props, keys, callbacks, style bindings
// and client-side initializers. The package is purely descriptive; all
// diffing lives in pkg/reconcile.
package widget

// Kind is the node type discriminator.
type Kind uint8

const (
	KindElement   Kind = iota // renders to a surface element
	KindText                  // escaped text content
	KindComposite             // groups children without an element of its own
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindComposite:
		return "Composite"
	default:
		return "Unknown"
	}
}

// Props holds the declarative attributes of a node. Values are compared
// structurally during reconciliation; only changed entries travel in
// UPDATE patches.
type Props map[string]any

// Clone returns a shallow copy of the prop map.
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Callback binds an event to a handler behind a stable identifier.
// The identifier, not the function value, is what the reconciler diffs
// and what the renderer dispatches on.
type Callback struct {
	ID string // stable handler identifier
	Fn any    // handler reference, opaque to the engine
}

// StyleRef names a style computation together with the arguments it
// should be invoked with. The engine never runs the computation; it
// only tracks which rendered nodes need which computation re-applied.
type StyleRef struct {
	Name string
	Fn   any
	Args []any
}

// Initializer describes client-side setup that must run once after a
// node first appears on the surface.
type Initializer struct {
	Type    string
	Payload map[string]any
}

// Node is one declarative node in a widget tree. Trees are throwaway
// values: the reconciler reads them and never retains or mutates them.
type Node struct {
	Kind      Kind
	Tag       string // element tag, or the composite's type name
	Key       Key    // zero means unkeyed
	Props     Props
	Children  []*Node
	Text      string              // for KindText
	Callbacks map[string]Callback // event name -> callback
	Style     *StyleRef
	Init      *Initializer
	Ref       any // component instance; may implement Updater or Disposer
}

// Renderable reports whether the node produces a surface element of its
// own. Composite children attach to the nearest renderable ancestor.
func (n *Node) Renderable() bool {
	return n != nil && n.Kind != KindComposite
}

// Updater is implemented by component refs that want to observe an
// applied prop change. It runs after the node's record is updated, with
// the props that were live before the pass.
type Updater interface {
	DidUpdate(prev Props)
}

// Disposer is implemented by component refs holding external resources.
// It runs when the node's record is purged from the context.
type Disposer interface {
	Dispose()
}
