package widget

import "fmt"

// Attr sets a single prop when passed to El or Composite.
type Attr struct {
	Key   string
	Value any
}

// P creates an Attr.
func P(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

type eventArg struct {
	event string
	cb    Callback
}

// On binds an event handler for use as an El argument. The handlerID
// must be stable across renders; it is the identity the reconciler and
// renderer agree on.
func On(event, handlerID string, fn any) any {
	return eventArg{event: event, cb: Callback{ID: handlerID, Fn: fn}}
}

// Styled attaches a style computation for use as an El argument.
func Styled(name string, fn any, args ...any) *StyleRef {
	return &StyleRef{Name: name, Fn: fn, Args: args}
}

type refArg struct {
	v any
}

// Ref attaches a component reference for use as an El argument. The
// engine invokes lifecycle hooks on references implementing Updater or
// Disposer.
func Ref(v any) any {
	return refArg{v: v}
}

// InitWith attaches a client-side initializer for use as an El argument.
func InitWith(initType string, payload map[string]any) *Initializer {
	return &Initializer{Type: initType, Payload: payload}
}

// El creates an element node. Arguments are applied by type: Key, Attr,
// Props (merged), On bindings, *StyleRef, *Initializer, child nodes,
// child slices, and strings (which become text children). Nil children
// are skipped, so callers can express conditionals inline.
func El(tag string, args ...any) *Node {
	n := &Node{Kind: KindElement, Tag: tag}
	apply(n, args)
	return n
}

// Composite creates a non-renderable grouping node. Its children attach
// to the nearest renderable ancestor on the surface.
func Composite(name string, args ...any) *Node {
	n := &Node{Kind: KindComposite, Tag: name}
	apply(n, args)
	return n
}

// Text creates a text node.
func Text(content string) *Node {
	return &Node{Kind: KindText, Tag: "text", Text: content}
}

// Textf creates a formatted text node.
func Textf(format string, args ...any) *Node {
	return Text(fmt.Sprintf(format, args...))
}

// If returns the node if condition is true, nil otherwise.
func If(condition bool, node *Node) *Node {
	if condition {
		return node
	}
	return nil
}

func apply(n *Node, args []any) {
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			continue
		case Key:
			n.Key = v
		case Attr:
			if n.Props == nil {
				n.Props = make(Props)
			}
			n.Props[v.Key] = v.Value
		case Props:
			if n.Props == nil {
				n.Props = make(Props, len(v))
			}
			for k, val := range v {
				n.Props[k] = val
			}
		case eventArg:
			if n.Callbacks == nil {
				n.Callbacks = make(map[string]Callback)
			}
			n.Callbacks[v.event] = v.cb
		case refArg:
			n.Ref = v.v
		case *StyleRef:
			n.Style = v
		case *Initializer:
			n.Init = v
		case *Node:
			if v != nil {
				n.Children = append(n.Children, v)
			}
		case []*Node:
			for _, c := range v {
				if c != nil {
					n.Children = append(n.Children, c)
				}
			}
		case string:
			n.Children = append(n.Children, Text(v))
		default:
			panic(fmt.Sprintf("widget: unsupported El argument type %T", arg))
		}
	}
}
