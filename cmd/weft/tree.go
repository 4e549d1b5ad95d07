package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/weft-dev/weft/pkg/widget"
)

// treeJSON is the on-disk tree format the diff command reads:
//
//	{
//	  "tag": "ul",
//	  "props": {"class": "list"},
//	  "children": [
//	    {"tag": "li", "key": "a", "children": [{"text": "first"}]},
//	    {"composite": "Fragment", "children": [...]}
//	  ]
//	}
//
// A node is a text node when "text" is set, a composite when
// "composite" names its type, otherwise an element under "tag".
type treeJSON struct {
	Tag       string              `json:"tag,omitempty"`
	Composite string              `json:"composite,omitempty"`
	Text      *string             `json:"text,omitempty"`
	Key       any                 `json:"key,omitempty"`
	Props     map[string]any      `json:"props,omitempty"`
	Children  []*treeJSON         `json:"children,omitempty"`
	Callbacks map[string]string   `json:"callbacks,omitempty"` // event -> handler id
	Style     *treeStyleJSON      `json:"style,omitempty"`
	Init      *treeInitializerRef `json:"init,omitempty"`
}

type treeStyleJSON struct {
	Name string `json:"name"`
	Args []any  `json:"args,omitempty"`
}

type treeInitializerRef struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// loadTree reads and converts one tree file. "-" reads stdin.
func loadTree(path string) (*widget.Node, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var root treeJSON
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	node, err := root.toNode()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return node, nil
}

func (t *treeJSON) toNode() (*widget.Node, error) {
	var n *widget.Node
	switch {
	case t.Text != nil:
		n = widget.Text(*t.Text)
	case t.Composite != "":
		n = widget.Composite(t.Composite)
	case t.Tag != "":
		n = widget.El(t.Tag)
	default:
		return nil, fmt.Errorf("node needs one of tag, composite or text")
	}

	if t.Key != nil {
		key, err := widget.NewKey(normalizeKey(t.Key))
		if err != nil {
			return nil, err
		}
		n.Key = key
	}
	if len(t.Props) > 0 {
		n.Props = widget.Props(t.Props)
	}
	for ev, handlerID := range t.Callbacks {
		if n.Callbacks == nil {
			n.Callbacks = make(map[string]widget.Callback, len(t.Callbacks))
		}
		n.Callbacks[ev] = widget.Callback{ID: handlerID}
	}
	if t.Style != nil {
		n.Style = &widget.StyleRef{Name: t.Style.Name, Args: t.Style.Args}
	}
	if t.Init != nil {
		n.Init = &widget.Initializer{Type: t.Init.Type, Payload: t.Init.Payload}
	}

	for i, c := range t.Children {
		if c == nil {
			continue
		}
		child, err := c.toNode()
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

// normalizeKey folds JSON's float64 numbers to int64 where they are
// integral, so the key "1" in two files compares equal regardless of
// formatting.
func normalizeKey(v any) any {
	if f, ok := v.(float64); ok {
		if i := int64(f); float64(i) == f {
			return i
		}
	}
	return v
}
