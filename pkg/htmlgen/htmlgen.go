// Package htmlgen renders records to HTML: single-element stubs for
// INSERT and REPLACE patches, and whole subtrees for snapshots and
// inspection. The reconciler stays markup-agnostic; this package is
// plugged in through its Markup option.
package htmlgen

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/microcosm-cc/bluemonday"

	"github.com/weft-dev/weft/pkg/reconcile"
	"github.com/weft-dev/weft/pkg/widget"
)

// PropUnsafeHTML is the prop carrying raw inner HTML. Its value is run
// through the sanitizer policy unless AllowRawHTML is set, and it takes
// precedence over rendered children.
const PropUnsafeHTML = "unsafe_html"

// Config configures a Generator.
type Config struct {
	// Pretty enables indented subtree output. Stubs are never pretty.
	Pretty bool

	// Indent is the indentation unit in pretty mode. Defaults to two
	// spaces.
	Indent string

	// AllowRawHTML writes unsafe_html props through verbatim. Only for
	// trees built entirely from trusted input.
	AllowRawHTML bool

	// Policy sanitizes unsafe_html props. Defaults to
	// bluemonday.UGCPolicy.
	Policy *bluemonday.Policy
}

// Generator renders records to HTML. Safe for concurrent use; it keeps
// no per-render state.
type Generator struct {
	config Config
	policy *bluemonday.Policy
}

// New creates a Generator.
func New(config Config) *Generator {
	if config.Indent == "" {
		config.Indent = "  "
	}
	policy := config.Policy
	if policy == nil {
		policy = bluemonday.UGCPolicy()
	}
	return &Generator{config: config, policy: policy}
}

// MarkupFunc adapts the generator to the reconciler's markup option.
func (g *Generator) MarkupFunc() reconcile.MarkupFunc {
	return g.Stub
}

// Stub renders the one-element markup an INSERT or REPLACE patch
// carries: the element with its id and attributes, inner raw HTML if
// any, and no children. Children arrive as their own patches. Text
// records render as escaped text; the applying surface addresses them
// by the patch's target id, not by markup.
func (g *Generator) Stub(rec *reconcile.Record) (string, error) {
	var buf bytes.Buffer
	switch rec.Kind {
	case widget.KindText:
		buf.WriteString(escapeText(rec.Text))
	case widget.KindElement:
		if err := g.openTag(&buf, rec); err != nil {
			return "", err
		}
		if isVoidElement(rec.Tag) {
			return buf.String(), nil
		}
		if raw, ok := rec.Props[PropUnsafeHTML].(string); ok {
			buf.WriteString(g.sanitize(raw))
		}
		fmt.Fprintf(&buf, "</%s>", rec.Tag)
	default:
		return "", fmt.Errorf("htmlgen: no markup for %s records", rec.Kind)
	}
	return buf.String(), nil
}

func (g *Generator) sanitize(raw string) string {
	if g.config.AllowRawHTML {
		return raw
	}
	return g.policy.Sanitize(raw)
}

// openTag writes the opening tag: element id first, then props in
// sorted order, then event markers.
func (g *Generator) openTag(w io.Writer, rec *reconcile.Record) error {
	if _, err := fmt.Fprintf(w, `<%s id="%s"`, rec.Tag, escapeAttr(rec.ID)); err != nil {
		return err
	}
	if err := writeAttrs(w, rec); err != nil {
		return err
	}
	_, err := io.WriteString(w, ">")
	return err
}

func writeAttrs(w io.Writer, rec *reconcile.Record) error {
	keys := make([]string, 0, len(rec.Props))
	for key := range rec.Props {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := rec.Props[key]
		switch key {
		case "id", PropUnsafeHTML:
			// The record id owns the id attribute; raw HTML is inner
			// content, not an attribute.
			continue
		case "className":
			key = "class"
		case "htmlFor":
			key = "for"
		}
		if isBooleanAttr(key) {
			if on, ok := value.(bool); ok {
				if on {
					if _, err := fmt.Fprintf(w, " %s", key); err != nil {
						return err
					}
				}
				continue
			}
		}
		str := attrToString(value)
		if str == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, ` %s="%s"`, key, escapeAttr(str)); err != nil {
			return err
		}
	}

	if rec.Style != nil {
		if _, err := fmt.Fprintf(w, ` data-style="%s"`, escapeAttr(rec.Style.Name)); err != nil {
			return err
		}
	}

	// Event markers carry the stable handler id so the surface can wire
	// its dispatch without parsing anything else.
	events := make([]string, 0, len(rec.Callbacks))
	for ev := range rec.Callbacks {
		events = append(events, ev)
	}
	sort.Strings(events)
	for _, ev := range events {
		if _, err := fmt.Fprintf(w, ` data-on-%s="%s"`, ev, escapeAttr(rec.Callbacks[ev].ID)); err != nil {
			return err
		}
	}
	return nil
}

// attrToString converts a prop value to its attribute text.
func attrToString(value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
