package htmlgen

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/weft-dev/weft/pkg/reconcile"
	"github.com/weft-dev/weft/pkg/widget"
)

// ErrRootNotFound is returned when the subtree root identity is not in
// the record map.
var ErrRootNotFound = errors.New("htmlgen: subtree root not found")

// Subtree streams the full markup of a record and everything under it.
// Snapshot inspection and the CLI use this; live updates never do, they
// ship patches.
func (g *Generator) Subtree(w io.Writer, m reconcile.RecordMap, root reconcile.Identity) error {
	rec, ok := m[root]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRootNotFound, root)
	}
	return g.renderRecord(w, m, rec, 0)
}

// SubtreeString is Subtree into a string.
func (g *Generator) SubtreeString(m reconcile.RecordMap, root reconcile.Identity) (string, error) {
	var buf bytes.Buffer
	if err := g.Subtree(&buf, m, root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (g *Generator) renderRecord(w io.Writer, m reconcile.RecordMap, rec *reconcile.Record, depth int) error {
	switch rec.Kind {
	case widget.KindText:
		_, err := io.WriteString(w, escapeText(rec.Text))
		return err
	case widget.KindComposite:
		// Composites contribute no element of their own.
		return g.renderChildren(w, m, rec, depth)
	case widget.KindElement:
		return g.renderElement(w, m, rec, depth)
	default:
		return fmt.Errorf("htmlgen: no markup for %s records", rec.Kind)
	}
}

func (g *Generator) renderElement(w io.Writer, m reconcile.RecordMap, rec *reconcile.Record, depth int) error {
	pretty := g.config.Pretty && !isInlineElement(rec.Tag)
	if pretty && depth > 0 {
		if err := g.writeIndent(w, depth); err != nil {
			return err
		}
	}
	if err := g.openTag(w, rec); err != nil {
		return err
	}
	if isVoidElement(rec.Tag) {
		if pretty {
			io.WriteString(w, "\n")
		}
		return nil
	}

	if raw, ok := rec.Props[PropUnsafeHTML].(string); ok {
		if _, err := io.WriteString(w, g.sanitize(raw)); err != nil {
			return err
		}
	} else {
		block := pretty && len(rec.Children) > 0
		if block {
			io.WriteString(w, "\n")
		}
		if err := g.renderChildren(w, m, rec, depth+1); err != nil {
			return err
		}
		if block {
			if err := g.writeIndent(w, depth); err != nil {
				return err
			}
		}
	}

	if _, err := fmt.Fprintf(w, "</%s>", rec.Tag); err != nil {
		return err
	}
	if pretty {
		io.WriteString(w, "\n")
	}
	return nil
}

func (g *Generator) renderChildren(w io.Writer, m reconcile.RecordMap, rec *reconcile.Record, depth int) error {
	for _, cid := range rec.Children {
		child, ok := m[cid]
		if !ok {
			continue
		}
		if err := g.renderRecord(w, m, child, depth); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) writeIndent(w io.Writer, depth int) error {
	for i := 0; i < depth; i++ {
		if _, err := io.WriteString(w, g.config.Indent); err != nil {
			return err
		}
	}
	return nil
}
