package reconcile

import (
	"io"
	"log/slog"
	"testing"

	"github.com/weft-dev/weft/pkg/widget"
)

// surface is a minimal element tree that applies patch scripts the way
// a renderer would. Every parent and anchor a patch names must exist at
// the moment the patch applies, so driving a surface through a script
// and comparing the outcome against the result's records proves the
// script is valid step by step, not just in aggregate.
type surface struct {
	t    *testing.T
	root *surfaceNode
	byID map[string]*surfaceNode
}

type surfaceNode struct {
	id       string
	parent   *surfaceNode
	children []*surfaceNode
	props    widget.Props
	text     string
}

func newSurface(t *testing.T, mountID string) *surface {
	root := &surfaceNode{id: mountID}
	return &surface{t: t, root: root, byID: map[string]*surfaceNode{mountID: root}}
}

func (s *surface) apply(patches []Patch) {
	s.t.Helper()
	for i, p := range patches {
		switch p.Action {
		case ActionInsert:
			if s.byID[p.TargetID] != nil {
				s.t.Fatalf("patch %d: INSERT reuses live id %s", i, p.TargetID)
			}
			parent := s.node(i, p.ParentID, "parent")
			n := &surfaceNode{id: p.TargetID, props: p.Props.Clone()}
			if p.Text != nil {
				n.text = *p.Text
			}
			s.byID[n.id] = n
			s.insertBefore(i, parent, n, p.BeforeID)
		case ActionRemove:
			n := s.node(i, p.TargetID, "target")
			s.detach(n)
			s.forget(n)
		case ActionUpdate:
			n := s.node(i, p.TargetID, "target")
			for k, v := range p.Props {
				if n.props == nil {
					n.props = make(widget.Props)
				}
				n.props[k] = v
			}
			for _, k := range p.Removed {
				delete(n.props, k)
			}
			if p.Text != nil {
				n.text = *p.Text
			}
		case ActionMove:
			n := s.node(i, p.TargetID, "target")
			parent := s.node(i, p.ParentID, "parent")
			s.detach(n)
			s.insertBefore(i, parent, n, p.BeforeID)
		case ActionReplace:
			old := s.node(i, p.TargetID, "target")
			if old.parent == nil {
				s.t.Fatalf("patch %d: REPLACE target %s has no parent", i, p.TargetID)
			}
			repl := &surfaceNode{id: p.NewID, parent: old.parent, props: p.Props.Clone()}
			if p.Text != nil {
				repl.text = *p.Text
			}
			old.parent.children[s.childIndex(i, old)] = repl
			s.forget(old)
			s.byID[repl.id] = repl
		default:
			s.t.Fatalf("patch %d: unknown action 0x%02x", i, uint8(p.Action))
		}
	}
}

func (s *surface) node(i int, id, role string) *surfaceNode {
	s.t.Helper()
	if id == "" {
		s.t.Fatalf("patch %d: empty %s id", i, role)
	}
	n := s.byID[id]
	if n == nil {
		s.t.Fatalf("patch %d: %s %s does not exist on the surface", i, role, id)
	}
	return n
}

func (s *surface) insertBefore(i int, parent, n *surfaceNode, beforeID string) {
	s.t.Helper()
	n.parent = parent
	if beforeID == "" {
		parent.children = append(parent.children, n)
		return
	}
	anchor := s.byID[beforeID]
	if anchor == nil {
		s.t.Fatalf("patch %d: anchor %s does not exist on the surface", i, beforeID)
	}
	if anchor.parent != parent {
		s.t.Fatalf("patch %d: anchor %s is not a child of %s", i, beforeID, parent.id)
	}
	at := s.childIndex(i, anchor)
	parent.children = append(parent.children, nil)
	copy(parent.children[at+1:], parent.children[at:])
	parent.children[at] = n
}

func (s *surface) childIndex(i int, n *surfaceNode) int {
	s.t.Helper()
	for idx, c := range n.parent.children {
		if c == n {
			return idx
		}
	}
	s.t.Fatalf("patch %d: %s not found under its parent %s", i, n.id, n.parent.id)
	return -1
}

func (s *surface) detach(n *surfaceNode) {
	if n.parent == nil {
		return
	}
	kids := n.parent.children
	for idx, c := range kids {
		if c == n {
			n.parent.children = append(kids[:idx], kids[idx+1:]...)
			break
		}
	}
	n.parent = nil
}

func (s *surface) forget(n *surfaceNode) {
	delete(s.byID, n.id)
	for _, c := range n.children {
		s.forget(c)
	}
}

// check verifies the surface matches the record map exactly: same
// element order level by level, same props, same text. Records only
// reachable from the root are expected on the surface; a stale record
// a partial pass deliberately left alone is not.
func (s *surface) check(m RecordMap) {
	s.t.Helper()
	reachable := make(map[string]*Record)
	var want []string
	if ident, ok := m.Root(s.root.id); ok {
		if rec := m[ident]; rec != nil {
			m.walk(ident, func(r *Record) {
				if r.Renderable() {
					reachable[r.ID] = r
				}
			})
			want = elementSpan(m, rec)
		}
	}
	s.checkLevel(s.root, want, reachable, m)
	if got := len(s.byID) - 1; got != len(reachable) {
		s.t.Fatalf("Expected %d live elements on the surface, got %d", len(reachable), got)
	}
}

func (s *surface) checkLevel(sn *surfaceNode, want []string, reachable map[string]*Record, m RecordMap) {
	s.t.Helper()
	got := make([]string, len(sn.children))
	for i, c := range sn.children {
		got[i] = c.id
	}
	if !equalStrings(got, want) {
		s.t.Fatalf("children of %s: expected %v, got %v", sn.id, want, got)
	}
	for _, c := range sn.children {
		rec := reachable[c.id]
		if rec == nil {
			s.t.Fatalf("surface element %s has no record", c.id)
		}
		if !propsMatch(rec.Props, c.props) {
			s.t.Fatalf("props of %s: expected %v, got %v", c.id, rec.Props, c.props)
		}
		if rec.Kind == widget.KindText && c.text != rec.Text {
			s.t.Fatalf("text of %s: expected %q, got %q", c.id, rec.Text, c.text)
		}
		s.checkLevel(c, childSpan(m, rec), reachable, m)
	}
}

// elementSpan resolves the surface elements a record contributes: the
// record's own element, or for a composite the flattened elements of
// its children.
func elementSpan(m RecordMap, rec *Record) []string {
	if rec.Renderable() {
		return []string{rec.ID}
	}
	return childSpan(m, rec)
}

func childSpan(m RecordMap, rec *Record) []string {
	var out []string
	for _, cid := range rec.Children {
		if c, ok := m[cid]; ok {
			out = append(out, elementSpan(m, c)...)
		}
	}
	return out
}

func propsMatch(want, got widget.Props) bool {
	if len(want) != len(got) {
		return false
	}
	for k, v := range want {
		gv, ok := got[k]
		if !ok || !valueEqual(v, gv) {
			return false
		}
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// fixture drives full and partial passes against one mount, applying
// every script to a surface and checking it against the records, so
// each test gets the round-trip property verified for free.
type fixture struct {
	t       *testing.T
	mount   string
	ids     *IDGenerator
	surface *surface
	prev    RecordMap
}

func newFixture(t *testing.T) *fixture {
	return &fixture{
		t:       t,
		mount:   "app",
		ids:     NewIDGenerator(),
		surface: newSurface(t, "app"),
		prev:    RecordMap{},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (f *fixture) options() Options {
	return Options{IDs: f.ids, Logger: quietLogger()}
}

func (f *fixture) pass(root *widget.Node) *Result {
	f.t.Helper()
	res, err := Diff(f.prev, root, f.mount, f.options())
	if err != nil {
		f.t.Fatalf("Diff failed: %v", err)
	}
	f.surface.apply(res.Patches)
	f.surface.check(res.Records)
	f.prev = res.Records
	return res
}

func (f *fixture) partial(subtree Identity, root *widget.Node) *Result {
	f.t.Helper()
	opts := f.options()
	opts.Subtree = subtree
	res, err := Diff(f.prev, root, f.mount, opts)
	if err != nil {
		f.t.Fatalf("partial Diff failed: %v", err)
	}
	f.surface.apply(res.Patches)
	f.surface.check(res.Records)
	f.prev = res.Records
	return res
}

func (f *fixture) partialErr(subtree Identity, root *widget.Node) error {
	f.t.Helper()
	opts := f.options()
	opts.Subtree = subtree
	_, err := Diff(f.prev, root, f.mount, opts)
	if err == nil {
		f.t.Fatalf("Expected partial Diff to fail")
	}
	return err
}

func countActions(patches []Patch) map[Action]int {
	counts := make(map[Action]int)
	for _, p := range patches {
		counts[p.Action]++
	}
	return counts
}

func findByTag(t *testing.T, m RecordMap, tag string) *Record {
	t.Helper()
	var found *Record
	for _, rec := range m {
		if rec.Tag == tag {
			if found != nil {
				t.Fatalf("multiple records with tag %q", tag)
			}
			found = rec
		}
	}
	if found == nil {
		t.Fatalf("no record with tag %q", tag)
	}
	return found
}

func findByKeyValue(t *testing.T, m RecordMap, v any) *Record {
	t.Helper()
	for _, rec := range m {
		if rec.Identity.Keyed() && rec.Identity.Key().Value() == v {
			return rec
		}
	}
	t.Fatalf("no record keyed %v", v)
	return nil
}
