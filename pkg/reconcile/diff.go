package reconcile

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"

	"github.com/weft-dev/weft/pkg/widget"
)

// MarkupFunc renders the single-element stub carried by INSERT and
// REPLACE patches. The record is fully populated, id included, before
// the call. A nil MarkupFunc leaves Patch.HTML empty, which structural
// tests rely on.
type MarkupFunc func(rec *Record) (string, error)

// Options configure one Diff call.
type Options struct {
	// IDs mints element ids. Share one generator across every pass and
	// context of a reconciler; a nil generator gets a throwaway seeded
	// past the previous map's ids.
	IDs *IDGenerator

	// Markup renders insert/replace stubs.
	Markup MarkupFunc

	// Logger receives diagnostics. Nil means slog.Default().
	Logger *slog.Logger

	// Subtree, when set, runs a partial pass rooted at that record.
	// Records outside the subtree are merged into the result untouched
	// and no patch may target them.
	Subtree Identity
}

// Diff reconciles a new widget tree against the previous map and
// returns the ordered patch script, the replacement map, and the
// renderer side tables. The previous map is never mutated: on error
// the caller's state is exactly as it was.
//
// A nil root on a full pass unmounts the context. mountID names the
// surface container the root attaches to.
func Diff(prev RecordMap, root *widget.Node, mountID string, opts Options) (*Result, error) {
	if prev == nil {
		return nil, ErrNilPrevious
	}

	ids := opts.IDs
	if ids == nil {
		ids = NewIDGenerator()
		for _, rec := range prev {
			if n, ok := ParseID(rec.ID); ok {
				ids.AdvancePast(n)
			}
		}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	d := &differ{
		prev:    prev,
		next:    make(RecordMap, len(prev)+8),
		res:     &Result{},
		ids:     ids,
		markup:  opts.Markup,
		log:     log,
		visited: make(map[Identity]bool, len(prev)),
	}

	if !opts.Subtree.IsZero() {
		if err := d.runPartial(prev, root, opts.Subtree); err != nil {
			return nil, err
		}
	} else if err := d.runFull(root, mountID); err != nil {
		return nil, err
	}

	d.res.Records = d.next
	d.res.CSSDetails, d.res.Callbacks = buildTables(d.next)
	d.res.Stats.Records = len(d.next)
	return d.res, nil
}

type differ struct {
	prev    RecordMap
	next    RecordMap
	res     *Result
	ids     *IDGenerator
	markup  MarkupFunc
	log     *slog.Logger
	visited map[Identity]bool
}

func (d *differ) runFull(root *widget.Node, mountID string) error {
	var oldRoot *Record
	if ident, ok := d.prev.Root(mountID); ok {
		oldRoot = d.prev[ident]
	}

	if root == nil {
		if oldRoot != nil {
			d.removeSubtree(oldRoot, true)
		}
	} else {
		ident := rootIdentity(root, mountID)
		if oldRoot != nil && oldRoot.Identity != ident {
			oldRoot = d.reanchorRoot(oldRoot, root, ident, mountID)
		}
		switch {
		case oldRoot != nil && oldRoot.Identity == ident:
			if err := d.patchPair(oldRoot, root, Identity{}, mountID, "", ""); err != nil {
				return err
			}
		default:
			if oldRoot != nil {
				d.removeSubtree(oldRoot, true)
			}
			if err := d.insertSubtree(root, ident, Identity{}, mountID, ""); err != nil {
				return err
			}
		}
	}

	d.sweep()
	return nil
}

// reanchorRoot adopts a previous root recorded under another mount.
// Root identities are mount-scoped, so a moved mount point would
// otherwise rebuild the whole context; when the key still agrees we
// re-key the root record instead and slide its element over. Returns
// the adopted record, or the original when adoption is impossible and
// the caller should rebuild.
func (d *differ) reanchorRoot(oldRoot *Record, root *widget.Node, ident Identity, mountID string) *Record {
	if oldRoot.Identity.Key() != root.Key {
		return oldRoot
	}
	if !oldRoot.Renderable() && oldRoot.ParentID != mountID {
		// A composite root has no element to slide; rebuild.
		return oldRoot
	}

	rekeyed := *oldRoot
	rekeyed.Identity = ident
	prev := make(RecordMap, len(d.prev))
	for k, v := range d.prev {
		prev[k] = v
	}
	delete(prev, oldRoot.Identity)
	prev[ident] = &rekeyed
	d.prev = prev

	if rekeyed.Renderable() && rekeyed.ParentID != mountID {
		d.emit(Patch{Action: ActionMove, TargetID: rekeyed.ID, ParentID: mountID})
	}
	return &rekeyed
}

func (d *differ) runPartial(full RecordMap, root *widget.Node, subtree Identity) error {
	rootRec, ok := full[subtree]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSubtreeNotFound, subtree)
	}
	if root == nil {
		return fmt.Errorf("%w: new subtree is nil", ErrSubtreeMismatch)
	}
	if !rootRec.Renderable() || root.Kind == widget.KindComposite {
		return ErrCompositeSubtree
	}
	if !root.Key.IsZero() {
		if !rootRec.Identity.Keyed() || rootRec.Identity.Key() != root.Key {
			return fmt.Errorf("%w: key %s against %s", ErrSubtreeMismatch, root.Key, rootRec.Identity)
		}
	}

	sub := full.Subtree(subtree)
	d.prev = sub

	if err := d.patchPair(rootRec, root, rootRec.Parent, rootRec.ParentID, "", ""); err != nil {
		return err
	}
	d.sweep()

	// Outer records ride along untouched.
	merged := make(RecordMap, len(full))
	for ident, rec := range full {
		if _, in := sub[ident]; !in {
			merged[ident] = rec
		}
	}
	for ident, rec := range d.next {
		merged[ident] = rec
	}
	d.next = merged
	d.res.Stats.Partial = true
	return nil
}

// patchPair reconciles a matched record with its new node. anchor is
// where the node's span starts if it has to be rebuilt in place; tail
// is the anchor that follows its span, which composite children need.
func (d *differ) patchPair(old *Record, n *widget.Node, parent Identity, parentElemID, anchor, tail string) error {
	ident := old.Identity
	d.visited[ident] = true

	if old.Kind != n.Kind || old.Tag != n.Tag {
		if old.Renderable() && n.Renderable() {
			return d.replaceNode(old, n, parent, parentElemID)
		}
		// A composite is involved on one side, so there is no single
		// element to swap; rebuild the span at its anchor.
		d.removeSubtree(old, true)
		return d.insertSubtree(n, ident, parent, parentElemID, anchor)
	}

	rec := d.newRecord(n, ident, parent)
	rec.ID = old.ID
	rec.ParentID = parentElemID
	rec.Initialized = old.Initialized
	d.next[ident] = rec

	delta, removed, textChanged := propsDelta(old, n)
	if len(delta) > 0 || len(removed) > 0 || textChanged {
		if rec.Renderable() {
			p := Patch{Action: ActionUpdate, TargetID: old.ID, Props: delta, Removed: removed}
			if textChanged {
				t := n.Text
				p.Text = &t
			}
			d.emit(p)
		}
		d.callDidUpdate(n.Ref, old.Props.Clone(), ident)
	}

	return d.diffChildren(old, rec, n, tail)
}

// replaceNode swaps an element for a structurally different one at the
// same identity. The old subtree goes silently; the surface swap takes
// its elements along. The replacement minted a fresh id, so everything
// downstream treats it as newly mounted.
func (d *differ) replaceNode(old *Record, n *widget.Node, parent Identity, parentElemID string) error {
	d.removeSubtree(old, false)

	rec := d.newRecord(n, old.Identity, parent)
	rec.ID = d.ids.Next()
	rec.ParentID = parentElemID
	d.next[old.Identity] = rec

	html, err := d.render(rec)
	if err != nil {
		return err
	}
	p := Patch{Action: ActionReplace, TargetID: old.ID, NewID: rec.ID, HTML: html, Props: rec.Props}
	if rec.Kind == widget.KindText {
		t := rec.Text
		p.Text = &t
	}
	d.emit(p)
	rec.Initialized = d.queueInit(rec, n)

	return d.insertChildren(rec, n, rec.ID, "")
}

func (d *differ) insertSubtree(n *widget.Node, ident, parent Identity, parentElemID, before string) error {
	rec := d.newRecord(n, ident, parent)
	rec.ID = d.ids.Next()
	rec.ParentID = parentElemID
	d.next[ident] = rec

	if rec.Renderable() {
		html, err := d.render(rec)
		if err != nil {
			return err
		}
		p := Patch{Action: ActionInsert, TargetID: rec.ID, ParentID: parentElemID, BeforeID: before, HTML: html, Props: rec.Props}
		if rec.Kind == widget.KindText {
			t := rec.Text
			p.Text = &t
		}
		d.emit(p)
		rec.Initialized = d.queueInit(rec, n)
		return d.insertChildren(rec, n, rec.ID, "")
	}

	// Composite children land at the composite's own insertion point.
	// Same-anchor inserts stack in emission order, so the subtree
	// interleaves correctly with whatever follows the anchor.
	return d.insertChildren(rec, n, parentElemID, before)
}

func (d *differ) insertChildren(rec *Record, n *widget.Node, elemID, before string) error {
	items := d.assignIdentities(rec.ID, n.Children)
	idents := make([]Identity, len(items))
	for i, it := range items {
		idents[i] = it.ident
		if err := d.insertSubtree(it.node, it.ident, rec.Identity, elemID, before); err != nil {
			return err
		}
	}
	rec.Children = idents
	return nil
}

// removeSubtree drops a record and everything under it. With emit set
// it produces one REMOVE per top-level surface element; descendants go
// silently because the surface removal takes them along. Dispose hooks
// fire bottom-up.
func (d *differ) removeSubtree(rec *Record, emit bool) {
	d.visited[rec.Identity] = true
	childEmit := emit
	if rec.Renderable() {
		if emit {
			d.emit(Patch{Action: ActionRemove, TargetID: rec.ID})
		}
		childEmit = false
	}
	for _, cid := range rec.Children {
		if c, ok := d.prev[cid]; ok {
			d.removeSubtree(c, childEmit)
		}
	}
	d.dispose(rec)
}

type childItem struct {
	node  *widget.Node
	ident Identity
	dup   bool
}

// assignIdentities computes the identity of every child under one
// parent: a scoped key identity for keyed children, a positional slot
// for the rest. Duplicate sibling keys demote to a slot and are
// reported; the first occurrence keeps the key.
func (d *differ) assignIdentities(scopeID string, children []*widget.Node) []childItem {
	items := make([]childItem, 0, len(children))
	var seen map[widget.Key]bool
	unkeyed, dups := 0, 0
	for _, c := range children {
		if c == nil {
			continue
		}
		it := childItem{node: c}
		if !c.Key.IsZero() {
			if seen == nil {
				seen = make(map[widget.Key]bool)
			}
			if seen[c.Key] {
				// Demoted duplicates take slots in their own namespace;
				// the genuinely unkeyed siblings keep their ordinals.
				it.dup = true
				it.ident = SlotIdentity(scopeID+"~dup", dups)
				dups++
				d.diag(DiagDuplicateKey,
					fmt.Sprintf("duplicate key %s among children of %s, treating as new", c.Key, scopeID),
					it.ident.String())
				d.log.Warn("duplicate sibling key", "key", c.Key.String(), "parent", scopeID)
			} else {
				seen[c.Key] = true
				it.ident = KeyIdentity(scopeID, c.Key)
			}
		} else {
			it.ident = SlotIdentity(scopeID, unkeyed)
			unkeyed++
		}
		items = append(items, it)
	}
	return items
}

func (d *differ) diffChildren(old, rec *Record, n *widget.Node, tail string) error {
	childElem := rec.ID
	childTail := ""
	if !rec.Renderable() {
		childElem = rec.ParentID
		childTail = tail
	}

	items := d.assignIdentities(rec.ID, n.Children)

	oldIndex := make(map[Identity]int, len(old.Children))
	for i, ident := range old.Children {
		oldIndex[ident] = i
	}

	// Keyed children claim old records by key wherever they sat;
	// unkeyed children land on the same slot lookup because slots are
	// ordinal among unkeyed siblings. Duplicates never match.
	recs := make([]*Record, len(items))
	matched := make(map[Identity]bool, len(items))
	for i, it := range items {
		if it.dup {
			continue
		}
		if _, ok := oldIndex[it.ident]; ok {
			if r := d.prev[it.ident]; r != nil {
				recs[i] = r
				matched[it.ident] = true
			}
		}
	}

	// Removals precede placements so anchors only ever name surviving
	// elements.
	for _, oldID := range old.Children {
		if matched[oldID] {
			continue
		}
		if r, ok := d.prev[oldID]; ok {
			d.removeSubtree(r, true)
		}
	}

	idents := make([]Identity, len(items))
	for i := range items {
		idents[i] = items[i].ident
	}
	rec.Children = idents

	return d.placeWithLIS(items, recs, oldIndex, rec, childElem, childTail)
}

// placeWithLIS orders one child level with the minimum number of MOVE
// patches: matched children on the longest increasing subsequence of
// old positions stay put, everything else moves or mounts before the
// next stable sibling. A composite child moves as its element span,
// one MOVE per top-level surface element, so a reorder never re-mints
// ids or cycles records.
func (d *differ) placeWithLIS(items []childItem, recs []*Record, oldIndex map[Identity]int, parent *Record, elemID, tail string) error {
	seq := make([]int, 0, len(items))
	seqPos := make([]int, 0, len(items))
	for i, r := range recs {
		if r != nil {
			seq = append(seq, oldIndex[r.Identity])
			seqPos = append(seqPos, i)
		}
	}
	stable := make(map[int]bool, len(seq))
	for _, k := range longestIncreasingSubsequence(seq) {
		stable[seqPos[k]] = true
	}

	// An empty composite span contributes no anchor; the next surviving
	// element to its right serves instead.
	anchors := make([]string, len(items))
	next := tail
	for i := len(items) - 1; i >= 0; i-- {
		anchors[i] = next
		if stable[i] {
			if id := d.spanStart(recs[i]); id != "" {
				next = id
			}
		}
	}

	for i, it := range items {
		r := recs[i]
		switch {
		case r == nil:
			if err := d.insertSubtree(it.node, it.ident, parent.Identity, elemID, anchors[i]); err != nil {
				return err
			}
		case stable[i]:
			if err := d.patchPair(r, it.node, parent.Identity, elemID, anchors[i], anchors[i]); err != nil {
				return err
			}
		default:
			// Span elements keep their relative order: moving each one
			// before the same anchor stacks them in emission order.
			for _, id := range d.spanElements(r, nil) {
				d.emit(Patch{Action: ActionMove, TargetID: id, ParentID: elemID, BeforeID: anchors[i]})
			}
			if err := d.patchPair(r, it.node, parent.Identity, elemID, anchors[i], anchors[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// spanElements collects a record's top-level surface elements in
// order: the record's own element when renderable, otherwise the spans
// of its children. These are exactly the elements the host parents
// directly, so they travel together when the record changes position.
func (d *differ) spanElements(rec *Record, out []string) []string {
	if rec.Renderable() {
		return append(out, rec.ID)
	}
	for _, cid := range rec.Children {
		if c, ok := d.prev[cid]; ok {
			out = d.spanElements(c, out)
		}
	}
	return out
}

// spanStart resolves the first surface element of a record's span:
// itself when renderable, otherwise the first renderable descendant.
func (d *differ) spanStart(rec *Record) string {
	if rec.Renderable() {
		return rec.ID
	}
	for _, cid := range rec.Children {
		if c, ok := d.prev[cid]; ok {
			if id := d.spanStart(c); id != "" {
				return id
			}
		}
	}
	return ""
}

// sweep clears previous-map entries the walk never reached. Matched
// parents always account for their children, so anything unvisited is
// a disconnected stale chain; only its topmost records need REMOVE
// patches.
func (d *differ) sweep() {
	var stale []*Record
	for ident, rec := range d.prev {
		if !d.visited[ident] {
			stale = append(stale, rec)
		}
	}
	if len(stale) == 0 {
		return
	}
	sort.Slice(stale, func(i, j int) bool { return idLess(stale[i].ID, stale[j].ID) })
	for _, rec := range stale {
		if d.visited[rec.Identity] {
			continue
		}
		if rec.Parent.IsZero() || d.prev[rec.Parent] == nil || d.visited[rec.Parent] {
			d.removeSubtree(rec, true)
		}
	}
}

func idLess(a, b string) bool {
	na, oka := ParseID(a)
	nb, okb := ParseID(b)
	if oka && okb {
		return na < nb
	}
	return a < b
}

func rootIdentity(root *widget.Node, mountID string) Identity {
	if !root.Key.IsZero() {
		return KeyIdentity(mountID, root.Key)
	}
	return SlotIdentity(mountID, 0)
}

func (d *differ) newRecord(n *widget.Node, ident, parent Identity) *Record {
	rec := &Record{
		Identity: ident,
		Parent:   parent,
		Kind:     n.Kind,
		Tag:      n.Tag,
		Props:    n.Props.Clone(),
		Text:     n.Text,
		Style:    n.Style,
		Ref:      n.Ref,
	}
	if n.Callbacks != nil {
		rec.Callbacks = make(map[string]widget.Callback, len(n.Callbacks))
		for ev, cb := range n.Callbacks {
			rec.Callbacks[ev] = cb
		}
	}
	return rec
}

func (d *differ) render(rec *Record) (string, error) {
	if d.markup == nil {
		return "", nil
	}
	html, err := d.markup(rec)
	if err != nil {
		return "", fmt.Errorf("reconcile: render stub for %s: %w", rec.ID, err)
	}
	return html, nil
}

func (d *differ) queueInit(rec *Record, n *widget.Node) bool {
	if n.Init == nil || !rec.Renderable() {
		return false
	}
	d.res.Initializers = append(d.res.Initializers, Initializer{
		TargetID: rec.ID,
		Type:     n.Init.Type,
		Payload:  n.Init.Payload,
	})
	return true
}

func (d *differ) emit(p Patch) {
	d.res.Patches = append(d.res.Patches, p)
	d.res.count(p.Action)
}

func (d *differ) diag(code, msg, identity string) {
	d.res.Diagnostics = append(d.res.Diagnostics, Diagnostic{Code: code, Message: msg, Identity: identity})
}

func (d *differ) dispose(rec *Record) {
	dis, ok := rec.Ref.(widget.Disposer)
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.diag(DiagHookPanic, fmt.Sprintf("dispose panicked: %v", r), rec.Identity.String())
			d.log.Error("dispose hook panicked", "identity", rec.Identity.String(), "panic", r)
		}
	}()
	dis.Dispose()
}

func (d *differ) callDidUpdate(ref any, prev widget.Props, ident Identity) {
	up, ok := ref.(widget.Updater)
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.diag(DiagHookPanic, fmt.Sprintf("didUpdate panicked: %v", r), ident.String())
			d.log.Error("didUpdate hook panicked", "identity", ident.String(), "panic", r)
		}
	}()
	up.DidUpdate(prev)
}

// propsDelta computes what an UPDATE must carry: values that changed
// or appeared, the names that disappeared, and whether the text
// content moved. Never the full prop set.
func propsDelta(old *Record, n *widget.Node) (widget.Props, []string, bool) {
	var delta widget.Props
	for k, v := range n.Props {
		ov, ok := old.Props[k]
		if !ok || !valueEqual(ov, v) {
			if delta == nil {
				delta = make(widget.Props)
			}
			delta[k] = v
		}
	}
	var removed []string
	for k := range old.Props {
		if _, ok := n.Props[k]; !ok {
			removed = append(removed, k)
		}
	}
	sort.Strings(removed)
	return delta, removed, old.Text != n.Text
}

// valueEqual compares prop values with fast paths for the common
// types, falling back to deep equality for the rest.
func valueEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return av == bv
		}
	case int:
		if bv, ok := b.(int); ok {
			return av == bv
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return av == bv
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av == bv
		}
	case bool:
		if bv, ok := b.(bool); ok {
			return av == bv
		}
	}
	return reflect.DeepEqual(a, b)
}
