package snapshot

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/weft-dev/weft/pkg/reconcile"
	"github.com/weft-dev/weft/pkg/widget"
)

func testOptions(ids *reconcile.IDGenerator) reconcile.Options {
	return reconcile.Options{
		IDs:    ids,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func board() *widget.Node {
	return widget.El("div", widget.P("class", "board"),
		widget.El("ul",
			widget.El("li", widget.MustKey(1), "one"),
			widget.El("li", widget.MustKey("two"), "two"),
			widget.El("li", widget.MustKey(int64(3)), "three"),
			widget.El("li", widget.MustKey(true), "done"),
		),
	)
}

func renderMap(t *testing.T, root *widget.Node) (reconcile.RecordMap, *reconcile.IDGenerator) {
	t.Helper()
	ids := reconcile.NewIDGenerator()
	res, err := reconcile.Diff(reconcile.RecordMap{}, root, "app", testOptions(ids))
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	return res.Records, ids
}

func findTag(t *testing.T, m reconcile.RecordMap, tag string) *reconcile.Record {
	t.Helper()
	for _, rec := range m {
		if rec.Tag == tag && rec.Kind == widget.KindElement {
			return rec
		}
	}
	t.Fatalf("Expected a <%s> record, got none", tag)
	return nil
}

func TestRoundTripRestoresIdentities(t *testing.T) {
	m, ids := renderMap(t, board())

	snap, err := New("main", m, ids.Current())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if snap.Context != "main" {
		t.Fatalf("Expected context %q, got %q", "main", snap.Context)
	}
	if snap.NextID != ids.Current() {
		t.Fatalf("Expected NextID %d, got %d", ids.Current(), snap.NextID)
	}

	data, err := Encode(snap)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	back, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	restored, err := back.RecordMap()
	if err != nil {
		t.Fatalf("RecordMap failed: %v", err)
	}

	if len(restored) != len(m) {
		t.Fatalf("Expected %d records, got %d", len(m), len(restored))
	}
	for ident, rec := range m {
		got, ok := restored[ident]
		if !ok {
			t.Fatalf("Expected restored map to contain %s", ident)
		}
		if got.ID != rec.ID || got.ParentID != rec.ParentID || got.Tag != rec.Tag {
			t.Fatalf("Record %s changed: got id=%s parent=%s tag=%s",
				ident, got.ID, got.ParentID, got.Tag)
		}
		if got.Text != rec.Text {
			t.Fatalf("Record %s text changed: %q vs %q", ident, got.Text, rec.Text)
		}
		if len(got.Children) != len(rec.Children) {
			t.Fatalf("Record %s child count changed", ident)
		}
	}

	// Diffing the same tree against the restored map must be a no-op.
	gen := reconcile.NewIDGenerator()
	gen.AdvancePast(back.NextID)
	res, err := reconcile.Diff(restored, board(), "app", testOptions(gen))
	if err != nil {
		t.Fatalf("Diff over restored map failed: %v", err)
	}
	if len(res.Patches) != 0 {
		t.Fatalf("Expected a quiet pass after restore, got %d patches: %v",
			len(res.Patches), res.Patches)
	}
}

func TestKeyTypesSurviveExactly(t *testing.T) {
	m, ids := renderMap(t, board())
	ul := findTag(t, m, "ul")

	snap, err := New("main", m, ids.Current())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	data, _ := Encode(snap)
	back, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	restored, err := back.RecordMap()
	if err != nil {
		t.Fatalf("RecordMap failed: %v", err)
	}

	if _, ok := restored[reconcile.KeyIdentity(ul.ID, widget.MustKey(1))]; !ok {
		t.Fatalf("Expected int key 1 to restore as int")
	}
	if _, ok := restored[reconcile.KeyIdentity(ul.ID, widget.MustKey("1"))]; ok {
		t.Fatalf("Expected int key 1 not to restore as string")
	}
	if _, ok := restored[reconcile.KeyIdentity(ul.ID, widget.MustKey(int64(1)))]; ok {
		t.Fatalf("Expected int key 1 not to restore as int64")
	}
	if _, ok := restored[reconcile.KeyIdentity(ul.ID, widget.MustKey(int64(3)))]; !ok {
		t.Fatalf("Expected int64 key 3 to restore as int64")
	}
	if _, ok := restored[reconcile.KeyIdentity(ul.ID, widget.MustKey(true))]; !ok {
		t.Fatalf("Expected bool key to restore as bool")
	}
	if _, ok := restored[reconcile.KeyIdentity(ul.ID, widget.MustKey("two"))]; !ok {
		t.Fatalf("Expected string key to restore as string")
	}
}

func TestNextIDAdvancesAFreshGenerator(t *testing.T) {
	m, ids := renderMap(t, board())
	snap, err := New("main", m, ids.Current())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	gen := reconcile.NewIDGenerator()
	gen.AdvancePast(snap.NextID)
	next := gen.Next()
	n, ok := reconcile.ParseID(next)
	if !ok {
		t.Fatalf("Expected a parseable id, got %q", next)
	}
	if n <= snap.NextID {
		t.Fatalf("Expected ids past %d, got %q", snap.NextID, next)
	}
}

func TestNumericPropsRefreshAfterRestore(t *testing.T) {
	tree := func() *widget.Node {
		return widget.El("output", widget.P("count", 3))
	}
	m, ids := renderMap(t, tree())

	snap, err := New("main", m, ids.Current())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	data, _ := Encode(snap)
	back, _ := Decode(data)
	restored, err := back.RecordMap()
	if err != nil {
		t.Fatalf("RecordMap failed: %v", err)
	}

	// JSON turned the int into a float64, so the first pass refreshes
	// the prop.
	gen := reconcile.NewIDGenerator()
	gen.AdvancePast(back.NextID)
	res, err := reconcile.Diff(restored, tree(), "app", testOptions(gen))
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if len(res.Patches) != 1 || res.Patches[0].Action != reconcile.ActionUpdate {
		t.Fatalf("Expected one refreshing UPDATE, got %v", res.Patches)
	}
	if got := res.Patches[0].Props["count"]; got != 3 {
		t.Fatalf("Expected refreshed count 3, got %v (%T)", got, got)
	}
}

func TestLiveFieldsReattachOnTheNextPass(t *testing.T) {
	tree := func() *widget.Node {
		return widget.El("div",
			widget.El("button",
				widget.On("click", "btn-go", func() {}),
				widget.Styled("primary", func() {}),
				"Go",
			),
		)
	}
	m, ids := renderMap(t, tree())

	snap, err := New("main", m, ids.Current())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	data, _ := Encode(snap)
	back, _ := Decode(data)
	restored, err := back.RecordMap()
	if err != nil {
		t.Fatalf("RecordMap failed: %v", err)
	}

	btn := findTag(t, restored, "button")
	if btn.Callbacks != nil || btn.Style != nil || btn.Ref != nil {
		t.Fatalf("Expected live fields to be dropped by the codec")
	}

	gen := reconcile.NewIDGenerator()
	gen.AdvancePast(back.NextID)
	res, err := reconcile.Diff(restored, tree(), "app", testOptions(gen))
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if len(res.Patches) != 0 {
		t.Fatalf("Expected re-attachment without patches, got %v", res.Patches)
	}
	if _, ok := res.Callbacks["btn-go"]; !ok {
		t.Fatalf("Expected the pass to re-supply the callback table")
	}
	if _, ok := res.CSSDetails[btn.ID]; !ok {
		t.Fatalf("Expected the pass to re-supply the style table")
	}
}

func TestExoticKeyDegradesToItsString(t *testing.T) {
	type point struct{ X, Y int }
	tree := func() *widget.Node {
		return widget.El("div",
			widget.El("span", widget.MustKey(point{1, 2}), "pin"),
		)
	}
	m, ids := renderMap(t, tree())
	div := findTag(t, m, "div")

	snap, err := New("main", m, ids.Current())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	data, _ := Encode(snap)
	back, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	restored, err := back.RecordMap()
	if err != nil {
		t.Fatalf("RecordMap failed: %v", err)
	}

	if _, ok := restored[reconcile.KeyIdentity(div.ID, widget.MustKey("{1 2}"))]; !ok {
		t.Fatalf("Expected the struct key to degrade to its formatted string")
	}

	// The degraded identity no longer matches the live key, so the node
	// rebuilds once.
	gen := reconcile.NewIDGenerator()
	gen.AdvancePast(back.NextID)
	res, err := reconcile.Diff(restored, tree(), "app", testOptions(gen))
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if res.Stats.Inserts == 0 || res.Stats.Removes == 0 {
		t.Fatalf("Expected the degraded node to rebuild, got %+v", res.Stats)
	}
}

func TestRecordsOrderedByID(t *testing.T) {
	m, ids := renderMap(t, board())
	snap, err := New("main", m, ids.Current())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	var last uint64
	for i, rec := range snap.Records {
		n, ok := reconcile.ParseID(rec.ID)
		if !ok {
			t.Fatalf("Expected generated ids, got %q", rec.ID)
		}
		if i > 0 && n <= last {
			t.Fatalf("Expected records ordered by id, got %q after h%d", rec.ID, last)
		}
		last = n
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Run("garbage", func(t *testing.T) {
		if _, err := Decode([]byte("{not json")); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("Expected ErrCorrupt, got %v", err)
		}
	})

	t.Run("version", func(t *testing.T) {
		m, ids := renderMap(t, board())
		snap, _ := New("main", m, ids.Current())
		data, _ := Encode(snap)

		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		raw["version"] = json.RawMessage("99")
		bumped, _ := json.Marshal(raw)

		_, err := Decode(bumped)
		if !errors.Is(err, ErrCorrupt) {
			t.Fatalf("Expected ErrCorrupt, got %v", err)
		}
		if !strings.Contains(err.Error(), "version") {
			t.Fatalf("Expected the version in the error, got %v", err)
		}
	})

	t.Run("key tag", func(t *testing.T) {
		payload := `{"version":1,"context":"main","saved_at":"2026-01-01T00:00:00Z","next_id":1,` +
			`"records":[{"html_id":"h1","identity":{"scope":"app","key":{"t":"zz","v":"1"}},"kind":0,"tag":"div"}]}`
		snap, err := Decode([]byte(payload))
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if _, err := snap.RecordMap(); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("Expected ErrCorrupt for unknown key tag, got %v", err)
		}
	})
}
