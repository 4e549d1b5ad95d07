package reconcile

import "github.com/weft-dev/weft/pkg/widget"

// CSSDetail tells the renderer which style computation a rendered node
// needs, with which arguments. The engine never evaluates the
// computation.
type CSSDetail struct {
	Name string `json:"name"`
	Fn   any    `json:"-"`
	Args []any  `json:"args,omitempty"`
}

// Initializer is queued client-side setup for a freshly mounted
// element. Updates never re-queue one; replacement does.
type Initializer struct {
	TargetID string         `json:"target_id"`
	Type     string         `json:"type"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// buildTables derives the style and callback lookup tables from a
// context's record map. Deriving from the final map rather than the
// walk keeps the tables complete even on partial passes, and makes it
// impossible for an entry to outlive its record.
func buildTables(m RecordMap) (map[string]CSSDetail, map[string]widget.Callback) {
	css := make(map[string]CSSDetail)
	callbacks := make(map[string]widget.Callback)
	for _, rec := range m {
		if !rec.Renderable() {
			continue
		}
		if rec.Style != nil {
			css[rec.ID] = CSSDetail{Name: rec.Style.Name, Fn: rec.Style.Fn, Args: rec.Style.Args}
		}
		for _, cb := range rec.Callbacks {
			callbacks[cb.ID] = cb
		}
	}
	return css, callbacks
}
