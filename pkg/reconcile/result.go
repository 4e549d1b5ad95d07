package reconcile

import (
	"time"

	"github.com/weft-dev/weft/pkg/widget"
)

// Diagnostic codes.
const (
	DiagDuplicateKey = "duplicate_key"
	DiagHookPanic    = "hook_panic"
)

// Diagnostic is a non-fatal problem noticed during a pass. The pass
// completes; the caller decides whether to care.
type Diagnostic struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Identity string `json:"identity,omitempty"`
}

// Stats summarizes one pass.
type Stats struct {
	Inserts  int           `json:"inserts"`
	Removes  int           `json:"removes"`
	Updates  int           `json:"updates"`
	Moves    int           `json:"moves"`
	Replaces int           `json:"replaces"`
	Records  int           `json:"records"`
	Partial  bool          `json:"partial,omitempty"`
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// Patches returns the total patch count.
func (s Stats) Patches() int {
	return s.Inserts + s.Removes + s.Updates + s.Moves + s.Replaces
}

// Result is everything one reconciliation pass produces: the ordered
// patch script, the records that become the next previous map, and the
// renderer side tables. On success the facade has already stored
// Records; callers doing their own bookkeeping must feed Records back
// as the previous map of their next call.
type Result struct {
	Patches []Patch   `json:"patches"`
	Records RecordMap `json:"records"`

	// CSSDetails maps element id to its style computation binding.
	CSSDetails map[string]CSSDetail `json:"css_details,omitempty"`

	// Callbacks maps stable handler ids to the live registrations.
	Callbacks map[string]widget.Callback `json:"-"`

	// Initializers lists client-side setup queued by this pass, in
	// mount order.
	Initializers []Initializer `json:"initializers,omitempty"`

	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	Stats       Stats        `json:"stats"`
}

func (r *Result) count(a Action) {
	switch a {
	case ActionInsert:
		r.Stats.Inserts++
	case ActionRemove:
		r.Stats.Removes++
	case ActionUpdate:
		r.Stats.Updates++
	case ActionMove:
		r.Stats.Moves++
	case ActionReplace:
		r.Stats.Replaces++
	}
}
