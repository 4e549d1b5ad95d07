package reconcile

import (
	"fmt"

	"github.com/weft-dev/weft/pkg/widget"
)

// Action identifies a patch operation.
type Action uint8

const (
	ActionInsert  Action = 0x01 // materialize a new element
	ActionRemove  Action = 0x02 // drop an element and its subtree
	ActionUpdate  Action = 0x03 // apply prop deltas in place
	ActionMove    Action = 0x04 // relocate an element under its parent
	ActionReplace Action = 0x05 // swap an element for a new one in place
)

// String returns the wire name of the action.
func (a Action) String() string {
	switch a {
	case ActionInsert:
		return "INSERT"
	case ActionRemove:
		return "REMOVE"
	case ActionUpdate:
		return "UPDATE"
	case ActionMove:
		return "MOVE"
	case ActionReplace:
		return "REPLACE"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", uint8(a))
	}
}

// MarshalText renders the action name into JSON output.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses an action name.
func (a *Action) UnmarshalText(text []byte) error {
	switch string(text) {
	case "INSERT":
		*a = ActionInsert
	case "REMOVE":
		*a = ActionRemove
	case "UPDATE":
		*a = ActionUpdate
	case "MOVE":
		*a = ActionMove
	case "REPLACE":
		*a = ActionReplace
	default:
		return fmt.Errorf("reconcile: unknown patch action %q", text)
	}
	return nil
}

// Patch is one step of the ordered script a pass emits. Applying the
// script in sequence against the previous surface produces the new
// tree; every anchor a patch names is guaranteed to exist at the point
// the patch applies.
//
// Field use by action:
//
//	INSERT   TargetID, ParentID, BeforeID, HTML, Props, Text (text nodes)
//	REMOVE   TargetID
//	UPDATE   TargetID, Props (changed/added), Removed, Text
//	MOVE     TargetID, ParentID, BeforeID
//	REPLACE  TargetID (old element), NewID, HTML, Props, Text (text nodes)
type Patch struct {
	Action   Action       `json:"action"`
	TargetID string       `json:"html_id"`
	ParentID string       `json:"parent_html_id,omitempty"`
	BeforeID string       `json:"before_id,omitempty"`
	NewID    string       `json:"new_html_id,omitempty"`
	HTML     string       `json:"html,omitempty"`
	Props    widget.Props `json:"props,omitempty"`
	Removed  []string     `json:"removed_props,omitempty"`
	Text     *string      `json:"text,omitempty"`
}

// String renders a compact one-line form for logs and the CLI.
func (p Patch) String() string {
	switch p.Action {
	case ActionInsert:
		if p.BeforeID != "" {
			return fmt.Sprintf("INSERT %s into %s before %s", p.TargetID, p.ParentID, p.BeforeID)
		}
		return fmt.Sprintf("INSERT %s into %s", p.TargetID, p.ParentID)
	case ActionMove:
		if p.BeforeID != "" {
			return fmt.Sprintf("MOVE %s before %s", p.TargetID, p.BeforeID)
		}
		return fmt.Sprintf("MOVE %s to end of %s", p.TargetID, p.ParentID)
	case ActionReplace:
		return fmt.Sprintf("REPLACE %s with %s", p.TargetID, p.NewID)
	case ActionUpdate:
		return fmt.Sprintf("UPDATE %s (%d props)", p.TargetID, len(p.Props)+len(p.Removed))
	default:
		return fmt.Sprintf("%s %s", p.Action, p.TargetID)
	}
}
