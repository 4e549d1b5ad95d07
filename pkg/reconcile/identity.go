package reconcile

import (
	"strconv"

	"github.com/weft-dev/weft/pkg/widget"
)

// Identity names a node across passes. Keyed nodes are identified by
// their key scoped to the parent's element id, because keys only
// compete among siblings while the record map is flat per context.
// Unkeyed nodes fall back to a positional slot: parent element id plus
// ordinal among unkeyed siblings. Either way the identity stays put
// exactly as long as the spot it names exists, and a replaced parent
// (fresh element id) invalidates the whole subtree's identities at
// once.
//
// Identity is comparable and is the key type of RecordMap.
type Identity struct {
	scope string
	key   widget.Key
	slot  string
}

// KeyIdentity scopes an explicit widget key to its parent's element id
// (the mount id for roots).
func KeyIdentity(scope string, k widget.Key) Identity {
	return Identity{scope: scope, key: k}
}

// SlotIdentity builds the fallback identity for an unkeyed node from
// its parent's element id and its ordinal among unkeyed siblings.
func SlotIdentity(parentID string, ordinal int) Identity {
	return Identity{slot: parentID + "~" + strconv.Itoa(ordinal)}
}

// IdentityFromSlot rebuilds a slot identity from its raw string form.
// Snapshot restore is the only expected caller.
func IdentityFromSlot(slot string) Identity {
	return Identity{slot: slot}
}

// Keyed reports whether the identity carries an explicit key.
func (id Identity) Keyed() bool {
	return !id.key.IsZero()
}

// Key returns the explicit key, zero for slot identities.
func (id Identity) Key() widget.Key {
	return id.key
}

// Scope returns the parent element id a keyed identity is scoped to.
func (id Identity) Scope() string {
	return id.scope
}

// Slot returns the fallback slot string, empty for keyed identities.
func (id Identity) Slot() string {
	return id.slot
}

// IsZero reports whether the identity is unset.
func (id Identity) IsZero() bool {
	return id.key.IsZero() && id.slot == "" && id.scope == ""
}

// String renders the identity for logs and diagnostics.
func (id Identity) String() string {
	if id.Keyed() {
		return "key:" + id.key.String() + "@" + id.scope
	}
	if id.slot == "" {
		return "<none>"
	}
	return "slot:" + id.slot
}

// MarshalText lets identity-keyed maps serialize for inspection
// endpoints. The text form is not reversible; snapshot persistence
// encodes identities with a typed codec instead.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}
