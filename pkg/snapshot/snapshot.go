// Package snapshot persists reconciler context state so a process can
// restart, or hand a context to another process, without a full
// rebuild. A snapshot captures the record map and the id high-water
// mark; live values (handler functions, style computations, component
// refs) are deliberately not captured and re-attach on the first pass
// after restore.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/weft-dev/weft/pkg/reconcile"
	"github.com/weft-dev/weft/pkg/widget"
)

// FormatVersion is the payload version this package writes.
const FormatVersion = 1

var (
	// ErrNotFound is returned by stores when no snapshot exists for the
	// context key.
	ErrNotFound = errors.New("snapshot: not found")

	// ErrCorrupt is returned when a payload cannot be decoded.
	ErrCorrupt = errors.New("snapshot: corrupt payload")

	// ErrKeyValue is returned when a widget key value cannot be encoded.
	ErrKeyValue = errors.New("snapshot: unsupported key value")
)

// Snapshot is one context's persisted state.
//
// Prop values round-trip through JSON, so numeric props come back as
// float64; the first pass after a restore may emit refreshing UPDATE
// patches for them. Identities round-trip exactly for the common key
// types; exotic key types degrade to their formatted string and the
// affected nodes rebuild on the first pass instead.
type Snapshot struct {
	Version int       `json:"version"`
	Context string    `json:"context"`
	SavedAt time.Time `json:"saved_at"`

	// NextID is the id counter high-water mark. Restorers must advance
	// their generator past it before reconciling.
	NextID uint64 `json:"next_id"`

	Records []Record `json:"records"`
}

// Record is the persisted form of one reconcile record.
type Record struct {
	ID          string       `json:"html_id"`
	ParentID    string       `json:"parent_html_id,omitempty"`
	Identity    Identity     `json:"identity"`
	Parent      *Identity    `json:"parent,omitempty"`
	Kind        uint8        `json:"kind"`
	Tag         string       `json:"tag,omitempty"`
	Props       widget.Props `json:"props,omitempty"`
	Text        string       `json:"text,omitempty"`
	Children    []Identity   `json:"children,omitempty"`
	Initialized bool         `json:"initialized,omitempty"`
}

// Identity is the persisted form of a node identity.
type Identity struct {
	Scope string   `json:"scope,omitempty"`
	Key   *keyJSON `json:"key,omitempty"`
	Slot  string   `json:"slot,omitempty"`
}

// keyJSON carries a widget key value with enough type information to
// rebuild the exact dynamic type, so restored identities compare equal
// to the ones the next pass computes.
type keyJSON struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v"`
}

// New captures a context's record map. nextID is the id generator's
// current counter value.
func New(contextKey string, m reconcile.RecordMap, nextID uint64) (*Snapshot, error) {
	snap := &Snapshot{
		Version: FormatVersion,
		Context: contextKey,
		SavedAt: time.Now().UTC(),
		NextID:  nextID,
		Records: make([]Record, 0, len(m)),
	}
	for _, rec := range m {
		sr, err := flattenRecord(rec)
		if err != nil {
			return nil, err
		}
		snap.Records = append(snap.Records, sr)
	}
	// Deterministic payloads: order by element id.
	sort.Slice(snap.Records, func(i, j int) bool {
		a, oka := reconcile.ParseID(snap.Records[i].ID)
		b, okb := reconcile.ParseID(snap.Records[j].ID)
		if oka && okb {
			return a < b
		}
		return snap.Records[i].ID < snap.Records[j].ID
	})
	return snap, nil
}

// RecordMap rebuilds the live record map. Callbacks, styles and refs
// are absent until the next pass re-supplies them.
func (s *Snapshot) RecordMap() (reconcile.RecordMap, error) {
	m := make(reconcile.RecordMap, len(s.Records))
	for i := range s.Records {
		rec, err := rebuildRecord(&s.Records[i])
		if err != nil {
			return nil, err
		}
		m[rec.Identity] = rec
	}
	return m, nil
}

// Encode serializes the snapshot.
func Encode(s *Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// Decode parses a payload produced by Encode.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if s.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, s.Version)
	}
	return &s, nil
}

func flattenRecord(rec *reconcile.Record) (Record, error) {
	ident, err := encodeIdentity(rec.Identity)
	if err != nil {
		return Record{}, err
	}
	out := Record{
		ID:          rec.ID,
		ParentID:    rec.ParentID,
		Identity:    ident,
		Kind:        uint8(rec.Kind),
		Tag:         rec.Tag,
		Props:       rec.Props,
		Text:        rec.Text,
		Initialized: rec.Initialized,
	}
	if !rec.Parent.IsZero() {
		p, err := encodeIdentity(rec.Parent)
		if err != nil {
			return Record{}, err
		}
		out.Parent = &p
	}
	if len(rec.Children) > 0 {
		out.Children = make([]Identity, len(rec.Children))
		for i, c := range rec.Children {
			ci, err := encodeIdentity(c)
			if err != nil {
				return Record{}, err
			}
			out.Children[i] = ci
		}
	}
	return out, nil
}

func rebuildRecord(sr *Record) (*reconcile.Record, error) {
	ident, err := decodeIdentity(sr.Identity)
	if err != nil {
		return nil, err
	}
	rec := &reconcile.Record{
		ID:          sr.ID,
		ParentID:    sr.ParentID,
		Identity:    ident,
		Kind:        widget.Kind(sr.Kind),
		Tag:         sr.Tag,
		Props:       sr.Props,
		Text:        sr.Text,
		Initialized: sr.Initialized,
	}
	if sr.Parent != nil {
		p, err := decodeIdentity(*sr.Parent)
		if err != nil {
			return nil, err
		}
		rec.Parent = p
	}
	if len(sr.Children) > 0 {
		rec.Children = make([]reconcile.Identity, len(sr.Children))
		for i, c := range sr.Children {
			ci, err := decodeIdentity(c)
			if err != nil {
				return nil, err
			}
			rec.Children[i] = ci
		}
	}
	return rec, nil
}

func encodeIdentity(ident reconcile.Identity) (Identity, error) {
	if ident.Keyed() {
		kj, err := encodeKey(ident.Key())
		if err != nil {
			return Identity{}, err
		}
		return Identity{Scope: ident.Scope(), Key: kj}, nil
	}
	return Identity{Slot: ident.Slot()}, nil
}

func decodeIdentity(si Identity) (reconcile.Identity, error) {
	if si.Key != nil {
		k, err := decodeKey(si.Key)
		if err != nil {
			return reconcile.Identity{}, err
		}
		return reconcile.KeyIdentity(si.Scope, k), nil
	}
	return reconcile.IdentityFromSlot(si.Slot), nil
}

func encodeKey(k widget.Key) (*keyJSON, error) {
	var tag string
	value := k.Value()
	switch value.(type) {
	case string:
		tag = "s"
	case bool:
		tag = "b"
	case int:
		tag = "i"
	case int8:
		tag = "i8"
	case int16:
		tag = "i16"
	case int32:
		tag = "i32"
	case int64:
		tag = "i64"
	case uint:
		tag = "u"
	case uint8:
		tag = "u8"
	case uint16:
		tag = "u16"
	case uint32:
		tag = "u32"
	case uint64:
		tag = "u64"
	case float32:
		tag = "f32"
	case float64:
		tag = "f64"
	default:
		// Type information is lost; the formatted value still makes a
		// stable string key so the payload stays decodable.
		tag = "x"
		value = fmt.Sprintf("%v", value)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %T: %v", ErrKeyValue, k.Value(), err)
	}
	return &keyJSON{T: tag, V: raw}, nil
}

func decodeKey(kj *keyJSON) (widget.Key, error) {
	var value any
	var err error
	switch kj.T {
	case "s", "x":
		var v string
		err = json.Unmarshal(kj.V, &v)
		value = v
	case "b":
		var v bool
		err = json.Unmarshal(kj.V, &v)
		value = v
	case "i":
		var v int
		err = json.Unmarshal(kj.V, &v)
		value = v
	case "i8":
		var v int8
		err = json.Unmarshal(kj.V, &v)
		value = v
	case "i16":
		var v int16
		err = json.Unmarshal(kj.V, &v)
		value = v
	case "i32":
		var v int32
		err = json.Unmarshal(kj.V, &v)
		value = v
	case "i64":
		var v int64
		err = json.Unmarshal(kj.V, &v)
		value = v
	case "u":
		var v uint
		err = json.Unmarshal(kj.V, &v)
		value = v
	case "u8":
		var v uint8
		err = json.Unmarshal(kj.V, &v)
		value = v
	case "u16":
		var v uint16
		err = json.Unmarshal(kj.V, &v)
		value = v
	case "u32":
		var v uint32
		err = json.Unmarshal(kj.V, &v)
		value = v
	case "u64":
		var v uint64
		err = json.Unmarshal(kj.V, &v)
		value = v
	case "f32":
		var v float32
		err = json.Unmarshal(kj.V, &v)
		value = v
	case "f64":
		var v float64
		err = json.Unmarshal(kj.V, &v)
		value = v
	default:
		return widget.Key{}, fmt.Errorf("%w: unknown key tag %q", ErrCorrupt, kj.T)
	}
	if err != nil {
		return widget.Key{}, fmt.Errorf("%w: key value: %v", ErrCorrupt, err)
	}
	return widget.NewKey(value)
}
