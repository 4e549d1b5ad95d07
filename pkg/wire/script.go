package wire

import (
	"encoding/json"
	"fmt"

	"github.com/weft-dev/weft/pkg/reconcile"
	"github.com/weft-dev/weft/pkg/widget"
)

// Version is the format version this package writes.
const Version = 1

// Script is one reconciliation pass's patch list with a sequence
// number, the unit a transport delivers. Receivers must apply scripts
// in sequence order and the patches of a script in list order.
type Script struct {
	Seq     uint64
	Patches []reconcile.Patch
}

// EncodeScript encodes a script to bytes.
func EncodeScript(s *Script) []byte {
	e := NewEncoderWithCap(64 + 32*len(s.Patches))
	EncodeScriptTo(e, s)
	return e.Bytes()
}

// EncodeScriptTo encodes a script using the provided encoder.
func EncodeScriptTo(e *Encoder, s *Script) {
	e.WriteByte(Version)
	e.WriteUvarint(s.Seq)
	e.WriteUvarint(uint64(len(s.Patches)))
	for i := range s.Patches {
		encodePatch(e, &s.Patches[i])
	}
}

func encodePatch(e *Encoder, p *reconcile.Patch) {
	e.WriteByte(byte(p.Action))
	e.WriteString(p.TargetID)

	switch p.Action {
	case reconcile.ActionInsert:
		e.WriteString(p.ParentID)
		e.WriteString(p.BeforeID)
		e.WriteString(p.HTML)
		writeProps(e, p.Props)
		writeOptString(e, p.Text)

	case reconcile.ActionRemove:
		// Target id is sufficient.

	case reconcile.ActionUpdate:
		writeProps(e, p.Props)
		e.WriteUvarint(uint64(len(p.Removed)))
		for _, name := range p.Removed {
			e.WriteString(name)
		}
		writeOptString(e, p.Text)

	case reconcile.ActionMove:
		e.WriteString(p.ParentID)
		e.WriteString(p.BeforeID)

	case reconcile.ActionReplace:
		e.WriteString(p.NewID)
		e.WriteString(p.HTML)
		writeProps(e, p.Props)
		writeOptString(e, p.Text)
	}
}

// DecodeScript decodes a script from bytes. Trailing garbage after the
// last patch is an error.
func DecodeScript(data []byte) (*Script, error) {
	d := NewDecoder(data)
	s, err := DecodeScriptFrom(d)
	if err != nil {
		return nil, err
	}
	if !d.EOF() {
		return nil, fmt.Errorf("wire: %d trailing bytes after script", d.Remaining())
	}
	return s, nil
}

// DecodeScriptFrom decodes one script from a decoder, leaving the
// position after the script's last patch.
func DecodeScriptFrom(d *Decoder) (*Script, error) {
	version, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, version)
	}

	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if count > MaxPatches {
		return nil, ErrScriptTooLarge
	}
	if count > uint64(d.Remaining()) {
		// Every patch takes at least an opcode byte.
		return nil, ErrScriptTooLarge
	}

	s := &Script{Seq: seq, Patches: make([]reconcile.Patch, 0, count)}
	for i := uint64(0); i < count; i++ {
		p, err := decodePatch(d)
		if err != nil {
			return nil, fmt.Errorf("wire: patch %d: %w", i, err)
		}
		s.Patches = append(s.Patches, p)
	}
	return s, nil
}

func decodePatch(d *Decoder) (reconcile.Patch, error) {
	var p reconcile.Patch

	op, err := d.ReadByte()
	if err != nil {
		return p, err
	}
	p.Action = reconcile.Action(op)
	if p.TargetID, err = d.ReadString(); err != nil {
		return p, err
	}

	switch p.Action {
	case reconcile.ActionInsert:
		if p.ParentID, err = d.ReadString(); err != nil {
			return p, err
		}
		if p.BeforeID, err = d.ReadString(); err != nil {
			return p, err
		}
		if p.HTML, err = d.ReadString(); err != nil {
			return p, err
		}
		if p.Props, err = readProps(d); err != nil {
			return p, err
		}
		if p.Text, err = readOptString(d); err != nil {
			return p, err
		}

	case reconcile.ActionRemove:

	case reconcile.ActionUpdate:
		if p.Props, err = readProps(d); err != nil {
			return p, err
		}
		n, err := d.ReadUvarint()
		if err != nil {
			return p, err
		}
		if n > uint64(d.Remaining()) {
			return p, ErrScriptTooLarge
		}
		if n > 0 {
			p.Removed = make([]string, 0, n)
			for i := uint64(0); i < n; i++ {
				name, err := d.ReadString()
				if err != nil {
					return p, err
				}
				p.Removed = append(p.Removed, name)
			}
		}
		if p.Text, err = readOptString(d); err != nil {
			return p, err
		}

	case reconcile.ActionMove:
		if p.ParentID, err = d.ReadString(); err != nil {
			return p, err
		}
		if p.BeforeID, err = d.ReadString(); err != nil {
			return p, err
		}

	case reconcile.ActionReplace:
		if p.NewID, err = d.ReadString(); err != nil {
			return p, err
		}
		if p.HTML, err = d.ReadString(); err != nil {
			return p, err
		}
		if p.Props, err = readProps(d); err != nil {
			return p, err
		}
		if p.Text, err = readOptString(d); err != nil {
			return p, err
		}

	default:
		return p, fmt.Errorf("%w: 0x%02x", ErrUnknownAction, op)
	}
	return p, nil
}

// writeProps encodes a prop bag as length-prefixed JSON; an empty or
// nil bag is a zero-length blob. Prop values are arbitrary JSON-able
// Go values, so JSON is the interchange form here just as it is in the
// snapshot codec; decoded numeric props come back as float64.
func writeProps(e *Encoder, props widget.Props) {
	if len(props) == 0 {
		e.WriteUvarint(0)
		return
	}
	data, err := json.Marshal(props)
	if err != nil {
		// Non-serializable prop values (funcs, channels) have no wire
		// form; send the names that survive and drop the rest.
		clean := make(widget.Props, len(props))
		for k, v := range props {
			if _, jerr := json.Marshal(v); jerr == nil {
				clean[k] = v
			}
		}
		data, _ = json.Marshal(clean)
	}
	e.WriteLenBytes(data)
}

func readProps(d *Decoder) (widget.Props, error) {
	blob, err := d.ReadLenBytes()
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		return nil, nil
	}
	var props widget.Props
	if err := json.Unmarshal(blob, &props); err != nil {
		return nil, fmt.Errorf("wire: prop bag: %w", err)
	}
	return props, nil
}

func writeOptString(e *Encoder, s *string) {
	if s == nil {
		e.WriteBool(false)
		return
	}
	e.WriteBool(true)
	e.WriteString(*s)
}

func readOptString(d *Decoder) (*string, error) {
	present, err := d.ReadBool()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	s, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	return &s, nil
}
