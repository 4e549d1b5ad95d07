package widget

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrInvalidKey is returned when a key value cannot participate in
// equality comparison and therefore cannot identify a node.
var ErrInvalidKey = errors.New("widget: key value is not comparable")

// Key identifies a node across reconciliation passes. It wraps a single
// caller-supplied value; two keys are equal exactly when their wrapped
// values are equal under Go's == semantics. The zero Key marks an
// unkeyed node.
//
// Keys only compete with their siblings. The same key under two
// different parents refers to two different nodes.
type Key struct {
	value any
}

// NewKey wraps v as a reconciliation key. The value must be comparable
// (usable as a map key); otherwise ErrInvalidKey is returned. Arrays
// and structs with interface-typed elements pass the static check and
// still panic when hashed, so hashability is verified at runtime too.
func NewKey(v any) (Key, error) {
	if v == nil {
		return Key{}, fmt.Errorf("%w: nil", ErrInvalidKey)
	}
	if !reflect.TypeOf(v).Comparable() || !hashable(v) {
		return Key{}, fmt.Errorf("%w: %T", ErrInvalidKey, v)
	}
	return Key{value: v}, nil
}

func hashable(v any) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	_ = map[any]struct{}{v: {}}
	return true
}

// MustKey is NewKey that panics on an invalid value. Intended for
// literals in tree builders where the value is known comparable.
func MustKey(v any) Key {
	k, err := NewKey(v)
	if err != nil {
		panic(err)
	}
	return k
}

// IsZero reports whether the key is the unkeyed sentinel.
func (k Key) IsZero() bool {
	return k.value == nil
}

// Value returns the wrapped value, or nil for the zero Key.
func (k Key) Value() any {
	return k.value
}

// String renders the key for diagnostics and logs.
func (k Key) String() string {
	if k.value == nil {
		return "<unkeyed>"
	}
	return fmt.Sprintf("%v", k.value)
}
