package widget

import (
	"errors"
	"testing"
)

func TestNewKey(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		wantErr bool
	}{
		{"string", "todo-1", false},
		{"int", 42, false},
		{"struct", struct{ A, B int }{1, 2}, false},
		{"pointer", &struct{}{}, false},
		{"nil", nil, true},
		{"slice", []int{1, 2}, true},
		{"map", map[string]int{}, true},
		{"func", func() {}, true},
		{"array of hashable values", [2]any{"a", 1}, false},
		// Type-comparable but panics when hashed; must be rejected up
		// front instead of crashing a later pass.
		{"array hiding a func", [1]any{func() {}}, true},
		{"struct hiding a slice", struct{ V any }{[]int{1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := NewKey(tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %T, got none", tt.value)
				}
				if !errors.Is(err, ErrInvalidKey) {
					t.Errorf("Expected ErrInvalidKey, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if k.IsZero() {
				t.Error("Expected non-zero key")
			}
			if k.Value() != tt.value {
				t.Errorf("Expected value %v, got %v", tt.value, k.Value())
			}
		})
	}
}

func TestKeyEquality(t *testing.T) {
	a := MustKey(7)
	b := MustKey(7)
	c := MustKey("7")

	if a != b {
		t.Error("Expected keys with equal values to be equal")
	}
	if a == c {
		t.Error("Expected keys of different types to differ")
	}

	// Keys must work as map keys without collisions across types.
	m := map[Key]int{a: 1, c: 2}
	if len(m) != 2 {
		t.Errorf("Expected 2 map entries, got %d", len(m))
	}
	if m[b] != 1 {
		t.Errorf("Expected lookup via equal key to hit, got %d", m[b])
	}
}

func TestMustKeyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for non-comparable value")
		}
	}()
	MustKey([]string{"no"})
}

func TestZeroKey(t *testing.T) {
	var k Key
	if !k.IsZero() {
		t.Error("Expected zero key to report IsZero")
	}
	if k.String() != "<unkeyed>" {
		t.Errorf("Expected <unkeyed>, got %q", k.String())
	}
}
