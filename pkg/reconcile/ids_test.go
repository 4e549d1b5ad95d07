package reconcile

import (
	"sync"
	"testing"
)

func TestIDGeneratorSequence(t *testing.T) {
	g := NewIDGenerator()
	if got := g.Next(); got != "h1" {
		t.Fatalf("Expected h1, got %s", got)
	}
	if got := g.Next(); got != "h2" {
		t.Fatalf("Expected h2, got %s", got)
	}
	if got := g.Current(); got != 2 {
		t.Fatalf("Expected counter 2, got %d", got)
	}
}

func TestIDGeneratorAdvancePast(t *testing.T) {
	g := NewIDGenerator()
	g.Next()
	g.AdvancePast(10)
	if got := g.Next(); got != "h11" {
		t.Fatalf("Expected h11 after advancing, got %s", got)
	}
	g.AdvancePast(5)
	if got := g.Next(); got != "h12" {
		t.Fatalf("Expected AdvancePast to never rewind, got %s", got)
	}
}

func TestIDGeneratorConcurrentMint(t *testing.T) {
	g := NewIDGenerator()
	const workers, each = 8, 200
	var wg sync.WaitGroup
	out := make(chan string, workers*each)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				out <- g.Next()
			}
		}()
	}
	wg.Wait()
	close(out)

	seen := make(map[string]bool, workers*each)
	for id := range out {
		if seen[id] {
			t.Fatalf("Duplicate id minted: %s", id)
		}
		seen[id] = true
	}
	if len(seen) != workers*each {
		t.Fatalf("Expected %d ids, got %d", workers*each, len(seen))
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		id string
		n  uint64
		ok bool
	}{
		{"h1", 1, true},
		{"h1204", 1204, true},
		{"h", 0, false},
		{"x9", 0, false},
		{"h12x", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		n, ok := ParseID(tt.id)
		if n != tt.n || ok != tt.ok {
			t.Fatalf("ParseID(%q): expected (%d, %v), got (%d, %v)", tt.id, tt.n, tt.ok, n, ok)
		}
	}
}
