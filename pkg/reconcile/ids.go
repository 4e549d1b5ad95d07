package reconcile

import (
	"strconv"
	"sync/atomic"
)

// IDGenerator mints surface element ids ("h1", "h2", ...). Ids are
// unique for the generator's lifetime, which must span every context a
// Reconciler serves; matched nodes keep the id they were minted with,
// so a fresh id always means a fresh element.
type IDGenerator struct {
	counter atomic.Uint64
}

// NewIDGenerator creates a generator starting at h1.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Next returns the next id.
func (g *IDGenerator) Next() string {
	return "h" + strconv.FormatUint(g.counter.Add(1), 10)
}

// Current returns the last counter value that was handed out.
func (g *IDGenerator) Current() uint64 {
	return g.counter.Load()
}

// AdvancePast raises the counter so no future id collides with n.
// Snapshot restore uses this to skip past ids minted in an earlier
// process.
func (g *IDGenerator) AdvancePast(n uint64) {
	for {
		cur := g.counter.Load()
		if cur >= n {
			return
		}
		if g.counter.CompareAndSwap(cur, n) {
			return
		}
	}
}

// Reset rewinds the counter. Only safe when no records minted by this
// generator are still live anywhere.
func (g *IDGenerator) Reset() {
	g.counter.Store(0)
}

// ParseID extracts the numeric part of a generated id. The second
// return is false for ids this generator did not mint.
func ParseID(id string) (uint64, bool) {
	if len(id) < 2 || id[0] != 'h' {
		return 0, false
	}
	n, err := strconv.ParseUint(id[1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
