// Package weft reconciles declarative widget trees against the last
// rendered state of a surface and hands the rendering layer an ordered
// patch script plus the side tables (style bindings, callback
// registrations, client-side initializers) that keep it consistent.
//
// The Reconciler owns the per-context record maps. A context is one
// independently rendered region; reconciles on the same context are
// serialized, different contexts proceed in parallel:
//
//	r := weft.New()
//	res, err := r.Reconcile(ctx, weft.DefaultContext, tree, "app")
//	if err != nil {
//	    return err
//	}
//	apply(res.Patches)
//
// The engine itself lives in pkg/reconcile and is a pure function over
// an explicit previous map; this package adds the store, the
// per-context locking, snapshot persistence, and instrumentation.
package weft

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/weft-dev/weft/pkg/reconcile"
	"github.com/weft-dev/weft/pkg/snapshot"
	"github.com/weft-dev/weft/pkg/widget"
)

// PassSummary describes one completed reconciliation for observers:
// the devtools inspector feed, test hooks, user telemetry.
type PassSummary struct {
	Context     string          `json:"context"`
	MountID     string          `json:"mount_id"`
	Partial     bool            `json:"partial,omitempty"`
	Stats       reconcile.Stats `json:"stats"`
	Diagnostics int             `json:"diagnostics,omitempty"`
	Err         string          `json:"error,omitempty"`
}

// Observer receives a summary after every Reconcile call, successful
// or not. Calls happen while the context's lock is held, so summaries
// arrive in pass order per context; implementations must be safe for
// concurrent use across contexts and should return quickly.
type Observer interface {
	ReconcilePass(PassSummary)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(PassSummary)

// ReconcilePass implements Observer.
func (f ObserverFunc) ReconcilePass(s PassSummary) { f(s) }

// Reconciler is the engine facade: it owns the context store and runs
// the diff engine against the stored previous map of whichever context
// a call names.
type Reconciler struct {
	store    *contextStore
	ids      *reconcile.IDGenerator
	markup   reconcile.MarkupFunc
	log      *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	observer Observer
}

// New creates a Reconciler with an empty "main" context.
func New(opts ...Option) *Reconciler {
	r := &Reconciler{
		store: newContextStore(),
		ids:   reconcile.NewIDGenerator(),
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile diffs root against the named context's previous map and,
// on success, swaps the context's stored map for the result's. The
// swap is the only store mutation; a failed call leaves the context
// exactly as it was and is safe to retry.
//
// mountID names the surface container the tree's root attaches to. A
// nil root on a full pass unmounts the context's tree. The context is
// created on first use.
func (r *Reconciler) Reconcile(ctx context.Context, contextKey string, root *widget.Node, mountID string, opts ...ReconcileOption) (*reconcile.Result, error) {
	var o reconcileOptions
	for _, opt := range opts {
		opt(&o)
	}

	entry := r.store.entry(contextKey)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.records == nil {
		// Cleared while we waited on the lock; restart from empty.
		entry.records = reconcile.RecordMap{}
	}
	prev := entry.records
	if o.prevSet {
		prev = o.prev
	}

	span := r.startSpan(ctx, contextKey, !o.subtree.IsZero())
	start := time.Now()

	res, err := reconcile.Diff(prev, root, mountID, reconcile.Options{
		IDs:     r.ids,
		Markup:  r.markup,
		Logger:  r.log.With("context", contextKey),
		Subtree: o.subtree,
	})
	elapsed := time.Since(start)

	if err != nil {
		r.endSpan(span, nil, err)
		r.metrics.observePass(contextKey, nil, elapsed, err)
		r.notify(PassSummary{Context: contextKey, MountID: mountID, Partial: !o.subtree.IsZero(), Err: err.Error()})
		r.log.Error("reconcile failed", "context", contextKey, "error", err)
		return nil, &ReconcileError{Context: contextKey, Op: "reconcile", Err: err}
	}

	res.Stats.Duration = elapsed
	if !o.prevSet {
		entry.records = res.Records
	}

	r.endSpan(span, res, nil)
	r.metrics.observePass(contextKey, res, elapsed, nil)
	r.notify(PassSummary{
		Context:     contextKey,
		MountID:     mountID,
		Partial:     res.Stats.Partial,
		Stats:       res.Stats,
		Diagnostics: len(res.Diagnostics),
	})
	r.log.Debug("reconcile complete",
		"context", contextKey,
		"patches", res.Stats.Patches(),
		"records", res.Stats.Records,
		"duration", elapsed)
	return res, nil
}

// ClearContext drops all state for one context. The next Reconcile on
// that key starts from an empty previous map, exactly like a first
// mount. Clearing emits no patches: a caller wanting a visual clear
// must remove the previously live surface itself. Unknown keys are a
// no-op.
func (r *Reconciler) ClearContext(contextKey string) {
	if r.store.remove(contextKey) {
		r.metrics.DropContext(contextKey)
		r.log.Info("context cleared", "context", contextKey)
		return
	}
	r.log.Debug("clear of unknown context", "context", contextKey)
}

// ClearAllContexts drops every context and re-seeds an empty default
// one. Full teardown; emits no patches.
func (r *Reconciler) ClearAllContexts() {
	keys := r.store.keys()
	r.store.removeAll()
	for _, k := range keys {
		r.metrics.DropContext(k)
	}
	r.log.Info("all contexts cleared")
}

// Contexts returns the live context keys in lexical order.
func (r *Reconciler) Contexts() []string {
	return r.store.keys()
}

// ContextRecords returns a copy of one context's current record map,
// or false for an unknown context. Intended for inspection; the copy
// is detached from the store and never becomes a previous map.
func (r *Reconciler) ContextRecords(contextKey string) (reconcile.RecordMap, bool) {
	e, ok := r.store.lookup(contextKey)
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.records == nil {
		return nil, false
	}
	return e.records.Clone(), true
}

// SaveContext persists one context's record map to the given store so
// a later process can RestoreContext instead of remounting. The id
// high-water mark travels with the snapshot.
func (r *Reconciler) SaveContext(ctx context.Context, contextKey string, dst snapshot.Store) error {
	e, ok := r.store.lookup(contextKey)
	if !ok {
		return &ReconcileError{Context: contextKey, Op: "save", Err: ErrUnknownContext}
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := snapshot.New(contextKey, e.records, r.ids.Current())
	if err != nil {
		return &ReconcileError{Context: contextKey, Op: "save", Err: err}
	}
	if err := dst.Save(ctx, snap); err != nil {
		return &ReconcileError{Context: contextKey, Op: "save", Err: err}
	}
	r.log.Info("context saved", "context", contextKey, "records", len(e.records))
	return nil
}

// RestoreContext loads a snapshot and installs it as the context's
// previous map, replacing whatever the context held. The id generator
// is advanced past every id the snapshot minted, so nothing restored
// can collide with future inserts.
func (r *Reconciler) RestoreContext(ctx context.Context, contextKey string, src snapshot.Store) error {
	snap, err := src.Load(ctx, contextKey)
	if err != nil {
		return &ReconcileError{Context: contextKey, Op: "restore", Err: err}
	}
	m, err := snap.RecordMap()
	if err != nil {
		return &ReconcileError{Context: contextKey, Op: "restore", Err: err}
	}
	r.ids.AdvancePast(snap.NextID)

	entry := r.store.entry(contextKey)
	entry.mu.Lock()
	entry.records = m
	entry.mu.Unlock()

	r.log.Info("context restored", "context", contextKey, "records", len(m), "saved_at", snap.SavedAt)
	return nil
}

func (r *Reconciler) notify(s PassSummary) {
	if r.observer != nil {
		r.observer.ReconcilePass(s)
	}
}

// String implements fmt.Stringer for log output.
func (s PassSummary) String() string {
	if s.Err != "" {
		return fmt.Sprintf("%s: failed: %s", s.Context, s.Err)
	}
	return fmt.Sprintf("%s: %d patches over %d records", s.Context, s.Stats.Patches(), s.Stats.Records)
}
