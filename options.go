package weft

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/weft-dev/weft/pkg/reconcile"
)

// Option configures a Reconciler at construction time.
type Option func(*Reconciler)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(r *Reconciler) {
		if log != nil {
			r.log = log
		}
	}
}

// WithMetrics attaches a Prometheus metrics set. Nil disables
// instrumentation, which is the default.
func WithMetrics(m *Metrics) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// WithTracer sets the tracer spans are started on.
func WithTracer(t trace.Tracer) Option {
	return func(r *Reconciler) {
		r.tracer = t
	}
}

// WithTracing enables tracing on the global OpenTelemetry provider
// under the package's tracer name.
func WithTracing() Option {
	return func(r *Reconciler) {
		r.tracer = otel.Tracer(tracerName)
	}
}

// WithObserver registers a per-pass observer (the devtools inspector
// feed uses this).
func WithObserver(o Observer) Option {
	return func(r *Reconciler) {
		r.observer = o
	}
}

// WithIDGenerator substitutes the element id generator. The generator
// must outlive every context the Reconciler serves.
func WithIDGenerator(g *reconcile.IDGenerator) Option {
	return func(r *Reconciler) {
		if g != nil {
			r.ids = g
		}
	}
}

// WithMarkup sets the markup renderer for INSERT and REPLACE stub
// payloads. Without one, patches carry structure but no HTML.
func WithMarkup(fn reconcile.MarkupFunc) Option {
	return func(r *Reconciler) {
		r.markup = fn
	}
}

type reconcileOptions struct {
	subtree reconcile.Identity
	prev    reconcile.RecordMap
	prevSet bool
}

// ReconcileOption configures one Reconcile call.
type ReconcileOption func(*reconcileOptions)

// Partial restricts the pass to the subtree rooted at the given
// identity. Records outside the subtree are carried into the result
// untouched and no patch targets them.
func Partial(root reconcile.Identity) ReconcileOption {
	return func(o *reconcileOptions) {
		o.subtree = root
	}
}

// WithPreviousMap diffs against the given map instead of the stored
// one, for callers doing their own bookkeeping. The store is left
// untouched: the caller must keep the result's Records themselves.
func WithPreviousMap(m reconcile.RecordMap) ReconcileOption {
	return func(o *reconcileOptions) {
		o.prev = m
		o.prevSet = true
	}
}
