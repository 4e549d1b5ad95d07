package devtools

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weft-dev/weft"
	"github.com/weft-dev/weft/pkg/reconcile"
)

// Server is the diagnostics HTTP surface:
//
//	GET /healthz          liveness
//	GET /metrics          Prometheus exposition
//	GET /contexts         live context keys
//	GET /contexts/{key}   one context's records as JSON
//	GET /inspect          websocket reconciliation feed
type Server struct {
	rec      *weft.Reconciler
	hub      *Hub
	gatherer prometheus.Gatherer
	log      *slog.Logger
	router   chi.Router
}

// NewServer builds the diagnostics handler. gatherer may be nil when
// the host exposes metrics elsewhere; /metrics then reports 404.
func NewServer(rec *weft.Reconciler, hub *Hub, gatherer prometheus.Gatherer, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{rec: rec, hub: hub, gatherer: gatherer, log: log}

	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealthz)
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/contexts", s.handleContexts)
	r.Get("/contexts/{key}", s.handleContext)
	if hub != nil {
		r.Get("/inspect", hub.HandleWebSocket)
	}
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

func (s *Server) handleContexts(w http.ResponseWriter, _ *http.Request) {
	type contextInfo struct {
		Key     string `json:"key"`
		Records int    `json:"records"`
	}
	keys := s.rec.Contexts()
	out := make([]contextInfo, 0, len(keys))
	for _, key := range keys {
		info := contextInfo{Key: key}
		if m, ok := s.rec.ContextRecords(key); ok {
			info.Records = len(m)
		}
		out = append(out, info)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	m, ok := s.rec.ContextRecords(key)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown context"})
		return
	}

	type recordInfo struct {
		Identity string            `json:"identity"`
		Record   *reconcile.Record `json:"record"`
	}
	out := make([]recordInfo, 0, len(m))
	for ident, rec := range m {
		out = append(out, recordInfo{Identity: ident.String(), Record: rec})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"context": key,
		"records": out,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("writing diagnostics response", "error", err)
	}
}
