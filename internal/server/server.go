// Package server exposes the read-only HTTP surface of the daemon:
// health, a JSON status report and prometheus metrics. It never mutates
// the snapshot store.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raoulx24/zfs-autosnapd/internal/metrics"
	"github.com/raoulx24/zfs-autosnapd/internal/zfs"
)

type Server struct {
	store   zfs.Store
	log     *slog.Logger
	version string
	now     func() time.Time
	router  chi.Router
}

// New builds the handler around a store.
func New(store zfs.Store, log *slog.Logger, version string) *Server {
	s := &Server{
		store:   store,
		log:     log.With("component", "http"),
		version: version,
		now:     time.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

// DatasetStatus is one dataset in the /status response.
type DatasetStatus struct {
	Name             string   `json:"name"`
	Policy           string   `json:"policy"`
	Snapshots        int      `json:"snapshots"`
	NextSnapshotIn   string   `json:"nextSnapshotIn"` // duration or "never"
	PendingDeletions []string `json:"pendingDeletions"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.store.Datasets(r.Context())
	if err != nil {
		s.log.Error("status: listing datasets failed", "error", err)
		http.Error(w, "listing datasets failed", http.StatusBadGateway)
		return
	}

	now := s.now()
	statuses := make([]DatasetStatus, 0, len(datasets))
	for _, ds := range datasets {
		st := DatasetStatus{
			Name:             ds.Name,
			Policy:           ds.Policy.String(),
			Snapshots:        len(ds.Snapshots),
			NextSnapshotIn:   "never",
			PendingDeletions: []string{},
		}
		if due, ok := ds.Policy.NextSnapshotDue(ds.Snapshots, now); ok {
			st.NextSnapshotIn = due.Truncate(time.Second).String()
		}
		for _, snap := range ds.Policy.Judge(ds.Snapshots).Rejected {
			st.PendingDeletions = append(st.PendingDeletions, snap.Name)
		}
		statuses = append(statuses, st)
	}
	writeJSON(w, http.StatusOK, statuses)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
