// Package server exposes the dashboard over HTTP: the rendered page, a JSON
// snapshot, a WebSocket live feed and a health check.
package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rickgao/orders-dashboard/internal/aggregate"
	"github.com/rickgao/orders-dashboard/internal/logging"
	"github.com/rickgao/orders-dashboard/internal/model"
	"github.com/rickgao/orders-dashboard/internal/poller"
	"github.com/rickgao/orders-dashboard/internal/state"
	"github.com/rickgao/orders-dashboard/internal/view"
)

// StatsSource reports poll counters. *poller.Poller implements it.
type StatsSource interface {
	Stats() poller.Stats
}

// Options configures a Server.
type Options struct {
	AllowedOrigins []string    // CORS and WebSocket origins; empty = any for CORS, same host for WebSocket
	Stats          StatsSource // Optional, adds counters to /health
	Logger         *slog.Logger
}

// Server serves the dashboard from a state cell.
type Server struct {
	cell    *state.Cell
	stats   StatsSource
	origins []string
	logger  *slog.Logger
	router  chi.Router
}

// New creates a server reading from cell.
func New(cell *state.Cell, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cell:    cell,
		stats:   opts.Stats,
		origins: opts.AllowedOrigins,
		logger:  logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	corsOrigins := s.origins
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(logging.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept"},
		MaxAge:         300,
	}))

	r.Get("/", s.handlePage)
	r.Get("/api/snapshot", s.handleSnapshot)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/health", s.handleHealth)

	return r
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := view.Render(&buf, view.Build(s.cell.Get())); err != nil {
		s.logger.Error("render page failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newSnapshotResponse(s.cell.Get()), s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.cell.Get()

	health := healthResponse{
		Status:     "ok",
		LastUpdate: "never",
	}
	if snap.IsZero() {
		health.Status = "degraded"
	} else {
		health.SnapshotID = snap.ID.String()
		health.Items = len(snap.Items)
		health.LastUpdate = humanize.Time(snap.FetchedAt)
	}
	if s.stats != nil {
		st := s.stats.Stats()
		health.Polls = &st.Polls
		health.Failures = &st.Failures
	}

	writeJSON(w, http.StatusOK, health, s.logger)
}

type healthResponse struct {
	Status     string `json:"status"`
	SnapshotID string `json:"snapshot_id,omitempty"`
	Items      int    `json:"items"`
	LastUpdate string `json:"last_update"`
	Polls      *int64 `json:"polls,omitempty"`
	Failures   *int64 `json:"failures,omitempty"`
}

// snapshotResponse is the JSON form of a snapshot shared by /api/snapshot and /ws.
type snapshotResponse struct {
	ID        string            `json:"id"`
	FetchedAt *time.Time        `json:"fetched_at"`
	Total     number            `json:"total"`
	AxisMax   number            `json:"axis_max"`
	Items     []model.OrderItem `json:"items"`
}

func newSnapshotResponse(snap model.Snapshot) snapshotResponse {
	resp := snapshotResponse{
		Total:   number(aggregate.Total(snap.Items)),
		AxisMax: number(aggregate.MaxCostUSD(snap.Items)),
		Items:   snap.Items,
	}
	if resp.Items == nil {
		resp.Items = []model.OrderItem{}
	}
	if !snap.IsZero() {
		resp.ID = snap.ID.String()
		fetched := snap.FetchedAt
		resp.FetchedAt = &fetched
	}
	return resp
}

// number encodes finite values as JSON numbers and NaN/Inf as strings.
type number float64

func (n number) MarshalJSON() ([]byte, error) {
	v := float64(n)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return json.Marshal(view.FormatNumber(v))
	}
	return []byte(view.FormatNumber(v)), nil
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response failed", "error", err)
	}
}
