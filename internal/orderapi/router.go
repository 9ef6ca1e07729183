// Package orderapi serves the order-items feed the dashboard polls.
package orderapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rickgao/orders-dashboard/internal/logging"
	"github.com/rickgao/orders-dashboard/internal/model"
)

// ItemsPath is the route of the order-items list.
const ItemsPath = "/api/order-items"

// Lister returns all order items ordered by id.
type Lister interface {
	List(ctx context.Context) ([]model.OrderItem, error)
}

// Pinger checks backing storage.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter builds the HTTP handler. origins configures CORS; empty allows any.
func NewRouter(items Lister, db Pinger, origins []string, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get(ItemsPath, listHandler(items, logger))
	r.Get("/health", healthHandler(db))

	return r
}

func listHandler(items Lister, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := items.List(r.Context())
		if err != nil {
			logger.Error("list order items failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []model.OrderItem{}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(list); err != nil {
			logger.Error("encode order items failed", "error", err)
		}
	}
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status   string `json:"status"`
			Database string `json:"database"`
			Error    string `json:"error,omitempty"`
		}{
			Status:   "healthy",
			Database: "connected",
		}

		if err := db.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Database = "disconnected"
			health.Error = err.Error()
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	}
}
