package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rl1809/locofly/internal/logger"
)

type RouterConfig struct {
	CORS        CORSConfig
	MaxBodySize int64
}

// NewRouter mounts the inventory API and its middleware chain.
func NewRouter(h *HTTPHandler, log *zap.Logger, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// /locations/ -> /locations
	r.Use(chimiddleware.StripSlashes)
	r.Use(RequestID(log))
	r.Use(logger.HTTPMiddleware(log))
	r.Use(logger.Recovery(log))
	r.Use(CORS(cfg.CORS))
	r.Use(BodyLimit(cfg.MaxBodySize))

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	r.Post("/locations", h.handle(h.CreateLocation))
	r.Get("/locations", h.handle(h.ListLocations))

	r.Post("/items", h.handle(h.AddItem))
	r.Put("/items/{id}", h.handle(h.EditItem))

	r.Get("/inventory", h.handle(h.ListLocationItems))
	r.Post("/inventory/adjust", h.handle(h.Adjust))

	r.Get("/search", h.handle(h.Search))

	return r
}
