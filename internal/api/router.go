package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

// NewRouter builds and returns the Chi router with all routes configured.
// Requests are rate limited per IP when requestsPerMinute is positive.
// A nil metrics handler leaves /metrics unmounted.
func NewRouter(handlers *Handlers, db dbPinger, metrics http.Handler, requestsPerMinute int, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	if requestsPerMinute > 0 {
		r.Use(httprate.LimitByIP(requestsPerMinute, time.Minute))
	}

	r.Get("/", handlers.Index)
	r.Post("/new", handlers.CreateRecord)
	r.Put("/update", handlers.UpdateRecord)
	r.Get("/topNcities", handlers.TopCities)
	r.Get("/topNcities/", handlers.TopCities)

	r.Get("/health", HealthHandlerFunc(db, log))
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	return r
}
