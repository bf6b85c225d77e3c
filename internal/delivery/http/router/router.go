package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/campus-assistant/internal/delivery/http/handler"
	"github.com/user/campus-assistant/internal/delivery/http/middleware"
	"go.uber.org/zap"
)

func New(h *handler.Handler, logger *zap.Logger, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	if requestTimeout > 0 {
		r.Use(chimw.Timeout(requestTimeout))
	}

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.NoCache)

		r.Get("/health", h.HandleHealthCheck)

		r.Post("/update-dashboard", h.HandleUpdateDashboard)
		r.Get("/dashboard-data", h.HandleGetDashboard)

		r.Post("/chat", h.HandleChat)
		r.Get("/chat/history/{userID}", h.HandleGetHistory)
		r.Delete("/chat/history/{userID}", h.HandleClearHistory)
		r.Post("/rate", h.HandleRate)
	})

	return r
}
