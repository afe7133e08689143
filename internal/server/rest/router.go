package rest

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/diagnexus/internal/server/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const requestTimeout = 60 * time.Second

// NewRouter builds the HTTP routes. Everything except login, liveness,
// database health and metrics requires a bearer token.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(h.logger))
	r.Use(instrument)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", h.health)
		api.Get("/health/database", h.healthDatabase)
		api.Post("/auth/login", h.login)

		api.Group(func(p chi.Router) {
			p.Use(h.authenticate)

			p.Get("/reports", h.listReports)
			p.Post("/reports/upload", h.uploadReport)
			p.Get("/reports/{id}/download", h.downloadReport)
			p.Get("/reports/{id}/link", h.reportLink)

			p.Group(func(admin chi.Router) {
				admin.Use(requireRole(models.RoleAdmin))

				admin.Delete("/reports/{id}", h.deleteReport)
				admin.Get("/health/storage", h.healthStorage)
				admin.Get("/storage/objects", h.listObjects)

				admin.Get("/users", h.listUsers)
				admin.Post("/users", h.createUser)
				admin.Put("/users/{id}", h.updateUser)
				admin.Delete("/users/{id}", h.deleteUser)
			})
		})
	})

	return r
}
