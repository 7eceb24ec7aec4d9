package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prisken/client-crm-sub000/internal/planner"
)

func NewRouter(svc *planner.Service, refresher *planner.Refresher, adminToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(120))

	queue := NewQueueHandler(svc)
	tasks := NewTasksHandler(svc)
	targets := NewTargetsHandler(svc)
	admin := NewAdminHandler(refresher)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AgentIDMiddleware)

		r.Get("/queue", queue.Get)
		r.Post("/queue/what-if", queue.WhatIf)
		r.Get("/queue/metrics", queue.Metrics)

		r.Post("/tasks", tasks.Create)
		r.Get("/tasks", tasks.List)
		r.Get("/tasks/{id}", tasks.Get)
		r.Patch("/tasks/{id}", tasks.Update)
		r.Post("/tasks/{id}/complete", tasks.Complete)

		r.Get("/targets/{month}", targets.Get)
		r.Put("/targets/{month}", targets.Put)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(adminToken))
			r.Post("/admin/refresh", admin.Refresh)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
