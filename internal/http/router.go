package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/docmatch/internal/http/auth"
	"github.com/MrJamesThe3rd/docmatch/internal/http/batch"
	"github.com/MrJamesThe3rd/docmatch/internal/http/document"
	"github.com/MrJamesThe3rd/docmatch/internal/http/health"
	"github.com/MrJamesThe3rd/docmatch/internal/http/httperr"
	"github.com/MrJamesThe3rd/docmatch/internal/http/matching"
	"github.com/MrJamesThe3rd/docmatch/internal/http/report"
)

type Options struct {
	AuthSecret     string
	AllowedOrigins []string
}

func New(
	opts Options,
	healthH *health.Handler,
	matchingV1 *matching.Handler,
	batchV1 *batch.Handler,
	documentsV1 *document.Handler,
	reportsV1 *report.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", matching.TraceHeader},
		MaxAge:         300,
	}))

	router.Route("/health", healthH.Routes)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(opts.AuthSecret))

		r.Route("/match", func(r chi.Router) {
			r.Use(httperr.RequireJSON)
			matchingV1.Routes(r)
		})

		r.Route("/batch", func(r chi.Router) {
			r.Use(httperr.RequireJSON)
			batchV1.Routes(r)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Route("/import", documentsV1.ImportRoutes)

			r.Group(func(r chi.Router) {
				r.Use(httperr.RequireJSON)
				documentsV1.Routes(r)
			})
		})

		r.Route("/reports", reportsV1.Routes)
	})

	return router
}
