package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/bnpl/internal/http/creditline"
	"github.com/MrJamesThe3rd/bnpl/internal/http/settlement"
	"github.com/MrJamesThe3rd/bnpl/internal/http/sweep"
)

type Options struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

func New(
	opts Options,
	creditLinesV1 *creditline.Handler,
	settlementsV1 *settlement.Handler,
	sweepsV1 *sweep.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	if len(opts.AllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}

	if opts.RequestTimeout > 0 {
		router.Use(middleware.Timeout(opts.RequestTimeout))
	}

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/credit-lines", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			creditLinesV1.Routes(r)
		})

		r.Route("/settlements", settlementsV1.Routes)

		r.Route("/sweeps", sweepsV1.Routes)
	})

	return router
}
