package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/fisly/internal/http/analytics"
	"github.com/MrJamesThe3rd/fisly/internal/http/importcsv"
	"github.com/MrJamesThe3rd/fisly/internal/http/merchant"
	"github.com/MrJamesThe3rd/fisly/internal/http/product"
	"github.com/MrJamesThe3rd/fisly/internal/http/receipt"
	"github.com/MrJamesThe3rd/fisly/internal/http/taxonomy"
)

type Options struct {
	AllowedOrigins []string
	Timeout        time.Duration

	// Metrics is served on /metrics when set.
	Metrics http.Handler
}

func New(
	receiptsV1 *receipt.Handler,
	merchantsV1 *merchant.Handler,
	productsV1 *product.Handler,
	analyticsV1 *analytics.Handler,
	importV1 *importcsv.Handler,
	taxonomyV1 *taxonomy.Handler,
	opts Options,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if opts.Timeout > 0 {
		router.Use(middleware.Timeout(opts.Timeout))
	}

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/receipts", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json", "text/plain"))
			receiptsV1.Routes(r)
		})

		r.Route("/merchants", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			merchantsV1.Routes(r)
		})

		r.Route("/products", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			productsV1.Routes(r)
		})

		r.Route("/analytics", analyticsV1.Routes)

		r.Route("/import", importV1.Routes)

		r.Route("/taxonomy", taxonomyV1.Routes)
	})

	return router
}
