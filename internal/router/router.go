package router

import (
	"net/http"

	"storefront/internal/handler"
	"storefront/internal/metrics"
	"storefront/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Products *handler.ProductHandler
	Orders   *handler.OrderHandler
	Returns  *handler.ReturnHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, m *metrics.Metrics, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Applied outermost first: Recovery -> Logging -> Metrics -> CORS
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Products.GetAll)
			r.Get("/{id}", h.Products.GetByID)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.Orders.Create)
			r.Get("/", h.Orders.List)
			r.Get("/{orderNumber}", h.Orders.Get)
			r.Put("/{orderNumber}/items", h.Orders.UpdateItems)
			r.Patch("/{orderNumber}/status", h.Orders.UpdateStatus)
			r.Get("/{orderNumber}/returns", h.Returns.ListByOrder)
		})

		r.Route("/returns", func(r chi.Router) {
			r.Post("/", h.Returns.Create)
			r.Get("/{rmaNumber}", h.Returns.Get)
			r.Patch("/{rmaNumber}", h.Returns.Update)
		})
	})

	return r
}
