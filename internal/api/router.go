package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Cheertaboi/farmshop-subscription-service/internal/api/handlers"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/api/middleware"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/cache"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/metrics"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/pricing"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/service"
)

// Deps are the services behind the HTTP surface.
type Deps struct {
	Subscriptions *service.SubscriptionService
	Deliveries    *service.DeliveryService
	Sweeper       *service.Sweeper
	Catalog       *cache.CatalogCache
	Pricing       *pricing.Calculator
	Metrics       *metrics.Collector
	Logger        *slog.Logger
}

// NewRouter builds the HTTP router for the subscription service
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(chimw.Recoverer)

	basketHandler := handlers.NewBasketHandler(d.Catalog, d.Pricing, d.Logger)
	subscriptionHandler := handlers.NewSubscriptionHandler(d.Subscriptions, d.Deliveries, d.Catalog, d.Logger)
	deliveryHandler := handlers.NewDeliveryHandler(d.Deliveries, d.Sweeper, d.Logger)
	catalogHandler := handlers.NewCatalogHandler(d.Catalog, d.Logger)

	r.Route("/baskets", func(r chi.Router) {
		r.Post("/increment", basketHandler.Increment)
		r.Post("/decrement", basketHandler.Decrement)
		r.Post("/quote", basketHandler.Quote)
	})

	r.Route("/subscriptions", func(r chi.Router) {
		r.Post("/", subscriptionHandler.Create)
		r.Get("/due", subscriptionHandler.ListDue)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", subscriptionHandler.Get)
			r.Post("/pause", subscriptionHandler.Pause)
			r.Post("/resume", subscriptionHandler.Resume)
			r.Post("/cancel", subscriptionHandler.Cancel)
			r.Post("/deliveries", subscriptionHandler.Materialize)
			r.Get("/deliveries", subscriptionHandler.ListDeliveries)
		})
	})

	r.Route("/deliveries/{id}", func(r chi.Router) {
		r.Get("/", deliveryHandler.Get)
		r.Post("/fulfill", deliveryHandler.Fulfill)
		r.Post("/skip", deliveryHandler.Skip)
	})

	// Admin endpoints
	r.Route("/admin", func(r chi.Router) {
		r.Post("/sweeps", deliveryHandler.Sweep)
		r.Post("/catalog/invalidate", catalogHandler.Invalidate)
	})

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	return r
}
