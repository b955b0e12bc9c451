package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/printforge/printforge-backend/api/controllers"
	"github.com/printforge/printforge-backend/api/middleware"
	cartsvc "github.com/printforge/printforge-backend/internal/cart"
	checkoutsvc "github.com/printforge/printforge-backend/internal/checkout"
	ordersvc "github.com/printforge/printforge-backend/internal/orders"
	refundsvc "github.com/printforge/printforge-backend/internal/refunds"
	"github.com/printforge/printforge-backend/pkg/config"
	"github.com/printforge/printforge-backend/pkg/db"
	"github.com/printforge/printforge-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	gatherer prometheus.Gatherer,
	cartService cartsvc.Service,
	checkoutService checkoutsvc.Service,
	ordersService ordersvc.Service,
	refundService refundsvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartList(cartService, logg))
			r.Post("/items", controllers.CartAddCatalogItem(cartService, logg))
			r.Post("/custom-items", controllers.CartAddCustomItem(cartService, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateQuantity(cartService, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(cartService, logg))
		})

		r.Post("/checkout", controllers.Checkout(checkoutService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderFetch(ordersService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Identity(logg))
		r.Use(middleware.RequireRole(middleware.RoleAdmin, logg))

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderFetch(ordersService, logg))
			r.Post("/status", controllers.AdminOrderTransition(ordersService, logg))
			r.Post("/refund", controllers.AdminOrderRefund(refundService, logg))
		})
	})

	return r
}
