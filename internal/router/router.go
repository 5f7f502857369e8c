package router

import (
	"net/http"

	"storefront/internal/handler"
	"storefront/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Products *handler.ProductHandler
	Cart     *handler.CartHandler
	Orders   *handler.OrderHandler
	Admin    *handler.AdminHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, apiKey string, gatherer prometheus.Gatherer, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware order: Recovery -> Logging -> RequestID -> CORS, then per-group Session and AdminAuth.
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.Products.List)
		r.Get("/products/{id}", h.Products.Get)
		r.Get("/categories", h.Products.Categories)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(true))

			r.Get("/cart", h.Cart.View)
			r.Delete("/cart", h.Cart.Clear)
			r.Post("/cart/items", h.Cart.AddItem)
			r.Put("/cart/items", h.Cart.UpdateItem)
			r.Delete("/cart/items", h.Cart.RemoveItem)
			r.Post("/checkout", h.Cart.Checkout)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(false))

			r.Get("/orders", h.Orders.List)
			r.Get("/orders/stats", h.Orders.Stats)
			r.Get("/orders/{id}", h.Orders.Get)
			r.Post("/orders/{id}/cancel", h.Orders.Cancel)
			r.Delete("/orders/{id}", h.Orders.Delete)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminAuth(apiKey, logger))

			r.Get("/summary", h.Admin.Summary)

			r.Get("/products", h.Admin.ListProducts)
			r.Post("/products", h.Admin.CreateProduct)
			r.Put("/products/{id}", h.Admin.UpdateProduct)
			r.Delete("/products/{id}", h.Admin.DeleteProduct)

			r.Get("/users", h.Admin.ListUsers)
			r.Post("/users", h.Admin.CreateUser)
			r.Put("/users/{id}", h.Admin.UpdateUser)
			r.Delete("/users/{id}", h.Admin.DeleteUser)

			r.Get("/orders", h.Admin.ListOrders)
			r.Post("/orders/export", h.Admin.ExportOrders)
			r.Post("/orders/restore", h.Admin.RestoreOrders)
			r.Put("/orders/{id}/status", h.Admin.UpdateOrderStatus)
			r.Delete("/orders/{id}", h.Admin.DeleteOrder)
		})
	})

	return r
}
