// Package handler implements the REST surface: routing, request decoding,
// authentication middleware, and mapping of domain results and errors onto
// the wire format.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shopworks/storefront/internal/domain/auth"
	"github.com/shopworks/storefront/internal/domain/order"
	"github.com/shopworks/storefront/internal/domain/product"
	"github.com/shopworks/storefront/internal/domain/report"
	"github.com/shopworks/storefront/internal/domain/user"
	"github.com/shopworks/storefront/pkg/cache"
)

// reportCacheTTL bounds how stale the admin dashboards may get; order
// placement does not invalidate them.
const reportCacheTTL = 2 * time.Minute

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// CookieSecure marks the auth cookie Secure; enable everywhere except
	// plain-HTTP local development.
	CookieSecure bool
}

// Handler wires the domain services to HTTP routes.
type Handler struct {
	cfg      Config
	users    *user.Service
	tokens   *auth.Tokens
	products product.Repository
	catalog  *product.Service
	orders   *order.Service
	reports  report.Repository
	cache    *cache.Cache
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	users *user.Service,
	tokens *auth.Tokens,
	products product.Repository,
	catalog *product.Service,
	orders *order.Service,
	reports report.Repository,
) *Handler {
	return &Handler{
		cfg:      cfg,
		users:    users,
		tokens:   tokens,
		products: products,
		catalog:  catalog,
		orders:   orders,
		reports:  reports,
		cache:    cache.New(reportCacheTTL),
	}
}

// Routes returns the API router mounted under /api by the caller.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.With(h.Authenticate).Get("/profile", h.Profile)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/{id}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate, h.RequireAdmin)
			r.Post("/", h.CreateProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(h.Authenticate)
		r.Post("/", h.PlaceOrder)
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)
		r.Patch("/{id}/cancel", h.CancelOrder)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(h.Authenticate, h.RequireAdmin)
		r.Get("/analytics", h.Analytics)
		r.Get("/products/low-stock", h.LowStockProducts)
		r.Get("/products/top-selling", h.TopSellingProducts)
		r.Get("/orders/recent", h.RecentOrders)
	})

	return r
}
