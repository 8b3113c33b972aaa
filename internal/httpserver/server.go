// Package httpserver exposes the console state over a loopback JSON API.
package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/retail-console/internal/app"
	"finitefield.org/retail-console/internal/platform/observability"
	"finitefield.org/retail-console/internal/rbac"
)

const defaultTimeout = 60 * time.Second

// Config holds runtime options for the console server.
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Logger       *zap.Logger
}

// New constructs the HTTP server around state.
func New(cfg Config, state *app.State) *http.Server {
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      NewRouter(state, cfg.Logger),
		ReadTimeout:  orDefault(cfg.ReadTimeout, 15*time.Second),
		WriteTimeout: orDefault(cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  orDefault(cfg.IdleTimeout, 120*time.Second),
	}
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// NewRouter builds the chi router with the shared middleware stack.
func NewRouter(state *app.State, logger *zap.Logger) chi.Router {
	h := &handlers{state: state}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(observability.InjectLoggerMiddleware(observability.OrNop(logger).Named("http")))
	r.Use(observability.RequestLoggerMiddleware())
	r.Use(observability.RecoveryMiddleware())
	r.Use(chimw.Timeout(defaultTimeout))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeAPIError(req.Context(), w, apiError{Code: "route_not_found", Message: fmt.Sprintf("no route for %s", req.URL.Path), Status: http.StatusNotFound})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeAPIError(req.Context(), w, apiError{Code: "method_not_allowed", Message: fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), Status: http.StatusMethodNotAllowed})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/view", h.view)
		api.Post("/navigate", h.navigate)

		api.Route("/session", func(s chi.Router) {
			s.Get("/", h.identity)
			s.Post("/login", h.login)
			s.Post("/register", h.register)
			s.Post("/logout", h.logout)
			s.Post("/show-login", h.showLogin)
		})

		api.Route("/store", func(s chi.Router) {
			s.Use(requireCapability(state, rbac.CapStorefrontBrowse))
			s.Get("/products", h.storefront)
			s.Get("/categories", h.categories)
		})

		api.Route("/cart", func(c chi.Router) {
			c.Use(requireCapability(state, rbac.CapCart))
			c.Get("/", h.cart)
			c.Post("/items", h.addToCart)
			c.Put("/items/{id}", h.setCartQuantity)
			c.Delete("/items/{id}", h.removeFromCart)
			c.Post("/open", h.openCart)
			c.Post("/close", h.closeCart)
		})

		api.Route("/checkout", func(c chi.Router) {
			c.Put("/address", h.setAddress)
			c.Post("/", h.submitOrder)
		})

		api.Route("/admin", func(a chi.Router) {
			a.With(requireCapability(state, rbac.CapDashboardView)).Post("/dashboard/refresh", h.refreshDashboard)

			a.Group(func(g chi.Router) {
				g.Use(requireCapability(state, rbac.CapProductsManage))
				g.Get("/products", h.products)
				g.Post("/products", h.createProduct)
				g.Delete("/products/{id}", h.deleteProduct)
			})
			a.Group(func(g chi.Router) {
				g.Use(requireCapability(state, rbac.CapInventoryManage))
				g.Get("/inventory", h.inventory)
				g.Put("/inventory/{id}", h.updateStock)
			})
			a.With(requireCapability(state, rbac.CapOrdersList)).Get("/orders", h.orders)
			a.Group(func(g chi.Router) {
				g.Use(requireCapability(state, rbac.CapPriceHistoryView))
				g.Get("/price-history", h.priceHistory)
				g.Get("/price-history/{id}/chart", h.priceChart)
			})
			a.Group(func(g chi.Router) {
				g.Use(requireCapability(state, rbac.CapUsersManage))
				g.Get("/users", h.users)
				g.Delete("/users/{id}", h.deleteUser)
			})
			a.Group(func(g chi.Router) {
				g.Use(requireCapability(state, rbac.CapSuppliersManage))
				g.Get("/suppliers", h.suppliers)
				g.Post("/suppliers", h.createSupplier)
				g.Put("/suppliers/{id}", h.updateSupplier)
				g.Delete("/suppliers/{id}", h.deleteSupplier)
			})
			a.With(requireCapability(state, rbac.CapCampaignsApply)).Post("/campaigns", h.applyCampaign)
		})
	})

	return r
}

// CapabilityChecker reports whether the current session grants a capability.
type CapabilityChecker interface {
	Can(capability rbac.Capability) bool
}

// requireCapability aborts with 403 when the signed-in role lacks capability.
func requireCapability(checker CapabilityChecker, capability rbac.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !checker.Can(capability) {
				writeAPIError(r.Context(), w, apiError{Code: "forbidden", Message: http.StatusText(http.StatusForbidden), Status: http.StatusForbidden})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
