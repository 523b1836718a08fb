package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prostorehq/prostore-backend/api/controllers"
	"github.com/prostorehq/prostore-backend/api/middleware"
	cartsvc "github.com/prostorehq/prostore-backend/internal/cart"
	productsvc "github.com/prostorehq/prostore-backend/internal/products"
	usersvc "github.com/prostorehq/prostore-backend/internal/users"
	"github.com/prostorehq/prostore-backend/pkg/config"
	"github.com/prostorehq/prostore-backend/pkg/db"
	"github.com/prostorehq/prostore-backend/pkg/logger"
	"github.com/prostorehq/prostore-backend/pkg/metrics"
	"github.com/prostorehq/prostore-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       *redis.Client
	Products    productsvc.Service
	Carts       cartsvc.Service
	Users       usersvc.Service
	HTTPMetrics *metrics.HTTPMetrics
	Registry    *prometheus.Registry
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.SessionCart(cfg.Cart, logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.Register(deps.Users, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.Login(deps.Users, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(deps.Products, logg))
		r.Get("/latest", controllers.ProductLatest(deps.Products, logg))
		r.Get("/featured", controllers.ProductFeatured(deps.Products, logg))
		r.Get("/categories", controllers.ProductCategories(deps.Products, logg))
		r.Get("/{slug}", controllers.ProductBySlug(deps.Products, logg))
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Get("/", controllers.CartFetch(deps.Carts, logg))
		r.Post("/items", controllers.CartAddItem(deps.Carts, logg))
		r.Delete("/items/{productId}", controllers.CartRemoveItem(deps.Carts, logg))
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Get("/me", controllers.Me(deps.Users, logg))
	})

	r.Route("/api/admin/v1/products", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Post("/", controllers.AdminCreateProduct(deps.Products, logg))
		r.Patch("/{productId}", controllers.AdminUpdateProduct(deps.Products, logg))
		r.Delete("/{productId}", controllers.AdminDeleteProduct(deps.Products, logg))
	})

	return r
}
