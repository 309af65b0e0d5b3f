package routes

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/arepera-backend/api/controllers"
	"github.com/angelmondragon/arepera-backend/api/middleware"
	"github.com/angelmondragon/arepera-backend/internal/auth"
	"github.com/angelmondragon/arepera-backend/internal/cart"
	"github.com/angelmondragon/arepera-backend/internal/checkout"
	"github.com/angelmondragon/arepera-backend/internal/coupons"
	"github.com/angelmondragon/arepera-backend/internal/media"
	"github.com/angelmondragon/arepera-backend/internal/orders"
	"github.com/angelmondragon/arepera-backend/internal/products"
	"github.com/angelmondragon/arepera-backend/internal/users"
	pkgAuth "github.com/angelmondragon/arepera-backend/pkg/auth"
	"github.com/angelmondragon/arepera-backend/pkg/auth/session"
	"github.com/angelmondragon/arepera-backend/pkg/config"
	"github.com/angelmondragon/arepera-backend/pkg/db/models"
	"github.com/angelmondragon/arepera-backend/pkg/logger"
	"github.com/angelmondragon/arepera-backend/pkg/metrics"
)

// RedisStore is the redis surface shared by rate limiting and idempotency.
type RedisStore interface {
	controllers.Pinger
	Get(context.Context, string) (string, error)
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(parts ...string) string
}

// Profiles resolves callers for the auth middleware and serves /auth/me.
type Profiles interface {
	LoadCaller(ctx context.Context, id uuid.UUID) (pkgAuth.Caller, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       RedisStore
	Sessions    session.AccessSessionChecker
	Profiles    Profiles
	Registry    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
	UploadDir   string

	Auth     auth.Service
	Register auth.RegisterService
	Products products.Service
	Cart     cart.Service
	Checkout checkout.Service
	Orders   orders.Service
	Coupons  coupons.Service
	Users    users.Service
	Media    media.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, d.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
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
	requireAuth := middleware.Auth(cfg.JWT, d.Sessions, d.Profiles, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readinessDeps(d)))
	})

	if d.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	if dir := strings.TrimSpace(d.UploadDir); dir != "" {
		prefix := strings.TrimRight(cfg.Storage.PublicPrefix, "/")
		if prefix == "" {
			prefix = "/uploads"
		}
		r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(dir))))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, d.Redis, logg), middleware.Idempotency(d.Redis, logg)).
			Post("/register", controllers.AuthRegister(d.Register, logg))
		r.With(requireAuth).Post("/logout", controllers.AuthLogout(d.Auth, logg))
		r.With(requireAuth).Get("/me", controllers.AuthMe(d.Profiles, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductsList(d.Products, logg))
		r.Get("/categories", controllers.ProductCategories(d.Products, logg))
		r.Get("/{productId}", controllers.ProductGet(d.Products, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireApproved(logg))
		r.Use(middleware.Idempotency(d.Redis, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(d.Cart, logg))
			r.Delete("/", controllers.CartClear(d.Cart, logg))
			r.Post("/items", controllers.CartAddItem(d.Cart, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateItem(d.Cart, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(d.Cart, logg))
			r.Post("/coupon", controllers.CartApplyCoupon(d.Cart, logg))
			r.Get("/coupons", controllers.CartCoupons(d.Cart, logg))
		})

		r.Post("/checkout", controllers.CheckoutCreate(d.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(d.Orders, logg))
			r.Get("/{orderId}", controllers.OrderGet(d.Orders, logg))
			r.Post("/{orderId}/complete", controllers.OrderComplete(d.Checkout, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireAdmin(logg))
		r.Use(middleware.Idempotency(d.Redis, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.AdminProductsList(d.Products, logg))
			r.Post("/", controllers.AdminProductCreate(d.Products, logg))
			r.Put("/{productId}", controllers.AdminProductUpdate(d.Products, logg))
			r.Delete("/{productId}", controllers.AdminProductDelete(d.Products, logg))
			r.Post("/{productId}/toggle", controllers.AdminProductToggle(d.Products, logg))
		})
		r.Route("/coupons", func(r chi.Router) {
			r.Get("/", controllers.AdminCouponsList(d.Coupons, logg))
			r.Post("/", controllers.AdminCouponCreate(d.Coupons, logg))
			r.Post("/{couponId}/toggle", controllers.AdminCouponToggle(d.Coupons, logg))
			r.Delete("/{couponId}", controllers.AdminCouponDelete(d.Coupons, logg))
		})
		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.AdminUsersList(d.Users, logg))
			r.Post("/{userId}/approve", controllers.AdminUserApprove(d.Users, logg))
			r.Post("/{userId}/reject", controllers.AdminUserReject(d.Users, logg))
			r.Put("/{userId}/role", controllers.AdminUserRole(d.Users, logg))
		})
		r.Post("/media", controllers.AdminMediaUpload(d.Media, logg))
	})

	return r
}

func readinessDeps(d Deps) map[string]controllers.Pinger {
	deps := map[string]controllers.Pinger{}
	if d.DB != nil {
		deps["postgres"] = d.DB
	}
	if d.Redis != nil {
		deps["redis"] = d.Redis
	}
	return deps
}
