package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/arepera-backend/api/routes"
	"github.com/angelmondragon/arepera-backend/internal/auth"
	"github.com/angelmondragon/arepera-backend/internal/cart"
	"github.com/angelmondragon/arepera-backend/internal/checkout"
	"github.com/angelmondragon/arepera-backend/internal/coupons"
	"github.com/angelmondragon/arepera-backend/internal/media"
	"github.com/angelmondragon/arepera-backend/internal/orders"
	"github.com/angelmondragon/arepera-backend/internal/payments"
	"github.com/angelmondragon/arepera-backend/internal/pricing"
	"github.com/angelmondragon/arepera-backend/internal/products"
	"github.com/angelmondragon/arepera-backend/internal/users"
	"github.com/angelmondragon/arepera-backend/pkg/auth/session"
	"github.com/angelmondragon/arepera-backend/pkg/config"
	"github.com/angelmondragon/arepera-backend/pkg/db"
	"github.com/angelmondragon/arepera-backend/pkg/instance"
	"github.com/angelmondragon/arepera-backend/pkg/logger"
	"github.com/angelmondragon/arepera-backend/pkg/metrics"
	"github.com/angelmondragon/arepera-backend/pkg/migrate"
	"github.com/angelmondragon/arepera-backend/pkg/outbox"
	"github.com/angelmondragon/arepera-backend/pkg/redis"
	"github.com/angelmondragon/arepera-backend/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps, err := buildServices(cfg, logg, dbClient, sessionManager, registry)
	if err != nil {
		logg.Error(ctx, "failed to wire services", err)
		os.Exit(1)
	}
	deps.Config = cfg
	deps.Logger = logg
	deps.DB = dbClient
	deps.Redis = redisClient
	deps.Sessions = sessionManager
	deps.Registry = registry
	deps.HTTPMetrics = metrics.NewHTTPMetrics(registry)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID("api"),
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "graceful shutdown failed", err)
		}
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, sessions *session.Manager, registry prometheus.Registerer) (routes.Deps, error) {
	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	userRepo := users.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	couponRepo := coupons.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)

	calc, err := pricing.NewCalculator(cfg.Checkout.TaxRate)
	if err != nil {
		return routes.Deps{}, err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return routes.Deps{}, err
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		Outbox:         emitter,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Deps{}, err
	}

	productService, err := products.NewService(dbClient, productRepo)
	if err != nil {
		return routes.Deps{}, err
	}
	couponService, err := coupons.NewService(dbClient, couponRepo)
	if err != nil {
		return routes.Deps{}, err
	}
	cartService, err := cart.NewService(dbClient, cartRepo, productRepo, couponService, calc)
	if err != nil {
		return routes.Deps{}, err
	}
	checkoutService, err := checkout.NewService(checkout.Params{
		Tx:       dbClient,
		Carts:    cartRepo,
		Products: productRepo,
		Orders:   orderRepo,
		Coupons:  couponService,
		Gateway:  payments.NewSimulator(cfg.Checkout.GatewayDelay, logg),
		Outbox:   emitter,
		Pricing:  calc,
		Metrics:  metrics.NewCheckoutMetrics(registry),
		Logger:   logg,
		Currency: cfg.Checkout.Currency,
	})
	if err != nil {
		return routes.Deps{}, err
	}
	orderService, err := orders.NewService(orderRepo)
	if err != nil {
		return routes.Deps{}, err
	}
	userService, err := users.NewService(dbClient, userRepo, emitter)
	if err != nil {
		return routes.Deps{}, err
	}

	uploads, err := storage.NewLocalStorage(cfg.Storage.UploadDir, cfg.Storage.PublicPrefix)
	if err != nil {
		return routes.Deps{}, err
	}
	mediaService, err := media.NewService(uploads, cfg.Storage.MaxUploadSize)
	if err != nil {
		return routes.Deps{}, err
	}

	return routes.Deps{
		Profiles:  userRepo,
		UploadDir: uploads.BasePath(),
		Auth:      authService,
		Register:  registerService,
		Products:  productService,
		Cart:      cartService,
		Checkout:  checkoutService,
		Orders:    orderService,
		Coupons:   couponService,
		Users:     userService,
		Media:     mediaService,
	}, nil
}
