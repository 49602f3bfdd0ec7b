package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	fiscalapp "github.com/nfe-engine/backend/internal/application/fiscal"
	identityapp "github.com/nfe-engine/backend/internal/application/identity"
	"github.com/nfe-engine/backend/internal/domain/authz"
	"github.com/nfe-engine/backend/internal/domain/document"
	"github.com/nfe-engine/backend/internal/infrastructure/cache"
	"github.com/nfe-engine/backend/internal/infrastructure/config"
	"github.com/nfe-engine/backend/internal/infrastructure/logger"
	"github.com/nfe-engine/backend/internal/infrastructure/persistence"
	"github.com/nfe-engine/backend/internal/infrastructure/toolkit"
	"github.com/nfe-engine/backend/internal/infrastructure/webhook"
	"github.com/nfe-engine/backend/internal/interfaces/http/handler"
	"github.com/nfe-engine/backend/internal/interfaces/http/middleware"
	"github.com/nfe-engine/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting NFe Engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Int("ambiente", cfg.Fiscal.Ambiente),
	)

	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogLevel)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Repositories
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	issuerRepo := persistence.NewGormIssuerRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	usageRepo := persistence.NewGormUsageMeterRepository(db.DB)

	// Ownership guard: every issuer and invoice access resolves through
	// it before any data is touched
	guard := authz.NewGuard(authz.NewResolver(
		persistence.NewIssuerOwnerLookup(db.DB),
		persistence.NewInvoiceOwnerLookup(db.DB),
	), log)

	composer := document.NewComposer(cfg.Fiscal.Ambiente)

	// Signing and transmission gateway. Without toolkit credentials the
	// simulated gateway authorizes everything, which is what
	// homologation deployments want.
	var gateway fiscalapp.TransmissionGateway
	if cfg.Toolkit.Enabled {
		gateway, err = toolkit.NewHTTPGateway(&toolkit.Config{
			BaseURL: cfg.Toolkit.BaseURL,
			APIKey:  cfg.Toolkit.APIKey,
			Timeout: cfg.Toolkit.Timeout,
		})
		if err != nil {
			log.Fatal("Failed to configure toolkit gateway", zap.Error(err))
		}
		log.Info("Toolkit gateway configured", zap.String("base_url", cfg.Toolkit.BaseURL))
	} else {
		gateway = toolkit.NewSimulatedGateway()
		log.Info("Toolkit disabled, using simulated gateway")
	}

	// Idempotency store for emission replay detection
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
	idempotencyStore, err := storeFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Webhook notifier for lifecycle status changes
	var notifier fiscalapp.StatusNotifier = webhook.NopNotifier{}
	if cfg.Webhook.Enabled {
		notifier = webhook.NewNotifier(
			webhook.StaticEndpointResolver{URL: cfg.Webhook.URL},
			webhook.Config{
				Timeout:    cfg.Webhook.Timeout,
				MaxRetries: cfg.Webhook.MaxRetries,
			},
			log,
		)
		log.Info("Webhook notifications enabled", zap.String("url", cfg.Webhook.URL))
	}

	// Application services
	emissionService := fiscalapp.NewEmissionService(
		guard, issuerRepo, invoiceRepo, usageRepo, composer, idempotencyStore, notifier, log)
	lifecycleService := fiscalapp.NewLifecycleService(
		guard, invoiceRepo, issuerRepo, gateway, notifier, log)
	issuerService := fiscalapp.NewIssuerService(guard, issuerRepo, log)
	tenantService := identityapp.NewTenantService(tenantRepo, usageRepo, log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order: recovery first, then request ID and logging so
	// every request is traceable, body limit before parsing, API key
	// resolution before any guarded handler runs
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.APIKeyAuth(tenantService))
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig()))

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(handler.NewInvoiceHandler(emissionService, lifecycleService)).
		Register(handler.NewIssuerHandler(issuerService, lifecycleService)).
		Register(handler.NewTenantHandler(tenantService)).
		Register(handler.NewSystemHandler(db)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
