package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/swiftdrop/delivery-dispatch/internal/api/handlers"
	"github.com/swiftdrop/delivery-dispatch/internal/api/routes"
	"github.com/swiftdrop/delivery-dispatch/internal/config"
	"github.com/swiftdrop/delivery-dispatch/internal/dispatch"
	"github.com/swiftdrop/delivery-dispatch/internal/service/authz"
	"github.com/swiftdrop/delivery-dispatch/internal/service/candidates"
	"github.com/swiftdrop/delivery-dispatch/internal/storage/locationcache"
	"github.com/swiftdrop/delivery-dispatch/internal/storage/postgres"
	"github.com/swiftdrop/delivery-dispatch/pkg/cache"
	"github.com/swiftdrop/delivery-dispatch/pkg/database"
	"github.com/swiftdrop/delivery-dispatch/pkg/logger"
	"github.com/swiftdrop/delivery-dispatch/pkg/metrics"
	"github.com/swiftdrop/delivery-dispatch/pkg/monitoring"
	"github.com/swiftdrop/delivery-dispatch/pkg/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLogger.Sync()

	appLogger.Info("starting SwiftDrop dispatch service",
		logger.String("env", cfg.Server.Env),
		logger.String("port", cfg.Server.Port),
	)

	nrApp, err := monitoring.New(monitoring.Config{
		LicenseKey: cfg.NewRelic.LicenseKey,
		AppName:    cfg.NewRelic.AppName,
		Enabled:    cfg.NewRelic.Enabled,
	})
	if err != nil {
		appLogger.Warn("failed to initialize New Relic", logger.Err(err))
		nrApp = &monitoring.NewRelicApp{}
	}
	defer nrApp.Shutdown(10 * time.Second)

	redisClient, err := cache.NewRedisClient(cache.Config{
		Host:        cfg.Redis.Host,
		Port:        cfg.Redis.Port,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		MaxRetries:  cfg.Redis.MaxRetries,
		PoolSize:    cfg.Redis.PoolSize,
		MinIdleConn: cfg.Redis.MinIdleConn,
		DialTimeout: cfg.Redis.DialTimeout,
		ReadTimeout: cfg.Redis.ReadTimeout,
	})
	if err != nil {
		appLogger.Fatal("failed to connect to Redis", logger.Err(err))
	}
	defer cache.Close(redisClient)
	appLogger.Info("connected to Redis")

	db, err := database.NewPostgresDB(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.MaxConns,
		MaxIdle:  cfg.Database.MaxIdle,
	})
	if err != nil {
		appLogger.Fatal("failed to connect to PostgreSQL", logger.Err(err))
	}
	defer db.Close()
	appLogger.Info("connected to PostgreSQL")

	m := metrics.New()

	// Storage adapters
	driverRepo := postgres.NewDriverRepo(db)
	deliveryRepo := postgres.NewDeliveryRepo(db)
	historyRepo := postgres.NewLocationHistoryRepo(db)
	locCache := locationcache.NewRedisCache(redisClient)

	// Services
	candidateSvc := candidates.NewService(redisClient, appLogger, candidates.Config{
		SearchRadiusKM:    cfg.Dispatch.SearchRadiusKM,
		MaxSearchRadiusKM: cfg.Dispatch.MaxSearchRadiusKM,
		MaxCandidates:     cfg.Dispatch.MaxCandidates,
	})
	authzSvc := authz.NewService(deliveryRepo)

	// Transport hub
	hub := ws.NewHub(appLogger)
	go hub.Run()

	// Dispatch core
	registry := dispatch.NewRegistry()
	subs := dispatch.NewSubscriptionTable()
	pipeline := dispatch.NewPipeline(historyRepo, locCache, deliveryRepo, subs, hub, dispatch.PipelineConfig{
		LocationTTL:     cfg.Dispatch.LocationTTL,
		AssumedSpeedKMH: cfg.Dispatch.AssumedSpeedKMH,
	}, appLogger, m)
	arbiter := dispatch.NewArbiter(deliveryRepo, driverRepo, registry, cfg.Dispatch.OfferExpiry, appLogger, m)
	dispatcher := dispatch.NewDispatcher(dispatch.Deps{
		Registry:   registry,
		Subs:       subs,
		Pipeline:   pipeline,
		Arbiter:    arbiter,
		Deliveries: deliveryRepo,
		Drivers:    driverRepo,
		Index:      candidateSvc,
		Cache:      locCache,
		Auth:       authzSvc,
		Broadcast:  hub,
		Logger:     appLogger,
		Metrics:    m,
	})

	h := handlers.NewHandlers(driverRepo, deliveryRepo, candidateSvc, dispatcher, hub, cfg, appLogger)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	var nrApplication *monitoring.NewRelicApp
	if nrApp.IsEnabled() {
		nrApplication = nrApp
	}
	if nrApplication != nil {
		routes.SetupRoutes(router, h, m, nrApplication.Application)
	} else {
		routes.SetupRoutes(router, h, m, nil)
	}

	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		appLogger.Info("server starting", logger.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("failed to start server", logger.Err(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("server forced to shutdown", logger.Err(err))
	}

	appLogger.Info("server stopped")
}
