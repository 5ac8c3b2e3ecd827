// main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"thelook/api/analytics"
	"thelook/api/config"
	"thelook/api/dashboard"
	"thelook/api/database"
	"thelook/api/dataset"
	"thelook/api/handlers"
	"thelook/api/logging"
	"thelook/api/middleware"
	"thelook/api/store"
	"thelook/api/utils"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- PostgreSQL (users, warehouse order tables) ---
	dbClient, err := database.NewPostgresDB(cfg.DatabaseURL, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize PostgreSQL database")
	}
	defer dbClient.Close()

	// --- ClickHouse (clickstream events) ---
	chClient, err := database.NewClickHouseDB(cfg.ClickHouse, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize ClickHouse database")
	}
	defer chClient.Close()

	userStore := store.NewUserStore(dbClient.DB, logger)
	orderStore := store.NewOrderStore(dbClient.DB, logger)
	eventStore := store.NewEventStore(chClient, logger)

	// --- Dashboard dataset ---
	var source dataset.Source
	switch cfg.Dataset.Source {
	case config.SourceWarehouse:
		source = &dataset.WarehouseSource{Orders: orderStore, Events: eventStore}
	case config.SourceFile:
		source = &dataset.FileSource{
			WorkbookPath:   cfg.Dataset.OrdersWorkbook,
			OrdersSheet:    cfg.Dataset.OrdersSheet,
			CustomersSheet: cfg.Dataset.CustomersSheet,
			EventsPath:     cfg.Dataset.EventsCSV,
		}
	default:
		logger.WithField("source", cfg.Dataset.Source).Fatal("Unknown DATASET_SOURCE")
	}

	cache := dataset.NewCache(source, logger)
	warmCtx, cancelWarm := context.WithTimeout(context.Background(), 2*time.Minute)
	if _, err := cache.Get(warmCtx); err != nil {
		cancelWarm()
		logger.WithError(err).Fatal("Failed to load dashboard dataset")
	}
	cancelWarm()

	policy, err := analytics.ParseAttributionPolicy(cfg.Analytics.AttributionPolicy)
	if err != nil {
		logger.WithError(err).Fatal("Invalid ATTRIBUTION_POLICY")
	}
	pipeline := dashboard.NewPipeline(cache, dashboard.Options{
		PurchaseEventType: cfg.Analytics.PurchaseEventType,
		Policy:            policy,
		TopN:              cfg.Analytics.TopN,
	}, logger)

	jwtManager, err := utils.NewJWTManager(cfg.JWTSecret, time.Hour)
	if err != nil {
		logger.WithError(err).Fatal("Failed to configure JWT")
	}

	authHandlers := handlers.NewAuthHandlers(userStore, jwtManager, cfg.GinMode == gin.ReleaseMode, logger)
	trackHandlers := handlers.NewTrackHandlers(eventStore, logger)
	dashboardHandlers := handlers.NewDashboardHandlers(pipeline, cache, logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORSMiddleware(cfg.FrontendOrigin))

	r.GET("/health", handlers.Health)

	api := r.Group("/api")
	{
		api.POST("/signup", authHandlers.Signup)
		api.POST("/login", authHandlers.Login)
		api.POST("/logout", authHandlers.Logout)

		dash := api.Group("/dashboard")
		{
			dash.GET("/filters", dashboardHandlers.Filters)
			dash.GET("/sales", dashboardHandlers.Sales)
			dash.GET("/products", dashboardHandlers.Products)
			dash.GET("/customers", dashboardHandlers.Customers)
			dash.GET("/conversion", dashboardHandlers.Conversion)
		}

		protected := api.Group("/")
		protected.Use(middleware.AuthRequired(jwtManager, cfg.AuthDefaultKey, logger))
		{
			protected.POST("/track", trackHandlers.TrackEvent)
			protected.POST("/dataset/reload", dashboardHandlers.Reload)
			protected.GET("/profile", authHandlers.Profile)

			stats := protected.Group("/stats")
			{
				stats.GET("/event-counts", trackHandlers.EventCountsOverTime)
				stats.GET("/unique-sessions", trackHandlers.UniqueSessionsOverTime)
			}
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":   cfg.Port,
			"source": cfg.Dataset.Source,
			"policy": policy,
		}).Info("API server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("API server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exiting.")
}
