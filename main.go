package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smarte-commerce/ecomm-shipping-sub000/cache"
	"github.com/smarte-commerce/ecomm-shipping-sub000/controllers"
	"github.com/smarte-commerce/ecomm-shipping-sub000/database"
	applogger "github.com/smarte-commerce/ecomm-shipping-sub000/logger"
	"github.com/smarte-commerce/ecomm-shipping-sub000/middleware"
	aws_pkg "github.com/smarte-commerce/ecomm-shipping-sub000/pkg/aws"
	"github.com/smarte-commerce/ecomm-shipping-sub000/providers"
	"github.com/smarte-commerce/ecomm-shipping-sub000/repository"
	"github.com/smarte-commerce/ecomm-shipping-sub000/routes"
	servicepkg "github.com/smarte-commerce/ecomm-shipping-sub000/services"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "shipping-service"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := applogger.New(os.Getenv("APP_ENV"))
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := LoadConfig(ctx)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	db, err := database.Connect(ctx, cfg.PostgresConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db) //nolint:errcheck

	// AWS clients
	var (
		snsClient     aws_pkg.SNSPublisher
		metricsClient *aws_pkg.MetricsClient
	)
	if awsCfg, awsErr := aws_pkg.LoadAWSConfig(ctx); awsErr != nil {
		logger.Warn("AWS config unavailable, SNS and CloudWatch disabled", zap.Error(awsErr))
	} else {
		snsClient = aws_pkg.NewSNSClient(awsCfg)
		metricsClient = aws_pkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled)
	}

	quoteCache, closeCache, err := buildQuoteCache(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to init quote cache", zap.Error(err))
	}
	defer closeCache()

	// Provider and DI chain
	shippo := providers.NewShippoProvider(cfg.ShippoAPIKey, cfg.ShippoBaseURL)
	easyPost := providers.NewEasyPostProvider(cfg.EasyPostAPIKey, cfg.EasyPostBaseURL)
	quoteProviders := []providers.QuoteProvider{shippo, easyPost}
	for _, p := range quoteProviders {
		if !p.IsAvailable() {
			logger.Warn("Provider not configured, internal rates will cover it", zap.String("provider", p.Name()))
		}
	}

	catalogRepo := repository.NewGormCatalogRepository(db)
	shipmentRepo := repository.NewGormShipmentRepository(db)

	engine := servicepkg.NewRateEngine(cfg.RateEngineConfig(), nil)
	aggregator := servicepkg.NewQuoteAggregator(quoteProviders, catalogRepo, engine, quoteCache, cfg.AggregatorConfig(), logger)
	// A nil *MetricsClient must not reach the services as a non-nil interface.
	var recorder servicepkg.CountRecorder
	if metricsClient.IsEnabled() {
		recorder = metricsClient
	}
	quoteService := servicepkg.NewQuoteService(aggregator, recorder, logger)
	shippingService := servicepkg.NewShippingService(
		shipmentRepo,
		shippo,
		snsClient,
		cfg.ShippingSNSTopicARN,
		cfg.OriginAddress(),
		recorder,
		logger,
	)

	quoteController := controllers.NewQuoteController(quoteService)
	shippingController := controllers.NewShippingController(shippingService)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.MetricsMiddleware(metricsClient, serviceName))
	r.Use(middleware.SecurityHeaders())

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, 10*time.Minute)
	go limiter.Run(ctx)
	r.Use(middleware.RateLimitMiddleware(limiter))
	r.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	routes.RegisterHealthRoutes(r)
	routes.RegisterQuoteRoutes(r, quoteController)
	routes.RegisterShippingRoutes(r, shippingController)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	logger.Info("Shipping service started",
		zap.String("port", cfg.Port),
		zap.String("quote_cache", cfg.CacheBackend),
	)
	<-ctx.Done()
	logger.Info("Shutting down shipping service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	logger.Info("Server exited cleanly")
}

// buildQuoteCache returns the configured cache backend and its release func.
func buildQuoteCache(ctx context.Context, cfg *Config, logger *zap.Logger) (cache.QuoteCache, func(), error) {
	if cfg.CacheBackend != "redis" {
		return cache.NewMemoryQuoteCache(cfg.CacheSize), func() {}, nil
	}
	client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Redis quote cache connected")
	return cache.NewRedisQuoteCache(client), func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}, nil
}
