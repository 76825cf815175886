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
	ghandlers "github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/smartgenesis/api/docs" // Swagger docs
	"github.com/smartgenesis/api/internal/backend"
	"github.com/smartgenesis/api/internal/config"
	"github.com/smartgenesis/api/internal/database"
	"github.com/smartgenesis/api/internal/eventbus"
	"github.com/smartgenesis/api/internal/handlers"
	"github.com/smartgenesis/api/internal/middleware"
	"github.com/smartgenesis/api/internal/orchestration"
	"github.com/smartgenesis/api/internal/prompt"
	"github.com/smartgenesis/api/internal/resilience"
	"github.com/smartgenesis/api/internal/telemetry"
)

const (
	serviceName    = "smartgenesis-api"
	serviceVersion = "1.0.0"
)

// @title Smart Genesis API
// @version 1.0.0
// @description Generates single-component React websites from a short business description.
// @host localhost:5000
// @BasePath /api/v1
// @schemes http
func main() {
	ctx := context.Background()

	zapConfig := zap.NewProductionConfig()
	zapConfig.OutputPaths = []string{"stdout"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}
	logger, err := zapConfig.Build()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load("")
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger.Info("Smart Genesis API starting...",
		zap.String("version", serviceVersion),
		zap.String("environment", cfg.Server.Environment),
		zap.String("provider", cfg.Backend.Provider),
		zap.Bool("local_mode", cfg.Generation.LocalMode),
	)

	shutdownTelemetry, err := telemetry.InitTracer(ctx, serviceName, serviceVersion, cfg.OTLPEndpoint)
	if err != nil {
		// Log but don't fail, as collector might be down
		logger.Error("failed to initialize telemetry", zap.Error(err))
	} else {
		defer func() {
			if err := shutdownTelemetry(ctx); err != nil {
				logger.Error("failed to shutdown telemetry", zap.Error(err))
			}
		}()
	}

	var publisher eventbus.Publisher = eventbus.NopPublisher{}
	if cfg.NATSURL != "" {
		natsPublisher, err := eventbus.NewNATSPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Error("failed to connect to NATS, generation events disabled", zap.Error(err))
		} else {
			publisher = natsPublisher
			logger.Info("connected to NATS", zap.String("subject", eventbus.SubjectGenerationCompleted))
		}
	}
	defer publisher.Close()

	var limiter middleware.Limiter = middleware.NewWindowLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	var redisPinger handlers.Pinger
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis, using in-memory rate limiting", zap.Error(err))
		} else {
			defer rdb.Close()
			limiter = middleware.NewRedisLimiter(rdb.Client(), cfg.RateLimit.Requests, cfg.RateLimit.Window)
			redisPinger = rdb
			logger.Info("connected to redis", zap.String("addr", rdb.Addr()))
		}
	}

	generator, err := backend.New(ctx, backend.Config{
		Provider:          cfg.Backend.Provider,
		APIKey:            cfg.Backend.APIKey,
		BaseURL:           cfg.Backend.BaseURL,
		Model:             cfg.Backend.Model,
		Temperature:       cfg.Backend.Temperature,
		MaxTokens:         cfg.Backend.MaxTokens,
		SystemInstruction: prompt.SystemInstruction,
		Timeout:           cfg.Backend.Timeout,
		MaxConcurrent:     cfg.Backend.MaxConcurrent,
	})
	if err != nil {
		logger.Fatal("failed to initialize generation backend", zap.Error(err))
	}
	if generator == nil {
		logger.Warn("no API key configured, every request will be served by the local generator")
	}

	breaker := resilience.NewBreaker("ai_backend", resilience.Settings{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
		OpenTimeout:      cfg.Breaker.OpenTimeout,
	})
	breaker.OnStateChange(func(from, to resilience.State) {
		logger.Warn("circuit breaker state changed",
			zap.String("name", breaker.Name()),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	})

	policy, err := orchestration.ParsePolicy(cfg.Generation.FallbackPolicy)
	if err != nil {
		logger.Fatal("invalid fallback policy", zap.Error(err))
	}

	orchestrator := orchestration.New(generator, breaker, publisher, orchestration.Config{
		LocalMode: cfg.Generation.LocalMode,
		Policy:    policy,
		Timeout:   cfg.Backend.Timeout,
	}, logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger, "/health", "/metrics"))
	router.Use(middleware.SecurityHeaders())
	router.NoRoute(middleware.NotFound)

	// Swagger documentation
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	healthHandler := handlers.NewHealthHandler(redisPinger, orchestrator.RemoteEnabled(), breaker, serviceVersion)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/deep", healthHandler.DeepHealth)

	generationHandler := handlers.NewGenerationHandler(orchestrator, cfg.Server.BodyLimitBytes, logger)

	api := router.Group("/api")
	api.Use(middleware.BodyLimit(cfg.Server.BodyLimitBytes))
	api.Use(middleware.RateLimitMiddleware(limiter, logger))
	{
		api.POST("/generate", generationHandler.Generate)
		api.POST("/v1/generate", generationHandler.Generate)
	}

	corsHandler := ghandlers.CORS(
		ghandlers.AllowedOrigins([]string{cfg.Server.ClientURL}),
		ghandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		ghandlers.AllowedHeaders([]string{"Content-Type", middleware.RequestIDHeader}),
		ghandlers.ExposedHeaders([]string{middleware.RequestIDHeader, "Retry-After"}),
		ghandlers.AllowCredentials(),
	)(router)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      corsHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("server exited gracefully")
}
