package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voxhub/internal/core/services"
	httphandlers "voxhub/internal/handlers/http"
	"voxhub/internal/infrastructure/hub"
	"voxhub/internal/infrastructure/middleware"
	"voxhub/internal/infrastructure/monitoring"
	"voxhub/internal/infrastructure/registry"
	repositories "voxhub/internal/infrastructure/repositories"
	"voxhub/internal/infrastructure/router"
	"voxhub/pkg/config"
	"voxhub/pkg/logger"
	"voxhub/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/voxhub/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}

	if err != nil {
		// Fallback to defaults if config cannot be loaded
		cfg = config.DefaultConfig()
	}

	// Initialize logger
	zapLogger := logger.New(cfg.Logging.Level)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	// Initialize tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	// Initialize repository factory
	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}
	defer repoFactory.Close()

	// Initialize collaborator backends
	friendGraph := repoFactory.CreateFriendGraph()
	groupMembership := repoFactory.CreateGroupMembership()
	messageStore := repoFactory.CreateMessageStore()

	// Connection registry doubles as the event sink for all services
	reg := registry.New(log)

	// Initialize services
	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	presenceService := services.NewPresenceService(friendGraph, groupMembership, reg, log)
	callService := services.NewCallService(reg, messageStore, cfg.Hub.RingTimeout, log)
	groupCallService := services.NewGroupCallService(friendGraph, reg, log)
	voiceService := services.NewVoiceService()

	// Broadcast router
	rt := router.New(reg, groupMembership, log)
	rt.SetTypingStopDelay(cfg.Hub.TypingStopDelay)

	// Initialize monitoring
	prometheusCollector := monitoring.NewPrometheusCollector()

	// Initialize WebSocket hub
	wsServer := hub.NewServer(
		cfg,
		authService,
		reg,
		rt,
		presenceService,
		callService,
		groupCallService,
		voiceService,
		groupMembership,
		prometheusCollector,
		log,
	)

	// Initialize HTTP handlers
	groupCallHandler := httphandlers.NewGroupCallHandler(groupCallService)

	// Configure Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(middleware.RecoveryMiddleware(log))
	engine.Use(middleware.TracingMiddleware())
	engine.Use(middleware.NewHTTPRateLimitMiddleware(cfg))

	// WebSocket endpoint with its own connection-attempt throttle
	engine.GET("/ws", middleware.NewWebSocketRateLimitMiddleware(cfg), gin.WrapF(wsServer.HandleWebSocket))

	// Authenticated REST surface
	api := engine.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(authService))
	api.Use(middleware.ErrorHandlerMiddleware(log))
	groupCallHandler.SetupRoutes(api)

	// Health check endpoint
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":      "healthy",
			"timestamp":   time.Now(),
			"uptime":      time.Since(startTime).String(),
			"connections": wsServer.ConnectionCount(),
		})
	})

	// Readiness endpoint
	engine.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := repoFactory.HealthCheck(ctx); err != nil {
			c.JSON(503, gin.H{
				"status":       "not_ready",
				"timestamp":    time.Now(),
				"dependencies": "unhealthy",
				"error":        err.Error(),
			})
			return
		}

		c.JSON(200, gin.H{
			"status":       "ready",
			"timestamp":    time.Now(),
			"dependencies": "ok",
		})
	})

	// Prometheus metrics endpoint
	if cfg.Monitoring.PrometheusEnabled {
		engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting VoxHub server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for shutdown signals or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down VoxHub server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Shutdown HTTP server gracefully
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	// Stop outstanding timers before the process exits
	callService.Shutdown()
	rt.Shutdown()

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer provider", "error", err)
	}

	if err := repoFactory.Close(); err != nil {
		log.Errorw("Error closing repository factory", "error", err)
	}

	log.Info("VoxHub server stopped")
}
