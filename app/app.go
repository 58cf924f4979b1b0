// File: app/app.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-employee-api/auth"
	"go-employee-api/config"
	"go-employee-api/db"
	"go-employee-api/handler"
	"go-employee-api/logger"
	"go-employee-api/metrics"
	"go-employee-api/repository"
	"go-employee-api/router"
	"go-employee-api/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// App is the fully wired API. Redis is optional.
type App struct {
	Config  *config.Config
	DB      *sql.DB
	Redis   *redis.Client
	Router  http.Handler
	Service *service.AuthService

	limiter *handler.RateLimiter
}

// New wires every layer on top of already opened connections.
func New(cfg *config.Config, database *sql.DB, rdb *redis.Client) (*App, error) {
	accessSigner, err := auth.NewJWTSigner([]byte(cfg.JWT.SecretKey),
		auth.WithIssuer(cfg.JWT.Issuer),
		auth.WithAudience(cfg.JWT.Audience),
		auth.WithTokenLifetime(cfg.JWT.AccessTokenTTL),
		auth.WithLeeway(cfg.JWT.ClockSkew),
	)
	if err != nil {
		return nil, fmt.Errorf("access token signer: %w", err)
	}

	bearerSigner, err := auth.NewJWTSigner([]byte(cfg.JWT.SecretKey),
		auth.WithIssuer(cfg.JWT.Issuer),
		auth.WithAudience(cfg.JWT.Audience),
		auth.WithTokenLifetime(cfg.JWT.BearerTokenTTL),
		auth.WithLeeway(cfg.JWT.ClockSkew),
	)
	if err != nil {
		return nil, fmt.Errorf("bearer token signer: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	opts := []service.AuthOption{
		service.WithBearerSigner(bearerSigner),
		service.WithRefreshTokenTTL(cfg.JWT.RefreshTokenTTL),
		service.WithMetrics(collector),
	}
	if rdb != nil {
		opts = append(opts, service.WithLoginThrottle(
			service.NewLoginThrottle(rdb, cfg.Security.MaxLoginFailures, cfg.Security.LoginFailureTTL)))
	}

	userRepo := repository.NewUserRepository(database)
	authService := service.NewAuthService(
		userRepo,
		auth.NewBcryptHasher(cfg.Security.BcryptCost),
		accessSigner,
		auth.NewRefreshTokenGenerator(),
		opts...,
	)

	var limiter *handler.RateLimiter
	if cfg.Security.RateLimitRPS > 0 {
		limiter = handler.NewRateLimiter(cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst, 5*time.Minute)
	}

	var pinger handler.Pinger
	if database != nil {
		pinger = database
	}

	r := router.NewRouter(router.Dependencies{
		Auth:      handler.NewAuthHandler(authService),
		Health:    handler.NewHealthHandler(pinger),
		Validator: accessSigner,
		Limiter:   limiter,
		Metrics:   metrics.Handler(registry),
		Recorder:  collector,
	})

	return &App{
		Config:  cfg,
		DB:      database,
		Redis:   rdb,
		Router:  r,
		Service: authService,
		limiter: limiter,
	}, nil
}

// Close stops background work. Connections stay owned by the caller.
func (a *App) Close() {
	if a.limiter != nil {
		a.limiter.Stop()
	}
}

func Run() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Error loading configuration: %v", err)
	}
	logger.Init(cfg.Log.Level)
	logger.Log.Info("Configuration loaded successfully")

	database, err := db.Connect(cfg)
	if err != nil {
		logger.Log.Fatalf("Error connecting to the database: %v", err)
	}
	defer database.Close()

	if cfg.Database.AutoMigrate {
		if err := db.RunMigrations(cfg.DatabaseURL()); err != nil {
			logger.Log.Fatalf("Error running migrations: %v", err)
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = db.ConnectRedis(cfg)
		if err != nil {
			logger.Log.WithError(err).Warn("Redis unavailable, login throttling disabled")
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	application, err := New(cfg, database, rdb)
	if err != nil {
		logger.Log.Fatalf("Error wiring application: %v", err)
	}
	defer application.Close()

	port := cfg.Server.Port
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Errorf("Server forced to shutdown: %v", err)
		return
	}

	logger.Log.Info("Server exited properly")
}
