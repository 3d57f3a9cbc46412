package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	configs "github.com/storelane/api/config"
	"github.com/storelane/api/internal/handler"
	"github.com/storelane/api/internal/middleware"
	"github.com/storelane/api/internal/repository"
	"github.com/storelane/api/internal/router"
	"github.com/storelane/api/internal/service"
	"github.com/storelane/api/pkg/database"
	"github.com/storelane/api/pkg/logger"
	"github.com/storelane/api/pkg/redis"
	"github.com/storelane/api/pkg/validation"
)

func main() {
	config, err := configs.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	if err := logger.InitLogger(config); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.GetLogger().Info("Application starting",
		zap.String("app_name", config.App.Name),
		zap.String("environment", config.App.Environment),
	)

	db, err := database.NewPostgresDB(database.Config{
		Host:            config.Database.Host,
		Port:            config.Database.Port,
		User:            config.Database.User,
		Password:        config.Database.Password,
		Database:        config.Database.Name,
		SSLMode:         config.Database.SSLMode,
		MaxIdleConns:    config.Database.MaxIdleConns,
		MaxOpenConns:    config.Database.MaxOpenConns,
		ConnMaxLifetime: config.Database.ConnMaxLifetime,
		ConnMaxIdleTime: config.Database.ConnMaxIdleTime,
	})
	if err != nil {
		logger.GetLogger().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	if err := database.AutoMigrate(db); err != nil {
		logger.GetLogger().Fatal("Failed to run database migrations", zap.Error(err))
	}
	logger.GetLogger().Info("Database migrated successfully")

	if err := database.OptimizedIndexes(db); err != nil {
		logger.GetLogger().Warn("Failed to create optimized indexes", zap.Error(err))
	}

	// Seed failures are not fatal: the catalog may already exist.
	if err := database.Seed(db); err != nil {
		logger.GetLogger().Error("Failed to seed database", zap.Error(err))
	}

	redisClient := redis.NewClient(redis.Config{
		Host:         config.Redis.Host,
		Port:         config.Redis.Port,
		Password:     config.Redis.Password,
		DB:           config.Redis.Database,
		Enabled:      config.Redis.Enabled,
		PoolSize:     config.Redis.PoolSize,
		MinIdleConns: config.Redis.MinIdleConns,
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
	}, logger.GetLogger())
	defer redisClient.Close()

	if err := validation.RegisterCustomValidators(); err != nil {
		logger.GetLogger().Fatal("Failed to register validators", zap.Error(err))
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuthEventRepository(db)

	// Services
	tokenService, err := service.NewTokenService(config.JWT)
	if err != nil {
		logger.GetLogger().Fatal("Failed to initialize token service", zap.Error(err))
	}
	refreshManager := service.NewRefreshTokenManager(userRepo, tokenService)
	loginThrottle := service.NewLoginThrottle(redisClient, config.Throttle.MaxFailedLogins, config.Throttle.Window)
	authService := service.NewAuthService(userRepo, tokenService, refreshManager, loginThrottle, auditRepo)

	// Handlers and middleware
	authHandler := handler.NewAuthHandler(authService)
	healthHandler := handler.NewHealthHandler(db, redisClient)
	authMw := middleware.NewAuthMiddleware(tokenService)

	r := router.NewRouter(authHandler, healthHandler, authMw, config)
	engine := r.SetupRoutes()

	srv := &http.Server{
		Addr:    ":" + config.App.Port,
		Handler: engine,
	}

	go func() {
		logger.GetLogger().Info("HTTP server listening", zap.String("port", config.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.GetLogger().Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.GetLogger().Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.GetLogger().Error("Graceful shutdown failed", zap.Error(err))
	}

	logger.GetLogger().Info("Server stopped")
}
