package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"

	_ "userhub/docs" // swagger docs

	"userhub/internal/auth"
	"userhub/internal/cache"
	"userhub/internal/config"
	"userhub/internal/db"
	"userhub/internal/handler"
	"userhub/internal/logging"
	"userhub/internal/password"
	"userhub/internal/router"
	"userhub/internal/service"
)

// @title User Directory API
// @version 1.0
// @description User registration, token login and a paginated user directory.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	if err := run(); err != nil {
		log.Fatalf("server: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logCloser := logging.New(logging.Options{
		Level:     cfg.LogLevel,
		File:      cfg.LogFile,
		MaxSizeMB: cfg.LogMaxSizeMB,
	})
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := db.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Error("close store", "error", err)
		}
	}()

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	if cacheClient == nil {
		logger.Info("REDIS_ADDR not set, user cache disabled")
	} else if err := cacheClient.Ping(ctx); err != nil {
		logger.Warn("cache unavailable, serving reads from the store", "error", err)
	}

	hasher, err := password.New(cfg.PasswordAlgo, cfg.BcryptCost)
	if err != nil {
		return err
	}
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.TokenTTL)

	authService := service.NewAuthService(store.Users, hasher, jwtService, logger)
	userService := service.NewUserService(store.Users, hasher, cacheClient, cfg.SoftDelete(), logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	router.Register(e, cfg, router.Deps{
		Logger:      logger,
		JWTService:  jwtService,
		UserHandler: handler.NewUserHandler(userService),
		AuthHandler: handler.NewAuthHandler(authService),
	})

	serverErrors := make(chan error, 1)
	go func() {
		addr := ":" + cfg.ServerPort
		logger.Info("server listening",
			"addr", addr,
			"store", store.Driver,
			"delete_policy", cfg.DeletePolicy,
			"users_require_auth", cfg.UsersRequireAuth,
			"swagger", "/swagger/index.html",
		)
		serverErrors <- e.Start(addr)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server start: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
