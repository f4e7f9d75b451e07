package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"auth-gateway/internal/config"
	apphttp "auth-gateway/internal/http"
	"auth-gateway/internal/repository"
	"auth-gateway/internal/repository/memory"
	"auth-gateway/internal/repository/sqlite"
	"auth-gateway/internal/service"
	"auth-gateway/internal/token"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	configureLogger(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users, revoked, closeStore, err := buildRepositories(ctx, cfg)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}
	defer closeStore()

	backend := buildBackend(cfg, users, logger)
	issuer := token.NewIssuer(token.Options{
		Secret:     cfg.Auth.JWTSecret,
		Issuer:     cfg.Auth.Issuer,
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
	}, revoked)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(backend, issuer, logger, cfg.Backend.Mode)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s (backend %s, database %s)", cfg.Server.Addr, cfg.Backend.Mode, cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) {
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

// buildRepositories opens the revocation set and, in local mode, the user table.
func buildRepositories(ctx context.Context, cfg config.Config) (repository.UserRepository, repository.RevocationRepository, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		return memory.NewUserRepository(), memory.NewRevocationRepository(), func() {}, nil
	}

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	closeDB := func() { _ = db.Close() }

	users, revoked, err := initSQLite(ctx, db, cfg.Backend.Mode == config.ModeLocal)
	if err != nil {
		closeDB()
		return nil, nil, nil, err
	}
	return users, revoked, closeDB, nil
}

func initSQLite(ctx context.Context, db *sql.DB, withUsers bool) (repository.UserRepository, repository.RevocationRepository, error) {
	revoked := sqlite.NewRevocationRepository(db)
	if err := revoked.Init(ctx); err != nil {
		return nil, nil, fmt.Errorf("init revocation repository: %w", err)
	}
	if !withUsers {
		return nil, revoked, nil
	}

	users := sqlite.NewUserRepository(db)
	if err := users.Init(ctx); err != nil {
		return nil, nil, fmt.Errorf("init user repository: %w", err)
	}
	return users, revoked, nil
}

func buildBackend(cfg config.Config, users repository.UserRepository, logger *logrus.Logger) service.IdentityBackend {
	if cfg.Backend.Mode == config.ModeRemote {
		logger.Infof("relaying identities to %s (timeout %s)", cfg.Backend.RemoteURL, cfg.Backend.Timeout)
		return service.NewRemoteBackend(service.RemoteOptions{
			BaseURL: cfg.Backend.RemoteURL,
			Timeout: cfg.Backend.Timeout,
			Logger:  logger.WithField("component", "identity-store"),
		})
	}
	return service.NewLocalBackend(users, cfg.Auth.BcryptCost)
}
