package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/spacekimchi/tradesalsa/internal/app"
	"github.com/spacekimchi/tradesalsa/internal/auth"
	"github.com/spacekimchi/tradesalsa/internal/migrations"
	"github.com/spacekimchi/tradesalsa/internal/platform/cache"
	"github.com/spacekimchi/tradesalsa/internal/platform/db"
	"github.com/spacekimchi/tradesalsa/internal/session"
	"github.com/spacekimchi/tradesalsa/internal/view"
	"github.com/spacekimchi/tradesalsa/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.Connect(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if err := runMigrations(ctx, cfg.PGDSN); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	var store session.Store
	switch cfg.SessionBackend {
	case "redis":
		redisClient, err := cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Error("connect redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		store = session.NewRedisStore(redisClient)
	default:
		store = session.NewPGStore(dbpool)
	}

	sessionManager := session.NewManager(store, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := session.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	mailClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := mailClient.Close(); err != nil {
			logger.Warn("mail client close", slog.Any("error", err))
		}
	}()

	hasher := auth.NewHasher(cfg.HashWorkers, cfg.HashCost)
	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, hasher)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager, mailClient)
	authMiddleware := auth.Middleware{Service: authService, Logger: logger}

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    authHandler,
		AuthMiddleware: authMiddleware,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	// The reaper holds its own cancellation handle so shutdown can stop it
	// independently of the listener and then wait for it to drain.
	reaperCtx, stopReaper := context.WithCancel(context.Background())
	defer stopReaper()
	reaperDone := make(chan struct{})
	reaper := session.NewReaper(store, cfg.ReaperInterval, logger)
	go func() {
		defer close(reaperDone)
		reaper.Run(reaperCtx)
	}()

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}

	stopReaper()
	select {
	case <-reaperDone:
	case <-time.After(cfg.ShutdownGrace):
		logger.Error("shutdown anomaly: reaper did not stop within grace period")
	}
}

// runMigrations applies the embedded goose migrations through the pgx
// stdlib adapter.
func runMigrations(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}
