package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskboard/internal/auth"
	"taskboard/internal/board"
	"taskboard/internal/config"
	"taskboard/internal/metrics"
	"taskboard/internal/server"
	"taskboard/internal/storage/sqlite"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	logger.Info("taskboard starting", slog.String("addr", cfg.Addr), slog.String("db", cfg.DBPath))
	if cfg.EnvFile != "" {
		logger.Info("loaded environment file", slog.String("path", cfg.EnvFile))
	}

	secret := cfg.JWTSecret
	if secret == "" {
		secret = randomSecret()
		logger.Warn("TASKBOARD_JWT_SECRET not set; sessions will not survive a restart")
	}

	store, err := sqlite.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Error("unable to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	if n, err := store.PurgeExpiredSessions(context.Background()); err != nil {
		logger.Warn("unable to purge expired sessions", slog.String("error", err.Error()))
	} else if n > 0 {
		logger.Info("purged expired sessions", slog.Int64("count", n))
	}

	m := metrics.New()
	boardSvc, err := board.New(store, logger, board.Config{
		OpenedStatus: cfg.OpenStatus,
		RecentLimit:  cfg.RecentLimit,
	}, board.WithRecorder(m))
	if err != nil {
		logger.Error("unable to configure board", slog.String("error", err.Error()))
		os.Exit(1)
	}
	identity := auth.NewService(store, auth.NewTokenManager(secret, cfg.TokenTTL), logger)

	srv := server.New(server.Deps{
		Board:     boardSvc,
		Identity:  identity,
		Metrics:   m,
		DB:        store,
		Logger:    logger,
		StaticDir: cfg.StaticDir,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
