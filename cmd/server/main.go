package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"example.com/freddy/backend/internal/ai"
	"example.com/freddy/backend/internal/config"
	"example.com/freddy/backend/internal/database"
	"example.com/freddy/backend/internal/repository"
	"example.com/freddy/backend/internal/server"
)

func main() {
	ensureEnvFile()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	deps, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	client, err := ai.NewClient(ai.ClientConfig{
		Provider:  cfg.AI.Provider,
		APIKey:    cfg.AI.APIKey,
		BaseURL:   cfg.AI.BaseURL,
		Model:     cfg.AI.Model,
		Timeout:   cfg.AI.Timeout,
		MaxTokens: cfg.AI.MaxOutputTokens,
	})
	if err != nil {
		return err
	}
	if cfg.AI.APIKey == "" {
		logger.Warn("AI_API_KEY is empty, assistant will answer with the fallback message")
	}
	deps.AIClient = client

	e := server.New(cfg, logger, deps)
	httpServer := server.NewHTTPServer(cfg.Server, e)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server started", slog.String("addr", httpServer.Addr), slog.String("storage", cfg.Storage.Driver))
		if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := e.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func openStorage(ctx context.Context, cfg config.Config) (server.Dependencies, func(), error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pool, err := database.OpenPostgres(ctx, cfg.Database)
		if err != nil {
			return server.Dependencies{}, nil, err
		}
		if err := database.MigratePostgres(pool); err != nil {
			pool.Close()
			return server.Dependencies{}, nil, err
		}
		store := repository.NewPostgresStore(pool)
		return server.Dependencies{Store: store, Log: store}, pool.Close, nil

	case config.StorageSQLite:
		db, err := database.OpenSQLite(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return server.Dependencies{}, nil, err
		}
		if err := database.MigrateSQLite(db); err != nil {
			_ = db.Close()
			return server.Dependencies{}, nil, err
		}
		store := repository.NewSQLiteStore(db)
		return server.Dependencies{Store: store, Log: store}, func() { _ = db.Close() }, nil

	default:
		store := repository.NewMemoryStore()
		return server.Dependencies{Store: store, Log: store}, func() {}, nil
	}
}

func ensureEnvFile() {
	if os.Getenv("ENV_FILE") != "" {
		return
	}

	if _, err := os.Stat(".env"); err == nil {
		_ = os.Setenv("ENV_FILE", ".env")
		return
	}

	if _, err := os.Stat("../.env"); err == nil {
		_ = os.Setenv("ENV_FILE", "../.env")
	}
}
