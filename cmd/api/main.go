package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/rumbidzaim/habitpulse-backend/internal/achievement"
	"github.com/rumbidzaim/habitpulse-backend/internal/ai"
	"github.com/rumbidzaim/habitpulse-backend/internal/api"
	"github.com/rumbidzaim/habitpulse-backend/internal/config"
	"github.com/rumbidzaim/habitpulse-backend/internal/feedback"
	"github.com/rumbidzaim/habitpulse-backend/internal/notify"
	"github.com/rumbidzaim/habitpulse-backend/internal/store"
)

func main() {
	logger := newLogger(os.Getenv("ENV"))

	if err := run(logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func newLogger(env string) *slog.Logger {
	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.New(handler)
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────────────
	pool, err := openDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()

	if err := store.Migrate(pool); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database ready")

	st := store.New(pool)

	// ── AI provider ───────────────────────────────────────────────────────────
	generator, err := buildGenerator(cfg, logger)
	if err != nil {
		return err
	}

	// ── Badge catalog ─────────────────────────────────────────────────────────
	catalog, err := loadCatalog(cfg.BadgeCatalogPath)
	if err != nil {
		return fmt.Errorf("load badge catalog: %w", err)
	}
	engine := achievement.NewEngine(catalog)

	// ── Notification dispatcher ───────────────────────────────────────────────
	var transport notify.Transport
	if cfg.PushGatewayURL != "" {
		transport = notify.NewWebhookTransport(cfg.PushGatewayURL, &http.Client{Timeout: cfg.DeliveryTimeout})
	} else {
		logger.Warn("PUSH_GATEWAY_URL not set, notifications go to the log")
		transport = notify.LogTransport{Logger: logger}
	}

	dispatcher := notify.NewDispatcher(transport, st, notify.DispatcherConfig{
		Buffer:          cfg.NotifyBuffer,
		Workers:         cfg.NotifyWorkers,
		DeliveryTimeout: cfg.DeliveryTimeout,
	}, logger)
	go dispatcher.Start(ctx)

	// ── Feedback pipeline ─────────────────────────────────────────────────────
	coordinator := feedback.New(st, engine, generator, dispatcher, cfg.SuggestionTimeout, logger)

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(st, coordinator, api.AllowAllVerifier{}, api.Config{Env: cfg.Env}, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openDB(ctx context.Context, url string) (*sql.DB, error) {
	pool, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}

	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(25)
	pool.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func buildGenerator(cfg *config.Config, logger *slog.Logger) (ai.Generator, error) {
	switch {
	case cfg.AnthropicAPIKey != "" && cfg.DeepSeekAPIKey != "":
		primary := ai.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		secondary := ai.NewDeepSeekClient(cfg.DeepSeekAPIKey, cfg.DeepSeekModel)
		return ai.NewFallbackGenerator(primary, secondary, logger), nil
	case cfg.AnthropicAPIKey != "":
		return ai.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	case cfg.DeepSeekAPIKey != "":
		return ai.NewDeepSeekClient(cfg.DeepSeekAPIKey, cfg.DeepSeekModel), nil
	default:
		return nil, errors.New("no AI provider configured")
	}
}

func loadCatalog(path string) (achievement.Catalog, error) {
	if path == "" {
		return achievement.DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return achievement.Catalog{}, err
	}
	return achievement.ParseCatalog(raw)
}
