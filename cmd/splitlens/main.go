package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"splitlens/internal/amqp"
	"splitlens/internal/config"
	apphttp "splitlens/internal/http"
	"splitlens/internal/report"
	"splitlens/internal/source/demo"
	"splitlens/internal/splitwise"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var source report.ExpenseSource
	var defaultGroupID int64
	switch cfg.DataSource {
	case "demo":
		source = demo.New()
		logger.Info("Initialized demo expense source", "source", cfg.DataSource)
	default:
		client, err := splitwise.New(cfg.SplitwiseBaseURL, cfg.SplitwiseAPIKey)
		if err != nil {
			logger.Error("Failed to initialize Splitwise client", "error", err)
			os.Exit(1)
		}
		source = client
		logger.Info("Initialized Splitwise expense source",
			"source", cfg.DataSource, "base_url", cfg.SplitwiseBaseURL)

		if cfg.DefaultGroup != "" {
			defaultGroupID = resolveDefaultGroup(client, cfg.DefaultGroup, logger)
		}
	}

	// Snapshot publishing is optional; without AMQP the dashboard still works.
	var publisher report.SnapshotPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("Snapshot publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Snapshot publishing disabled - no AMQP_URL provided")
	}

	service := report.NewService(source, publisher, report.Options{
		WidenLongMonths: cfg.WidenMonthEnd,
		FetchLimit:      cfg.FetchLimit,
	})

	srv := apphttp.NewServer(":"+cfg.Port, service, defaultGroupID)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting splitlens server", "port", cfg.Port, "source", cfg.DataSource)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

// resolveDefaultGroup looks up the configured default group name against
// the Splitwise API. A failed lookup is not fatal; the dashboard starts
// with non-group expenses selected instead.
func resolveDefaultGroup(client *splitwise.Client, name string, logger *slog.Logger) int64 {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	group, err := client.GroupByName(ctx, name)
	if err != nil {
		logger.Warn("Could not resolve default group, falling back to non-group expenses",
			"group", name, "error", err)
		return 0
	}
	logger.Info("Resolved default group", "group", group.Name, "group_id", group.ID)
	return group.ID
}
