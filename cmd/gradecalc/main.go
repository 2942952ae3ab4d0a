package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MikeSquared-Agency/gradecalc/internal/api"
	"github.com/MikeSquared-Agency/gradecalc/internal/catalog"
	"github.com/MikeSquared-Agency/gradecalc/internal/cli"
	"github.com/MikeSquared-Agency/gradecalc/internal/config"
	"github.com/MikeSquared-Agency/gradecalc/internal/events"
	"github.com/MikeSquared-Agency/gradecalc/internal/session"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	envFile := flag.String("env-file", ".env", "dotenv file to load if present")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: gradecalc [-config path] [-env-file path] [serve]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		slog.Error("failed to load env file", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	cat, err := catalog.FromConfig(cfg.Catalog)
	if err != nil {
		slog.Error("invalid catalog", "error", err)
		os.Exit(1)
	}

	switch mode := flag.Arg(0); mode {
	case "":
		// stdout belongs to the calculator
		logger := newLogger(cfg.Logging, os.Stderr)
		slog.SetDefault(logger)
		if err := runInteractive(cat); err != nil {
			logger.Error("calculator stopped", "error", err)
			os.Exit(1)
		}
	case "serve":
		logger := newLogger(cfg.Logging, os.Stdout)
		slog.SetDefault(logger)
		runServer(cfg, *configPath, cat, logger)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func newLogger(lc config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func runInteractive(cat *catalog.Catalog) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return cli.NewSession(cat, os.Stdout).Run(ctx, os.Stdin)
}

func runServer(cfg *config.Config, configPath string, cat *catalog.Catalog, logger *slog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	live := catalog.NewLive(cat)
	logger.Info("catalog loaded", "courses", len(cat.Courses()), "credits", cat.TotalCredits())

	// Events (optional)
	var eventsClient events.Client
	if cfg.Events.URL != "" {
		ec, err := events.NewNATSClient(ctx, cfg.Events.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to nats, running without events", "error", err)
		} else {
			eventsClient = ec
			defer ec.Close()
			logger.Info("connected to nats")
		}
	}
	publisher := events.NewPublisher(eventsClient, logger)

	// Sessions
	store := session.NewMemoryStore()
	go session.RunSweeper(ctx, store, cfg.SweepInterval(), cfg.IdleTimeout(), logger)

	// Catalog hot reload
	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, logger, func(next *config.Config) {
				c, err := catalog.FromConfig(next.Catalog)
				if err != nil {
					logger.Error("reloaded catalog invalid, keeping previous", "error", err)
					return
				}
				live.Store(c)
				logger.Info("catalog reloaded", "courses", len(c.Courses()))
			})
			if err != nil {
				logger.Warn("config watch stopped", "error", err)
			}
		}()
	}

	metrics := api.NewMetrics(prometheus.DefaultRegisterer, store)

	// API server
	router := api.NewRouter(store, live, publisher, metrics, cfg, logger)
	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           api.NewMetricsRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
}
