package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rickgao/stockstream/internal/api"
	"github.com/rickgao/stockstream/internal/auth"
	"github.com/rickgao/stockstream/internal/config"
	"github.com/rickgao/stockstream/internal/connection"
	"github.com/rickgao/stockstream/internal/database"
	"github.com/rickgao/stockstream/internal/metrics"
	"github.com/rickgao/stockstream/internal/poller"
	"github.com/rickgao/stockstream/internal/realtime"
	"github.com/rickgao/stockstream/internal/router"
	"github.com/rickgao/stockstream/internal/version"
	"github.com/rickgao/stockstream/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/streamd.yaml", "path to config file")
	envFile := flag.String("env", ".env", "optional dotenv file loaded before the config")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(*logLevel),
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load env file", "path", *envFile, "error", err)
	}

	logger.Info("starting streamd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	if err := run(*configPath, logger); err != nil {
		logger.Error("streamd failed", "error", err)
		os.Exit(1)
	}
	logger.Info("streamd stopped")
}

func run(configPath string, logger *slog.Logger) error {
	// Load configuration
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	creds, err := auth.Resolve(cfg.API.APIKey, cfg.API.APIKeyFile)
	if err != nil {
		return fmt.Errorf("resolve credentials: %w", err)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"api_url", cfg.API.RestURL,
		"ws_url", cfg.API.WSURL,
		"symbols", cfg.Watchlist.Symbols,
		"compare", cfg.Watchlist.Compare,
	)

	// Create context with cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Create API client
	apiClient := api.NewClient(
		cfg.API.RestURL,
		creds.APIKey(),
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
		api.WithRateLimit(cfg.API.RequestsPerMinute),
	)

	// Create the stream
	clientCfg := connection.DefaultClientConfig()
	clientCfg.URL = cfg.API.WSURL
	clientCfg.PingInterval = cfg.Stream.PingInterval
	clientCfg.PingTimeout = cfg.Stream.PingTimeout
	clientCfg.WriteTimeout = cfg.Stream.WriteTimeout
	clientCfg.BufferSize = cfg.Stream.BufferSize

	manager := connection.NewManager(connection.ManagerConfig{
		Client:               clientCfg,
		ReconnectBaseWait:    cfg.Stream.ReconnectBaseDelay,
		MaxReconnectAttempts: cfg.Stream.MaxReconnectAttempts,
		ResubscribeOnOpen:    cfg.Stream.Resubscribe(),
	}, creds, logger, connection.WithMetrics(m.Stream))

	// Create feeds and seed them before live data arrives
	feedCfg := realtime.Config{
		Interval:          cfg.Realtime.ThrottleInterval,
		MaxPoints:         cfg.Realtime.MaxPoints,
		MaxTrades:         cfg.Realtime.MaxTrades,
		MaxCompareSymbols: config.MaxCompareSymbols,
	}
	fs, err := newFeeds(cfg.Watchlist.Symbols, cfg.Watchlist.Compare, manager, feedCfg, m.Feeds, logger)
	if err != nil {
		return fmt.Errorf("create feeds: %w", err)
	}

	seedCtx, seedCancel := context.WithTimeout(ctx, time.Minute)
	fs.seed(seedCtx, apiClient, logger)
	seedCancel()

	if err := fs.start(); err != nil {
		return fmt.Errorf("start feeds: %w", err)
	}
	defer fs.stop()

	// Optional recorder
	srv := &server{stream: manager, feeds: fs}
	if cfg.Database.Enabled {
		pool, stopRecorder, err := startRecorder(ctx, cfg, manager, m.Writers, logger)
		if err != nil {
			return err
		}
		defer pool.Close()
		defer stopRecorder()
		srv.db = pool
	}

	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		manager.Stop(stopCtx)
	}()

	// Snapshot poller
	if cfg.Poller.Interval > 0 && len(cfg.Watchlist.Symbols) > 0 {
		p := poller.New(poller.Config{
			Interval:    cfg.Poller.Interval,
			Concurrency: cfg.Poller.Concurrency,
			Timeout:     cfg.Poller.Timeout,
		}, apiClient, poller.StaticSymbols(cfg.Watchlist.Symbols), fs, logger)
		if err := p.Start(ctx); err != nil {
			return fmt.Errorf("start poller: %w", err)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			p.Stop(stopCtx)
		}()
	}

	// HTTP surface
	gin.SetMode(gin.ReleaseMode)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: newRouter(srv, reg, cfg.Metrics.Path),
	}
	go func() {
		logger.Info("starting http server", "port", cfg.Metrics.Port)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	logger.Info("streamd running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)

	return nil
}

// startRecorder connects to TimescaleDB, applies the schema and starts the
// recorder with its writers. The returned func stops them in order.
func startRecorder(
	ctx context.Context,
	cfg *config.StreamdConfig,
	source writer.Source,
	m *metrics.Writers,
	logger *slog.Logger,
) (*pgxpool.Pool, func(), error) {
	logger.Info("connecting to database",
		"host", cfg.Database.Timescale.Host,
		"port", cfg.Database.Timescale.Port,
		"database", cfg.Database.Timescale.Name,
	)

	pool, err := database.Connect(ctx, cfg.Database.Timescale)
	if err != nil {
		return nil, nil, fmt.Errorf("connect timescale: %w", err)
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}

	symbols := append([]string(nil), cfg.Watchlist.Symbols...)
	for _, s := range cfg.Watchlist.Compare {
		if !slices.Contains(symbols, s) {
			symbols = append(symbols, s)
		}
	}

	wcfg := writer.WriterConfig{
		BatchSize:     cfg.Writers.BatchSize,
		FlushInterval: cfg.Writers.FlushInterval,
	}
	trades := router.NewBoundedBuffer[writer.TradeRecord](1024, cfg.Writers.BufferSize)
	bars := router.NewBoundedBuffer[writer.BarRecord](1024, cfg.Writers.BufferSize)

	tw := writer.NewTradeWriter(wcfg, trades, pool, m, logger)
	bw := writer.NewBarWriter(wcfg, bars, pool, m, logger)
	rec := writer.NewRecorder(symbols, source, trades, bars, logger)

	tw.Start(ctx)
	bw.Start(ctx)
	rec.Start()

	stop := func() {
		rec.Stop()
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		tw.Stop(stopCtx)
		bw.Stop(stopCtx)
		logger.Info("recorder stats",
			"recorded", rec.Stats(),
			"trades", tw.Stats(),
			"bars", bw.Stats(),
		)
	}

	logger.Info("recorder started", "symbols", symbols)
	return pool, stop, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
