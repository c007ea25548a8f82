// streamtest connects to the vendor WebSocket and prints decoded trades and
// bars for a few symbols to the console.
// Usage: go run ./cmd/streamtest --symbols AAPL,MSFT
//
// Required environment variables (or an .env file):
//
//	POLYGON_API_KEY - API key used for the in-band auth message
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rickgao/stockstream/internal/auth"
	"github.com/rickgao/stockstream/internal/config"
	"github.com/rickgao/stockstream/internal/connection"
	"github.com/rickgao/stockstream/internal/model"
)

func main() {
	symbolsFlag := flag.String("symbols", "AAPL", "comma separated symbols to stream")
	wsURL := flag.String("url", config.DefaultWSURL, "WebSocket URL")
	bars := flag.Bool("bars", true, "subscribe to per-minute bars")
	trades := flag.Bool("trades", true, "subscribe to trades")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load .env", "error", err)
	}

	creds, err := auth.Resolve(os.Getenv("POLYGON_API_KEY"), os.Getenv("POLYGON_API_KEY_FILE"))
	if err != nil {
		logger.Error("API credentials required", "error", err)
		logger.Info("Set POLYGON_API_KEY or POLYGON_API_KEY_FILE")
		os.Exit(1)
	}
	logger.Info("using API credentials", "key", creds)

	var symbols []string
	for _, s := range strings.Split(*symbolsFlag, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			symbols = append(symbols, s)
		}
	}
	if len(symbols) == 0 {
		logger.Error("no symbols given")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	clientCfg := connection.DefaultClientConfig()
	clientCfg.URL = *wsURL
	mgrCfg := connection.DefaultManagerConfig()
	mgrCfg.Client = clientCfg

	mgr := connection.NewManager(mgrCfg, creds, logger)

	mgr.AddConnectionStateHandler(func(s connection.State) {
		fmt.Printf("[STATE] %s\n", s)
	})

	printAll := func(msgs []model.Message) {
		for _, msg := range msgs {
			printMessage(msg, *verbose)
		}
	}
	if *trades {
		mgr.AddMessageHandler(model.NewSubscription(model.EventTrade, symbols...), printAll)
	}
	if *bars {
		mgr.AddMessageHandler(model.NewSubscription(model.EventAggregate, symbols...), printAll)
	}

	logger.Info("starting stream", "url", *wsURL, "symbols", symbols)
	if err := mgr.Start(ctx); err != nil {
		logger.Error("failed to start stream", "error", err)
		os.Exit(1)
	}

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := mgr.Stats()
				logger.Info("stats",
					"state", stats.State,
					"frames_received", stats.FramesReceived,
					"frames_sent", stats.FramesSent,
					"invalid_frames", stats.InvalidFrames,
					"reconnects", stats.Reconnects,
					"subscriptions", mgr.Desired(),
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down...")
	if err := mgr.Stop(shutdownCtx); err != nil {
		logger.Warn("stop failed", "error", err)
	}
	logger.Info("shutdown complete")
}

func printMessage(msg model.Message, verbose bool) {
	if verbose {
		data, _ := json.MarshalIndent(msg, "", "  ")
		fmt.Printf("[%s] %s\n", msg.Event, data)
		return
	}

	switch msg.Event {
	case model.EventTrade:
		t := msg.Trade
		fmt.Printf("[TRADE] %s price=%.4f size=%.0f exchange=%d at=%s\n",
			t.Symbol, t.Price, t.Size, t.ExchangeID, time.UnixMilli(t.Timestamp).Format(time.TimeOnly))
	case model.EventAggregate:
		a := msg.Aggregate
		fmt.Printf("[BAR] %s o=%.2f h=%.2f l=%.2f c=%.2f v=%.0f start=%s\n",
			a.Symbol, a.Open, a.High, a.Low, a.Close, a.Volume,
			time.UnixMilli(a.StartTimestamp).Format(time.TimeOnly))
	}
}
