package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize/english"
	"github.com/joho/godotenv"

	"price-watcher/internal/app"
	"price-watcher/internal/config"
	"price-watcher/internal/price"
	"price-watcher/scheduler"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	var (
		once    = flag.Bool("once", false, "Run a single price check and exit")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg.LogLevel, *verbose)
	if cfg.WebhookURL == "" {
		logger.Warn("DISCORD_WEBHOOK_URL is not set, notifications are disabled")
	}
	if len(cfg.Items) == 0 {
		logger.Warnf("No items configured in %s", cfg.ConfigPath)
	}

	application := app.New(cfg, logger, os.Stdin, os.Stdout)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		report, err := application.Runner.RunOnce(ctx)
		if err != nil {
			logger.Fatalf("Price check failed: %v", err)
		}
		for _, r := range report.Results {
			if !r.OK {
				logger.Warnf("%s: %s", r.Item.Name, r.Error)
				continue
			}
			logger.Infof("%s: %s", r.Item.Name, price.Format(r.Observation.AmountMinorUnits))
		}
		return
	}

	priceWatcher := scheduler.NewPriceWatcher(cfg, logger, application.Runner)
	if err := priceWatcher.Start(ctx); err != nil {
		logger.Fatalf("Failed to start watcher: %v", err)
	}
	logger.Infof("Watching %s, press Ctrl+C to stop", english.Plural(len(cfg.Items), "item", "items"))

	<-ctx.Done()
	logger.Info("Shutting down")
	priceWatcher.Stop()
}
