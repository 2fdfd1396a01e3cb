// Package app wires the watcher components for the command line entry points.
package app

import (
	"io"

	"github.com/sirupsen/logrus"

	"price-watcher/extractor"
	"price-watcher/internal/types"
	"price-watcher/notify"
	"price-watcher/utils"
)

// NewLogger creates the process logger. An explicit level wins over verbose.
func NewLogger(level string, verbose bool) *logrus.Logger {
	logger := logrus.New()

	// Set timestamp format with milliseconds
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	switch {
	case verbose:
		logger.SetLevel(logrus.DebugLevel)
	case level != "":
		if parsed, err := logrus.ParseLevel(level); err == nil {
			logger.SetLevel(parsed)
		} else {
			logger.Warnf("Unknown log level %q, using info", level)
			logger.SetLevel(logrus.InfoLevel)
		}
	default:
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}

// App holds the wired components of one watcher process
type App struct {
	Config    *types.Config
	Logger    types.Logger
	Escalator *extractor.Escalator
	Runner    *extractor.Runner
	Webhook   *notify.Webhook
}

// New wires the browser, the operator gate on in/out, the stores and the
// webhook into a runner.
func New(config *types.Config, logger types.Logger, in io.Reader, out io.Writer) *App {
	browser := utils.NewBrowserClient(config, logger)
	gate := utils.NewConsoleGate(in, out, logger)
	materials := utils.NewMaterialStore(config.StoragePath)
	debug := utils.NewDebugWriter(config.DebugDir, logger)
	webhook := notify.NewWebhook(config, logger)

	escalator := extractor.NewEscalator(config, logger, browser, gate, materials, debug)
	return &App{
		Config:    config,
		Logger:    logger,
		Escalator: escalator,
		Runner:    extractor.NewRunner(config, logger, escalator, webhook),
		Webhook:   webhook,
	}
}

// Close releases the webhook client
func (a *App) Close() {
	a.Webhook.Close()
}
