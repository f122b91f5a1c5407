// Command selfencrypt is a CLI and debug HTTP server around the self
// encryption engine: it encrypts a file into a chunk store plus a data map,
// decrypts a data map back into a file, inspects a data map's chunk layout,
// and serves health/readiness/metrics endpoints for long-running use.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kenchrcum/selfencrypt/internal/config"
	"github.com/kenchrcum/selfencrypt/internal/debug"
	"github.com/kenchrcum/selfencrypt/internal/tracing"
)

var (
	configPath string
	logLevel   string
	logger     = logrus.New()
)

func main() {
	root := &cobra.Command{
		Use:   "selfencrypt",
		Short: "Convergent content self-encryption CLI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
			}
			logger.SetLevel(level)
			logger.SetFormatter(&logrus.JSONFormatter{})
			debug.InitFromLogLevel(logLevel)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (YAML/JSON/TOML)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(newEncryptCmd(), newDecryptCmd(), newInspectCmd(), newServeCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		logger.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func startTracing(ctx context.Context, serviceName string) func() {
	shutdown, err := tracing.InitFromEnv(ctx, serviceName)
	if err != nil {
		logger.WithError(err).Warn("tracing: continuing without a tracer provider")
		return func() {}
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			logger.WithError(err).Warn("tracing: shutdown failed")
		}
	}
}
