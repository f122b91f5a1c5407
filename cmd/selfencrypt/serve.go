package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/kenchrcum/selfencrypt/internal/config"
	"github.com/kenchrcum/selfencrypt/internal/metrics"
	"github.com/kenchrcum/selfencrypt/internal/middleware"
	"github.com/kenchrcum/selfencrypt/internal/selfenc"
	"github.com/kenchrcum/selfencrypt/internal/storage"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the health/readiness/metrics HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			stopTracing := startTracing(ctx, "selfencrypt-serve")
			defer stopTracing()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Metrics.Addr
				if addr == "" {
					addr = ":9090"
				}
			}

			m := metrics.NewMetricsWithConfig(metrics.Config{EnableBackendLabel: true})
			m.StartSystemMetricsCollector()

			hw := selfenc.DetectHardware()
			m.SetHardwareAccelerationStatus("aes", hw.AESHardware)

			store, err := storage.Open(ctx, cfg, m)
			if err != nil {
				return err
			}

			if err := config.WatchAndReload(configPath, func(*config.Config) {
				logger.Info("configuration reloaded")
			}); err != nil {
				logger.WithError(err).Debug("config hot-reload not active")
			}

			router := mux.NewRouter()
			router.Use(middleware.LoggingMiddleware(logger))
			router.Use(middleware.RecoveryMiddleware(logger))

			router.Handle("/metrics", m.Handler())
			router.Handle("/health", metrics.HealthHandler())
			router.Handle("/ready", metrics.ReadinessHandler(storage.HealthCheck(store)))
			router.Handle("/live", metrics.LivenessHandler())
			router.HandleFunc("/debug/hardware", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(hw)
			})

			srv := &http.Server{Addr: addr, Handler: router}

			errCh := make(chan error, 1)
			go func() {
				logger.WithField("addr", addr).Info("serving")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			case err := <-errCh:
				return fmt.Errorf("serve: %w", err)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "address to listen on (default: metrics.addr from config, or :9090)")
	return cmd
}
