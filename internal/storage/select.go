package storage

import (
	"context"
	"fmt"

	"github.com/kenchrcum/selfencrypt/internal/config"
	"github.com/kenchrcum/selfencrypt/internal/metrics"
	"github.com/kenchrcum/selfencrypt/internal/selfenc"
)

// Open builds the Storage collaborator named by cfg.StorageBackend,
// instrumented with m if non-nil.
func Open(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (selfenc.Storage, error) {
	var (
		backend string
		inner   selfenc.Storage
		err     error
	)

	switch cfg.StorageBackend {
	case "", "memory":
		backend = "memory"
		inner = NewMemory()
	case "disk":
		backend = "disk"
		inner, err = NewDisk(cfg.Disk.RootDir)
	case "s3":
		backend = "s3"
		inner, err = NewS3(ctx, cfg.S3)
	case "redis":
		backend = "redis"
		inner = NewRedis(cfg.Redis)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.StorageBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", backend, err)
	}

	if m == nil {
		return inner, nil
	}
	return Instrument(backend, inner, m), nil
}

// HealthCheck returns a readiness probe for store: a round-trip
// put/get/delete against a throwaway key.
func HealthCheck(store selfenc.Storage) func(context.Context) error {
	return func(ctx context.Context) error {
		name := []byte("selfencrypt-healthcheck")
		if err := store.Put(ctx, name, []byte("ok")); err != nil {
			return fmt.Errorf("healthcheck put: %w", err)
		}
		if _, err := store.Get(ctx, name); err != nil {
			return fmt.Errorf("healthcheck get: %w", err)
		}
		return store.Delete(ctx, name)
	}
}
