package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kenchrcum/selfencrypt/internal/config"
)

// Redis is a Storage collaborator backed by a Redis (or Redis-compatible)
// server. Each chunk is a single key holding its raw ciphertext, under the
// configured key prefix.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis builds a Redis-backed Storage from cfg.
func NewRedis(cfg config.RedisConfig) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		prefix: cfg.Prefix,
	}
}

func (r *Redis) key(name []byte) string {
	return r.prefix + hex.EncodeToString(name)
}

// Get implements selfenc.Storage.
func (r *Redis) Get(ctx context.Context, name []byte) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("storage: no such chunk %x", name)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get %x: %w", name, err)
	}
	return data, nil
}

// Put implements selfenc.Storage.
func (r *Redis) Put(ctx context.Context, name []byte, data []byte) error {
	if err := r.client.Set(ctx, r.key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("storage: put %x: %w", name, err)
	}
	return nil
}

// Delete implements selfenc.Storage.
func (r *Redis) Delete(ctx context.Context, name []byte) error {
	if err := r.client.Del(ctx, r.key(name)).Err(); err != nil {
		return fmt.Errorf("storage: delete %x: %w", name, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
