// Package store is a small TTL key-value store used for OAuth state and
// upload checkpoints.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNotFound is returned when a key is missing or has expired.
var ErrNotFound = errors.New("key not found")

// Store holds short-lived values. A ttl of 0 keeps the value until deleted.
type Store interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Take returns the value and removes it in one step.
	Take(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// Purger is implemented by backends that keep expired entries until they
// are removed explicitly.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// Config selects and configures a backend.
type Config struct {
	Driver       string // memory, sqlite or redis
	DatabasePath string
	RedisURL     string
}

// Open creates the configured backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	slog.Debug("opening store", "driver", cfg.Driver)

	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		s, err := NewSQLite(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case "redis":
		return NewRedis(ctx, cfg.RedisURL)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
