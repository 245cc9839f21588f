package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"healthScope/internal/model"
	"healthScope/internal/storage/postgres"
	"healthScope/internal/storage/redisstore"
)

const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config selects and configures a KV backend.
type Config struct {
	Backend       string
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PostgresDSN   string
	Retry         RetryPolicy
}

// SnapshotWriter persists successful fetches for history.
type SnapshotWriter interface {
	UpsertSnapshots(ctx context.Context, snapshots []model.AccountSnapshot) error
}

// Backend is an opened KV plus the snapshot writer when the backend has one.
type Backend struct {
	KV        KV
	Snapshots SnapshotWriter
}

// Open connects to the configured backend, retrying network backends per cfg.Retry.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	onRetry := func(attempt int, err error) {
		logger.Warn("store connect retry",
			zap.String("backend", cfg.Backend),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendFile:
		store, err := OpenFile(cfg.Path)
		if err != nil {
			return Backend{}, err
		}
		return Backend{KV: store}, nil
	case BackendMemory:
		return Backend{KV: NewMemoryStore()}, nil
	case BackendRedis:
		var store *redisstore.Store
		err := WithRetry(ctx, cfg.Retry, func(ctx context.Context) error {
			var err error
			store, err = redisstore.New(ctx, redisstore.Config{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			return err
		}, onRetry)
		if err != nil {
			return Backend{}, err
		}
		return Backend{KV: store}, nil
	case BackendPostgres:
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return Backend{}, err
		}
		err = WithRetry(ctx, cfg.Retry, func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return store.Ping(pingCtx)
		}, onRetry)
		if err == nil {
			err = store.EnsureSchema(ctx)
		}
		if err != nil {
			store.Close()
			return Backend{}, fmt.Errorf("connect postgres: %w", err)
		}
		return Backend{KV: store, Snapshots: store}, nil
	default:
		return Backend{}, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}
