package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"healthScope/internal/cache"
	"healthScope/internal/chain"
	"healthScope/internal/config"
	"healthScope/internal/fetch"
	"healthScope/internal/metrics"
	"healthScope/internal/registry"
	"healthScope/internal/storage"
	"healthScope/internal/tracker"
)

// app is the wired pipeline shared by the commands.
type app struct {
	logger   *zap.Logger
	registry *registry.Registry
	backend  storage.Backend
	metrics  *metrics.Metrics
	provider *chain.Provider
	fetcher  *fetch.Fetcher
	tracker  *tracker.Tracker
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}

	backend, err := storage.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	provider := chain.NewProvider(reg, chain.DialClient, chain.ProviderConfig{
		RatePerSecond: cfg.RPCRate,
		Burst:         cfg.RPCBurst,
	}, logger)
	fetcher := fetch.New(fetch.Config{Timeout: cfg.RPCTimeout}, reg, provider, cache.New(cfg.CacheRetention), m, logger)

	t := tracker.New(backend.KV, fetcher, tracker.Options{
		Registry:    reg,
		Concurrency: cfg.Concurrency,
		Snapshots:   backend.Snapshots,
		Metrics:     m,
	}, logger)
	if err := t.Load(ctx); err != nil {
		provider.Close()
		_ = backend.KV.Close()
		return nil, err
	}

	return &app{
		logger:   logger,
		registry: reg,
		backend:  backend,
		metrics:  m,
		provider: provider,
		fetcher:  fetcher,
		tracker:  t,
	}, nil
}

func (a *app) Close() {
	a.provider.Close()
	if err := a.backend.KV.Close(); err != nil {
		a.logger.Warn("close store", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// openApp loads the shared config and wires the pipeline for commands that
// only manage state.
func openApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, logger)
}
