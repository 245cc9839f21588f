package fetch

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"healthScope/internal/aave"
	"healthScope/internal/cache"
	"healthScope/internal/metrics"
	"healthScope/internal/model"
	"healthScope/internal/registry"
)

// DefaultTimeout bounds one getUserAccountData call.
const DefaultTimeout = 30 * time.Second

// AccountDataCaller performs the raw eth_call for an account.
type AccountDataCaller interface {
	CallAccountData(ctx context.Context, network string, user common.Address) ([]byte, error)
}

// Config configures a Fetcher.
type Config struct {
	Timeout time.Duration
}

// Fetcher returns fresh-or-cached metrics and guarantees at most one
// outbound call per (address, network) at a time.
type Fetcher struct {
	registry *registry.Registry
	caller   AccountDataCaller
	cache    *cache.Store
	metrics  *metrics.Metrics
	logger   *zap.Logger
	timeout  time.Duration

	flights singleflight.Group
}

func New(cfg Config, reg *registry.Registry, caller AccountDataCaller, store *cache.Store, m *metrics.Metrics, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Fetcher{
		registry: reg,
		caller:   caller,
		cache:    store,
		metrics:  m,
		logger:   logger,
		timeout:  cfg.Timeout,
	}
}

// Cache returns the store the fetcher writes through to.
func (f *Fetcher) Cache() *cache.Store {
	return f.cache
}

// FetchAccount returns the account metrics, from cache when younger than maxAge.
// All failures are *model.FetchError values.
func (f *Fetcher) FetchAccount(ctx context.Context, account model.TrackedAccount, maxAge time.Duration) (model.AccountMetrics, error) {
	entry, err := f.FetchEntry(ctx, account, maxAge)
	if err != nil {
		return model.AccountMetrics{}, err
	}
	return entry.Metrics, nil
}

// FetchEntry is FetchAccount that also reports when the metrics were fetched.
func (f *Fetcher) FetchEntry(ctx context.Context, account model.TrackedAccount, maxAge time.Duration) (model.CacheEntry, error) {
	if _, err := f.registry.Lookup(account.Network); err != nil {
		return model.CacheEntry{}, model.NewFetchError(model.ErrUnknownNetwork, account, err)
	}

	key := account.Key()
	if entry, ok := f.cache.Get(key, maxAge); ok {
		f.metrics.ObserveCache(true)
		return entry, nil
	}
	f.metrics.ObserveCache(false)

	// The shared call must outlive any single waiter, so it only inherits values
	// from ctx and is bounded by the fetch timeout instead.
	flightCtx := context.WithoutCancel(ctx)
	ch := f.flights.DoChan(key.String(), func() (interface{}, error) {
		if entry, ok := f.cache.Get(key, maxAge); ok {
			return entry, nil
		}
		return f.fetch(flightCtx, account, key)
	})

	select {
	case <-ctx.Done():
		return model.CacheEntry{}, model.NewFetchError(classify(ctx.Err()), account, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return model.CacheEntry{}, res.Err
		}
		if res.Shared {
			f.logger.Debug("fetch joined in-flight call", zap.String("key", key.String()))
		}
		return res.Val.(model.CacheEntry), nil
	}
}

func (f *Fetcher) fetch(ctx context.Context, account model.TrackedAccount, key model.AccountKey) (model.CacheEntry, error) {
	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	data, err := f.caller.CallAccountData(callCtx, account.Network, account.Common())
	if err == nil {
		// A call that returned after the deadline still counts as a timeout.
		err = callCtx.Err()
	}
	if err != nil {
		fetchErr := model.NewFetchError(classify(err), account, err)
		f.metrics.ObserveFetch(account.Network, time.Since(start), fetchErr)
		f.logger.Warn("fetch account failed",
			zap.String("network", account.Network),
			zap.String("address", account.Address),
			zap.String("kind", model.ErrorKind(fetchErr)),
			zap.Error(err),
		)
		return model.CacheEntry{}, fetchErr
	}

	decoded, err := aave.DecodeAccountData(data)
	if err != nil {
		fetchErr := model.NewFetchError(model.ErrDecode, account, err)
		f.metrics.ObserveFetch(account.Network, time.Since(start), fetchErr)
		f.logger.Warn("decode account data failed",
			zap.String("network", account.Network),
			zap.String("address", account.Address),
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)
		return model.CacheEntry{}, fetchErr
	}

	entry := f.cache.Put(key, decoded.ApplyNoDebtOverride(), f.cache.Now())
	f.metrics.ObserveFetch(account.Network, time.Since(start), nil)
	f.logger.Debug("fetch account",
		zap.String("network", account.Network),
		zap.String("address", account.Address),
		zap.String("health_factor", entry.Metrics.HealthFactor.String()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return entry, nil
}

// classify maps a transport-level error onto the fetch error taxonomy.
func classify(err error) error {
	if errors.Is(err, model.ErrUnknownNetwork) {
		return model.ErrUnknownNetwork
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.ErrTimeout
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return model.ErrRPC
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return model.ErrRPC
	}
	return model.ErrTransport
}
