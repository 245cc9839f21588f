package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"healthScope/internal/badge"
	"healthScope/internal/metrics"
	"healthScope/internal/model"
)

// DefaultRetryMinutes is used when a refresh fails before any tier is known.
const DefaultRetryMinutes = 5

// Tracker is the subset of the risk context the scheduler drives.
type Tracker interface {
	Pinned() (model.TrackedAccount, bool)
	Settings() model.Settings
	RefreshAccount(ctx context.Context, key model.AccountKey, maxAge time.Duration) (model.AccountStatus, error)
	Refresh(ctx context.Context, maxAge time.Duration, skip ...model.AccountKey) []model.AccountStatus
	Badge() badge.Badge
}

type Config struct {
	// Unit is the length of one delay minute. Tests shrink it.
	Unit         time.Duration
	RetryMinutes int
	// RefreshAll also refreshes every non-pinned account each cycle.
	RefreshAll   bool
	OthersMaxAge time.Duration
}

// Scheduler refreshes the pinned account on a timer whose period is
// recomputed from the resulting tier every cycle.
type Scheduler struct {
	tracker Tracker
	sink    badge.Sink
	metrics *metrics.Metrics
	cfg     Config
	logger  *zap.Logger
	trigger chan struct{}

	mu       sync.Mutex
	lastKey  model.AccountKey
	lastTier *model.RiskTier
}

func New(tracker Tracker, sink badge.Sink, m *metrics.Metrics, cfg Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Unit <= 0 {
		cfg.Unit = time.Minute
	}
	if cfg.RetryMinutes <= 0 {
		cfg.RetryMinutes = DefaultRetryMinutes
	}
	return &Scheduler{
		tracker: tracker,
		sink:    sink,
		metrics: m,
		cfg:     cfg,
		logger:  logger,
		trigger: make(chan struct{}, 1),
	}
}

// Trigger requests an immediate cycle. The timer restarts from that cycle.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run executes a cycle immediately, then one per computed delay until ctx ends.
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		case <-s.trigger:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		delay := s.RunCycle(ctx)
		if ctx.Err() != nil {
			return nil
		}
		timer.Reset(timerDuration(delay, s.cfg.Unit))
	}
}

// RunCycle force-refreshes the pinned account, publishes the badge and
// returns the delay in minutes until the next cycle. It never fails.
func (s *Scheduler) RunCycle(ctx context.Context) int {
	logger := s.logger.With(zap.String("cycle", uuid.NewString()))
	started := time.Now()
	policy := s.tracker.Settings().RefreshPolicy

	var (
		delay    int
		cycleErr error
		tier     model.RiskTier
		pinned   model.TrackedAccount
	)
	account, ok := s.tracker.Pinned()
	if !ok {
		s.forget()
		delay = s.cfg.RetryMinutes
		logger.Debug("no pinned account")
	} else {
		pinned = account
		key := account.Key()
		status, err := s.tracker.RefreshAccount(ctx, key, 0)
		switch {
		case err != nil:
			cycleErr = err
			if last, known := s.lastTierFor(key); known {
				tier = last
				delay = NextRefreshDelay(last, account.Network, policy)
			} else {
				delay = s.cfg.RetryMinutes
			}
			logger.Warn("refresh pinned account failed",
				zap.String("account", key.String()),
				zap.String("kind", model.ErrorKind(err)),
				zap.Error(err),
			)
		case status.Tier == nil:
			cycleErr = errors.New("refresh returned no tier")
			delay = s.cfg.RetryMinutes
		default:
			tier = *status.Tier
			s.remember(key, tier)
			delay = NextRefreshDelay(tier, account.Network, policy)
		}
	}

	if s.cfg.RefreshAll {
		var skip []model.AccountKey
		if ok {
			skip = append(skip, pinned.Key())
		}
		failed := 0
		statuses := s.tracker.Refresh(ctx, s.cfg.OthersMaxAge, skip...)
		for _, st := range statuses {
			if st.Failed() {
				failed++
			}
		}
		logger.Debug("refreshed tracked accounts",
			zap.Int("accounts", len(statuses)),
			zap.Int("failed", failed),
		)
	}

	if s.sink != nil {
		if err := s.sink.Publish(ctx, s.tracker.Badge()); err != nil {
			logger.Warn("publish badge failed", zap.Error(err))
		}
	}

	s.metrics.SetNextRefresh(delay)
	s.metrics.ObserveCycle(cycleErr)

	fields := []zap.Field{
		zap.Int("next_minutes", delay),
		zap.Duration("elapsed", time.Since(started)),
		zap.Bool("ok", cycleErr == nil),
	}
	if ok {
		fields = append(fields, zap.String("account", pinned.Key().String()), zap.Stringer("tier", tier))
	}
	logger.Info("cycle complete", fields...)
	return delay
}

func (s *Scheduler) lastTierFor(key model.AccountKey) (model.RiskTier, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastTier == nil || s.lastKey != key {
		return 0, false
	}
	return *s.lastTier, true
}

func (s *Scheduler) remember(key model.AccountKey, tier model.RiskTier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastKey = key
	s.lastTier = &tier
}

func (s *Scheduler) forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastKey = model.AccountKey{}
	s.lastTier = nil
}
