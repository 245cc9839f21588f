package tracker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"healthScope/internal/badge"
	"healthScope/internal/model"
	"healthScope/internal/risk"
)

// RefreshAccount fetches one account and records its status. The returned
// status reflects the failure when err is non-nil.
func (t *Tracker) RefreshAccount(ctx context.Context, key model.AccountKey, maxAge time.Duration) (model.AccountStatus, error) {
	account, ok := t.Account(key)
	if !ok {
		return model.AccountStatus{}, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	status, snapshot, err := t.refresh(ctx, account, maxAge)
	if snapshot != nil {
		t.writeSnapshots(ctx, []model.AccountSnapshot{*snapshot})
	}
	return status, err
}

// Refresh fetches every tracked account except those in skip, with bounded
// concurrency. One account failing never stops the others.
func (t *Tracker) Refresh(ctx context.Context, maxAge time.Duration, skip ...model.AccountKey) []model.AccountStatus {
	excluded := make(map[model.AccountKey]bool, len(skip))
	for _, k := range skip {
		excluded[k] = true
	}

	accounts := t.Accounts()
	targets := accounts[:0:0]
	for _, a := range accounts {
		if !excluded[a.Key()] {
			targets = append(targets, a)
		}
	}

	statuses := make([]model.AccountStatus, len(targets))
	snapshots := make([]*model.AccountSnapshot, len(targets))

	var g errgroup.Group
	g.SetLimit(t.opts.Concurrency)
	for i, account := range targets {
		i, account := i, account
		g.Go(func() error {
			statuses[i], snapshots[i], _ = t.refresh(ctx, account, maxAge)
			return nil
		})
	}
	_ = g.Wait()

	batch := make([]model.AccountSnapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if s != nil {
			batch = append(batch, *s)
		}
	}
	t.writeSnapshots(ctx, batch)
	return statuses
}

func (t *Tracker) refresh(ctx context.Context, account model.TrackedAccount, maxAge time.Duration) (model.AccountStatus, *model.AccountSnapshot, error) {
	if t.fetcher == nil {
		return model.AccountStatus{}, nil, fmt.Errorf("tracker has no fetcher")
	}
	entry, err := t.fetcher.FetchEntry(ctx, account, maxAge)
	now := t.opts.Now()
	if err != nil {
		status := model.NewErrorStatus(account, err, now)
		t.setStatus(account.Key(), status)
		return status, nil, err
	}

	thresholds := t.Settings().Thresholds
	tier := risk.ClassifyMetrics(entry.Metrics, thresholds)
	status := model.NewOKStatus(account, entry.Metrics, tier, entry.FetchedAt)
	t.setStatus(account.Key(), status)
	t.opts.Metrics.ObserveAccount(account.Key(), entry.Metrics.HealthFactor, tier)

	snapshot := model.NewAccountSnapshot(account, entry.Metrics, tier, entry.FetchedAt)
	return status, &snapshot, nil
}

func (t *Tracker) setStatus(key model.AccountKey, status model.AccountStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// Skip accounts removed while their fetch was in flight.
	if t.indexLocked(key) < 0 {
		return
	}
	t.statuses[key] = status
}

func (t *Tracker) writeSnapshots(ctx context.Context, snapshots []model.AccountSnapshot) {
	if t.opts.Snapshots == nil || len(snapshots) == 0 {
		return
	}
	if err := t.opts.Snapshots.UpsertSnapshots(ctx, snapshots); err != nil {
		t.logger.Warn("write snapshots failed", zap.Int("count", len(snapshots)), zap.Error(err))
	}
}

// Status returns the latest recorded outcome for an account.
func (t *Tracker) Status(key model.AccountKey) (model.AccountStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	status, ok := t.statuses[key]
	return status, ok
}

// Statuses returns one entry per tracked account in insertion order.
// Accounts never refreshed carry only their account.
func (t *Tracker) Statuses() []model.AccountStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]model.AccountStatus, 0, len(t.accounts))
	for _, a := range t.accounts {
		status, ok := t.statuses[a.Key()]
		if !ok {
			status = model.AccountStatus{Account: a}
		}
		out = append(out, status)
	}
	return out
}

// Project renders the latest status of an account with the configured display field.
func (t *Tracker) Project(key model.AccountKey) (badge.Badge, error) {
	status, ok := t.Status(key)
	if !ok {
		return badge.Badge{}, fmt.Errorf("no status for %s", key)
	}
	var b badge.Badge
	switch {
	case status.Failed():
		b = badge.ErrorBadge(fmt.Errorf("%s", status.Error))
	case status.Metrics == nil || status.Tier == nil:
		return badge.Badge{}, fmt.Errorf("no metrics for %s", key)
	default:
		b = badge.Project(*status.Metrics, *status.Tier, t.Settings().DisplayField)
	}
	b.Account = key.String()
	b.UpdatedAt = status.UpdatedAt
	return b, nil
}
