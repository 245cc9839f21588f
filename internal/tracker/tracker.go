package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"healthScope/internal/badge"
	"healthScope/internal/metrics"
	"healthScope/internal/model"
	"healthScope/internal/registry"
	"healthScope/internal/storage"
)

const (
	keyAccounts = "accounts"
	keyPinned   = "pinned"
	keySettings = "settings"

	defaultConcurrency = 4
)

var (
	ErrAccountExists   = errors.New("account already tracked")
	ErrAccountNotFound = errors.New("account not tracked")
)

// Fetcher returns fresh-or-cached metrics for an account.
type Fetcher interface {
	FetchEntry(ctx context.Context, account model.TrackedAccount, maxAge time.Duration) (model.CacheEntry, error)
}

// Options tune a Tracker. Zero values are usable.
type Options struct {
	Registry    *registry.Registry
	Concurrency int
	Snapshots   storage.SnapshotWriter
	Metrics     *metrics.Metrics
	Now         func() time.Time
}

// Tracker is the per-instance risk context: the tracked accounts, the pinned
// account, user settings and the latest outcome per account.
type Tracker struct {
	kv      storage.KV
	fetcher Fetcher
	opts    Options
	logger  *zap.Logger

	mu       sync.RWMutex
	accounts []model.TrackedAccount
	pinned   *model.AccountKey
	settings model.Settings
	statuses map[model.AccountKey]model.AccountStatus
}

func New(kv storage.KV, fetcher Fetcher, opts Options, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if kv == nil {
		kv = storage.NewMemoryStore()
	}
	return &Tracker{
		kv:       kv,
		fetcher:  fetcher,
		opts:     opts,
		logger:   logger,
		settings: model.DefaultSettings(),
		statuses: make(map[model.AccountKey]model.AccountStatus),
	}
}

// Load replaces in-memory state with what the store holds. Missing documents keep defaults.
func (t *Tracker) Load(ctx context.Context) error {
	var accounts []model.TrackedAccount
	if _, err := t.getJSON(ctx, keyAccounts, &accounts); err != nil {
		return err
	}

	settings := model.DefaultSettings()
	if _, err := t.getJSON(ctx, keySettings, &settings); err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("stored settings: %w", err)
	}

	var pinnedText string
	hasPin, err := t.getJSON(ctx, keyPinned, &pinnedText)
	if err != nil {
		return err
	}

	seen := make(map[model.AccountKey]bool, len(accounts))
	clean := make([]model.TrackedAccount, 0, len(accounts))
	for _, a := range accounts {
		normalized, err := model.NewTrackedAccount(a.Address, a.Network, a.Label)
		if err != nil {
			t.logger.Warn("skip stored account", zap.String("address", a.Address), zap.Error(err))
			continue
		}
		if seen[normalized.Key()] {
			continue
		}
		seen[normalized.Key()] = true
		clean = append(clean, normalized)
	}

	var pinned *model.AccountKey
	if hasPin && pinnedText != "" {
		key, err := model.ParseAccountKey(pinnedText)
		if err == nil && seen[key] {
			pinned = &key
		} else {
			t.logger.Warn("drop stale pinned account", zap.String("pinned", pinnedText))
		}
	}

	t.mu.Lock()
	t.accounts = clean
	t.settings = settings
	t.pinned = pinned
	t.mu.Unlock()

	t.logger.Info("tracker loaded",
		zap.Int("accounts", len(clean)),
		zap.Bool("pinned", pinned != nil),
	)
	return nil
}

// Add tracks a new account. The first account added is pinned automatically.
func (t *Tracker) Add(ctx context.Context, account model.TrackedAccount) error {
	if t.opts.Registry != nil {
		if _, err := t.opts.Registry.Lookup(account.Network); err != nil {
			return err
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	key := account.Key()
	if t.indexLocked(key) >= 0 {
		return fmt.Errorf("%w: %s", ErrAccountExists, key)
	}
	t.accounts = append(t.accounts, account)
	if err := t.saveAccountsLocked(ctx); err != nil {
		t.accounts = t.accounts[:len(t.accounts)-1]
		return err
	}
	if t.pinned == nil {
		return t.setPinLocked(ctx, &key)
	}
	return nil
}

// Remove stops tracking an account and clears the pin if it pointed at it.
func (t *Tracker) Remove(ctx context.Context, key model.AccountKey) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.indexLocked(key)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	previous := t.accounts
	t.accounts = append(append([]model.TrackedAccount(nil), previous[:idx]...), previous[idx+1:]...)
	if err := t.saveAccountsLocked(ctx); err != nil {
		t.accounts = previous
		return err
	}
	delete(t.statuses, key)
	t.opts.Metrics.ForgetAccount(key)
	if t.pinned != nil && *t.pinned == key {
		return t.setPinLocked(ctx, nil)
	}
	return nil
}

func (t *Tracker) SetLabel(ctx context.Context, key model.AccountKey, label string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.indexLocked(key)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	previous := t.accounts[idx]
	updated := previous
	updated.Label = label
	t.accounts[idx] = updated
	if err := t.saveAccountsLocked(ctx); err != nil {
		t.accounts[idx] = previous
		return err
	}
	return nil
}

// Pin designates the account that drives the badge.
func (t *Tracker) Pin(ctx context.Context, key model.AccountKey) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.indexLocked(key) < 0 {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	return t.setPinLocked(ctx, &key)
}

func (t *Tracker) Unpin(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.setPinLocked(ctx, nil)
}

// Pinned returns the pinned account, if any.
func (t *Tracker) Pinned() (model.TrackedAccount, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.pinned == nil {
		return model.TrackedAccount{}, false
	}
	idx := t.indexLocked(*t.pinned)
	if idx < 0 {
		return model.TrackedAccount{}, false
	}
	return t.accounts[idx], true
}

// Accounts returns the tracked accounts in insertion order.
func (t *Tracker) Accounts() []model.TrackedAccount {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]model.TrackedAccount(nil), t.accounts...)
}

// Account looks up one tracked account.
func (t *Tracker) Account(key model.AccountKey) (model.TrackedAccount, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx := t.indexLocked(key)
	if idx < 0 {
		return model.TrackedAccount{}, false
	}
	return t.accounts[idx], true
}

func (t *Tracker) Settings() model.Settings {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.settings.Clone()
}

// UpdateSettings validates and persists new settings. Invalid settings are rejected unchanged.
func (t *Tracker) UpdateSettings(ctx context.Context, settings model.Settings) error {
	if settings.DisplayField == "" {
		settings.DisplayField = model.FieldHealthFactor
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	settings = settings.Clone()

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.putJSON(ctx, keySettings, settings); err != nil {
		return err
	}
	t.settings = settings
	return nil
}

func (t *Tracker) indexLocked(key model.AccountKey) int {
	for i, a := range t.accounts {
		if a.Key() == key {
			return i
		}
	}
	return -1
}

func (t *Tracker) saveAccountsLocked(ctx context.Context) error {
	accounts := t.accounts
	if accounts == nil {
		accounts = []model.TrackedAccount{}
	}
	return t.putJSON(ctx, keyAccounts, accounts)
}

func (t *Tracker) setPinLocked(ctx context.Context, key *model.AccountKey) error {
	if key == nil {
		if err := t.kv.Delete(ctx, keyPinned); err != nil {
			return fmt.Errorf("delete %s: %w", keyPinned, err)
		}
		t.pinned = nil
		return nil
	}
	if err := t.putJSON(ctx, keyPinned, key.String()); err != nil {
		return err
	}
	pinned := *key
	t.pinned = &pinned
	return nil
}

func (t *Tracker) getJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, ok, err := t.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return true, nil
}

func (t *Tracker) putJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := t.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Badge projects the pinned account's latest status.
func (t *Tracker) Badge() badge.Badge {
	account, ok := t.Pinned()
	if !ok {
		return badge.Empty()
	}
	b, err := t.Project(account.Key())
	if err != nil {
		b = badge.Empty()
		b.Account = account.Key().String()
	}
	return b
}
