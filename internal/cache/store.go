package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"healthScope/internal/model"
)

const (
	DefaultRetention       = 24 * time.Hour
	defaultCleanupInterval = 10 * time.Minute
)

// Store holds the latest fetched metrics per (address, network).
// Staleness is decided by the caller's max age on each read; the retention
// horizon only bounds memory for accounts that stopped being tracked.
type Store struct {
	items *gocache.Cache
	now   func() time.Time
}

type Option func(*Store)

// WithClock overrides the time source used by Get.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(retention time.Duration, opts ...Option) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	s := &Store{
		items: gocache.New(retention, defaultCleanupInterval),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the entry when it is younger than maxAge. maxAge <= 0 always misses.
func (s *Store) Get(key model.AccountKey, maxAge time.Duration) (model.CacheEntry, bool) {
	if maxAge <= 0 {
		return model.CacheEntry{}, false
	}
	entry, ok := s.Peek(key)
	if !ok {
		return model.CacheEntry{}, false
	}
	if entry.Age(s.now()) > maxAge {
		return model.CacheEntry{}, false
	}
	return entry, true
}

// Peek returns the entry regardless of age.
func (s *Store) Peek(key model.AccountKey) (model.CacheEntry, bool) {
	value, ok := s.items.Get(key.String())
	if !ok {
		return model.CacheEntry{}, false
	}
	entry, ok := value.(model.CacheEntry)
	return entry, ok
}

// Put replaces the entry for key.
func (s *Store) Put(key model.AccountKey, metrics model.AccountMetrics, fetchedAt time.Time) model.CacheEntry {
	entry := model.CacheEntry{Key: key, Metrics: metrics, FetchedAt: fetchedAt}
	s.items.SetDefault(key.String(), entry)
	return entry
}

func (s *Store) Delete(key model.AccountKey) {
	s.items.Delete(key.String())
}

func (s *Store) Len() int {
	return s.items.ItemCount()
}

// Now exposes the store clock so writers stamp entries with the same time source.
func (s *Store) Now() time.Time {
	return s.now()
}
