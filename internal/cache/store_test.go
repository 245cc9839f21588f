package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthScope/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var testKey = model.NewAccountKey("0x1111111111111111111111111111111111111111", "ethereum")

func testMetrics(collateral int64) model.AccountMetrics {
	return model.AccountMetrics{
		TotalCollateralUSD: decimal.NewFromInt(collateral),
		HealthFactor:       model.InfiniteHealthFactor(),
	}
}

func TestStoreGetHonoursMaxAge(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := New(time.Hour, WithClock(clock.Now))

	_, ok := store.Get(testKey, time.Minute)
	assert.False(t, ok, "empty store must miss")

	store.Put(testKey, testMetrics(100), clock.Now())

	entry, ok := store.Get(testKey, time.Minute)
	require.True(t, ok)
	assert.True(t, entry.Metrics.TotalCollateralUSD.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, clock.Now().UnixMilli(), entry.FetchedAtMillis())

	clock.Advance(time.Minute)
	_, ok = store.Get(testKey, time.Minute)
	assert.True(t, ok, "entry exactly max age old is still fresh")

	clock.Advance(time.Millisecond)
	_, ok = store.Get(testKey, time.Minute)
	assert.False(t, ok, "entry older than max age must miss")

	_, ok = store.Peek(testKey)
	assert.True(t, ok, "peek ignores age")
}

func TestStoreNonPositiveMaxAgeMisses(t *testing.T) {
	store := New(0)
	store.Put(testKey, testMetrics(1), store.Now())

	_, ok := store.Get(testKey, 0)
	assert.False(t, ok)
	_, ok = store.Get(testKey, -time.Second)
	assert.False(t, ok)
}

func TestStorePutReplaces(t *testing.T) {
	store := New(time.Hour)
	store.Put(testKey, testMetrics(1), store.Now())
	store.Put(testKey, testMetrics(2), store.Now())

	entry, ok := store.Get(testKey, time.Hour)
	require.True(t, ok)
	assert.True(t, entry.Metrics.TotalCollateralUSD.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, 1, store.Len())

	store.Delete(testKey)
	assert.Equal(t, 0, store.Len())
}

func TestStoreKeysAreCaseInsensitive(t *testing.T) {
	store := New(time.Hour)
	store.Put(model.NewAccountKey("0xABCDEFABCDEFABCDEFABCDEFABCDEFABCDEFABCD", "Base"), testMetrics(5), store.Now())

	_, ok := store.Get(model.NewAccountKey("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd", "base"), time.Hour)
	assert.True(t, ok)
}

func TestStoreGetIsIdempotent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("repeated get without put returns the same result", prop.ForAll(
		func(ageSeconds, maxAgeSeconds int64) bool {
			clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
			store := New(time.Hour, WithClock(clock.Now))
			store.Put(testKey, testMetrics(ageSeconds), clock.Now().Add(-time.Duration(ageSeconds)*time.Second))

			maxAge := time.Duration(maxAgeSeconds) * time.Second
			first, ok1 := store.Get(testKey, maxAge)
			second, ok2 := store.Get(testKey, maxAge)
			return ok1 == ok2 &&
				first.FetchedAt.Equal(second.FetchedAt) &&
				first.Metrics.TotalCollateralUSD.Equal(second.Metrics.TotalCollateralUSD)
		},
		gen.Int64Range(0, 3000),
		gen.Int64Range(-10, 3000),
	))

	properties.TestingRun(t)
}
