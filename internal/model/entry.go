package model

import "time"

// CacheEntry is one complete fetched snapshot. Entries are replaced, never patched.
type CacheEntry struct {
	Key       AccountKey
	Metrics   AccountMetrics
	FetchedAt time.Time
}

func (e CacheEntry) FetchedAtMillis() int64 {
	return e.FetchedAt.UnixMilli()
}

// Age returns how old the entry is at now.
func (e CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}
