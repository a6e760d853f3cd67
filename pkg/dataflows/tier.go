package dataflows

import (
	"context"
	"time"
)

// Entry is one cached payload with its freshness metadata.
type Entry struct {
	Payload   []byte        `json:"payload"`
	FetchedAt time.Time     `json:"fetched_at"`
	TTL       time.Duration `json:"ttl"`
}

// Expired reports whether the entry's TTL has elapsed at the given time.
// A zero TTL never expires.
func (e *Entry) Expired(now time.Time) bool {
	if e.TTL == 0 {
		return false
	}
	return now.After(e.FetchedAt.Add(e.TTL))
}

// Tier is one layer of the cache hierarchy. Implementations must be safe for
// concurrent use; tiers are shared by every session in the process.
//
// Get returns (entry, true, nil) on a hit even when the entry is expired;
// the resolver decides whether stale data is acceptable.
type Tier interface {
	Name() string
	Get(ctx context.Context, key string) (*Entry, bool, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}
