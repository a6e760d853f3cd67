package dataflows

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/go-go-golems/gekko/pkg/reasoning"
)

// ErrNoSuchData is the permanent failure a provider returns when it simply
// does not carry the requested data.
var ErrNoSuchData = errors.New("no such data")

// Source values beyond tier names.
const (
	// SourceStale marks a payload served from an expired cache entry after
	// every provider failed.
	SourceStale = "stale"
	// SourceNone marks a no-data result. Callers must treat it as valid
	// input, not a failure.
	SourceNone = "none"
)

// Result is the outcome of a resolution. When NoData is set the payload is
// empty and Source is SourceNone; this is a valid result, not an error.
type Result struct {
	Payload []byte
	Source  string
	NoData  bool
}

// Resolver queries cache tiers fastest-first, then upstream providers in
// declared fallback order. All tiers and the singleflight group are shared
// process-wide, so unrelated sessions de-duplicate their fetches against
// each other.
type Resolver struct {
	tiers     []Tier
	providers []Provider
	retry     reasoning.RetryPolicy
	online    bool
	ttlFor    func(Kind) time.Duration

	mu      sync.RWMutex
	timeout time.Duration

	group singleflight.Group
}

type ResolverOption func(*Resolver)

// WithRetryPolicy overrides the per-provider retry policy.
func WithRetryPolicy(p reasoning.RetryPolicy) ResolverOption {
	return func(r *Resolver) { r.retry = p }
}

// WithFetchTimeout bounds each individual provider attempt.
func WithFetchTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.timeout = d }
}

// SetFetchTimeout replaces the per-attempt provider timeout after
// construction. The orchestrator applies the session's configured call
// timeout here; the resolver is shared process-wide, so the most recent
// setting wins.
func (r *Resolver) SetFetchTimeout(d time.Duration) {
	r.mu.Lock()
	r.timeout = d
	r.mu.Unlock()
}

func (r *Resolver) fetchTimeout() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.timeout
}

// WithOnlineTools toggles live provider fetches. When disabled, resolution
// is cache-only and misses degrade to stale entries or no-data results.
func WithOnlineTools(online bool) ResolverOption {
	return func(r *Resolver) { r.online = online }
}

// WithTTLFunc sets the freshness window per data kind for write-through.
func WithTTLFunc(f func(Kind) time.Duration) ResolverOption {
	return func(r *Resolver) { r.ttlFor = f }
}

// NewResolver creates a resolver over the given tiers (fastest first) and
// providers (preferred first).
func NewResolver(tiers []Tier, providers []Provider, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		tiers:     tiers,
		providers: providers,
		retry:     reasoning.DefaultRetryPolicy(),
		timeout:   30 * time.Second,
		online:    true,
		ttlFor:    func(Kind) time.Duration { return 6 * time.Hour },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the payload for a request together with the source that
// served it. The only error it returns is context cancellation; provider
// failures are absorbed into stale or no-data results.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	key := req.Key()
	now := time.Now()

	// 1. cache tiers, fastest first
	for _, tier := range r.tiers {
		entry, ok, err := tier.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("tier", tier.Name()).Str("request", req.String()).
				Msg("cache tier read failed, trying next")
			continue
		}
		if ok && !entry.Expired(now) {
			return &Result{Payload: entry.Payload, Source: tier.Name()}, nil
		}
	}

	// 2. upstream providers, unless cache-only
	if r.online && len(r.providers) > 0 {
		fetch := func() (interface{}, error) {
			return r.fetchUpstream(ctx, req)
		}
		res, err, _ := r.group.Do(key, fetch)
		if err != nil && ctx.Err() == nil && errors.Is(err, context.Canceled) {
			// the shared fetch died with the initiating caller's
			// cancellation; this caller is still live, so issue its own
			res, err, _ = r.group.Do(key, fetch)
		}
		if err == nil {
			return res.(*Result), nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Err(err).Str("request", req.String()).
			Msg("all providers failed, falling back to stale cache")
	}

	// 3. last resort, the freshest expired entry across all tiers
	if stale := r.newestStale(ctx, key); stale != nil {
		return &Result{Payload: stale.Payload, Source: SourceStale}, nil
	}

	// 4. explicit no-data result
	return &Result{Source: SourceNone, NoData: true}, nil
}

// fetchUpstream walks the providers in declared order and writes the first
// success through every tier. It runs inside the singleflight group, so at
// most one invocation per key is in flight process-wide.
func (r *Resolver) fetchUpstream(ctx context.Context, req Request) (*Result, error) {
	var lastErr error
	timeout := r.fetchTimeout()
	for _, provider := range r.providers {
		var payload []byte
		err := r.retry.Do(ctx, func(ctx context.Context) error {
			fetchCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				fetchCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			var fetchErr error
			payload, fetchErr = provider.Fetch(fetchCtx, req)
			return fetchErr
		})
		if err != nil {
			lastErr = err
			log.Debug().Err(err).Str("provider", provider.Name()).Str("request", req.String()).
				Msg("provider fetch failed, falling back")
			continue
		}

		ttl := r.ttlFor(req.Kind)
		for _, tier := range r.tiers {
			if err := tier.Set(ctx, req.Key(), payload, ttl); err != nil {
				log.Warn().Err(err).Str("tier", tier.Name()).Msg("cache write-through failed")
			}
		}
		return &Result{Payload: payload, Source: "provider:" + provider.Name()}, nil
	}
	if lastErr == nil {
		lastErr = ErrNoSuchData
	}
	return nil, lastErr
}

// newestStale returns the most recently fetched expired entry for the key,
// or nil when no tier holds one.
func (r *Resolver) newestStale(ctx context.Context, key string) *Entry {
	var newest *Entry
	for _, tier := range r.tiers {
		entry, ok, err := tier.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		if newest == nil || entry.FetchedAt.After(newest.FetchedAt) {
			newest = entry
		}
	}
	return newest
}
