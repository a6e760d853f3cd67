package dataflows

import (
	"context"
	"sync"
)

// Provider is one upstream market-data source. Adapters for concrete vendor
// SDKs live outside this module; fetch errors should be classified with the
// reasoning error taxonomy so the resolver knows what to retry.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, req Request) ([]byte, error)
}

// StaticProvider serves seeded payloads keyed by request key. It backs
// offline runs and fixtures in tests.
type StaticProvider struct {
	name string
	mu   sync.RWMutex
	data map[string][]byte
	// Err, when set, is returned for every request without seeded data.
	Err error

	fetchCount int
}

func NewStaticProvider(name string) *StaticProvider {
	if name == "" {
		name = "static"
	}
	return &StaticProvider{
		name: name,
		data: make(map[string][]byte),
	}
}

func (p *StaticProvider) Name() string { return p.name }

// Seed registers a payload for a request.
func (p *StaticProvider) Seed(req Request, payload []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[req.Key()] = payload
}

func (p *StaticProvider) Fetch(_ context.Context, req Request) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetchCount++
	if payload, ok := p.data[req.Key()]; ok {
		return payload, nil
	}
	if p.Err != nil {
		return nil, p.Err
	}
	return nil, ErrNoSuchData
}

// FetchCount returns how many times Fetch has been called.
func (p *StaticProvider) FetchCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fetchCount
}
