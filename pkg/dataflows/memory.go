package dataflows

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	entry   Entry
	element *list.Element
}

// MemoryTier is the fast in-process cache layer with LRU eviction.
type MemoryTier struct {
	name    string
	cache   map[string]memoryEntry
	lruList *list.List
	maxSize int
	mu      sync.RWMutex
}

// NewMemoryTier creates a memory tier holding at most maxSize entries
// (default 1000 when maxSize <= 0).
func NewMemoryTier(name string, maxSize int) *MemoryTier {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if name == "" {
		name = "memory"
	}
	return &MemoryTier{
		name:    name,
		cache:   make(map[string]memoryEntry),
		lruList: list.New(),
		maxSize: maxSize,
	}
}

func (t *MemoryTier) Name() string { return t.name }

func (t *MemoryTier) Get(_ context.Context, key string) (*Entry, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	me, ok := t.cache[key]
	if !ok {
		return nil, false, nil
	}
	t.lruList.MoveToFront(me.element)
	e := me.entry
	return &e, true, nil
}

func (t *MemoryTier) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if me, ok := t.cache[key]; ok {
		me.entry = Entry{Payload: payload, FetchedAt: time.Now(), TTL: ttl}
		t.lruList.MoveToFront(me.element)
		t.cache[key] = me
		return nil
	}

	if t.lruList.Len() >= t.maxSize {
		oldest := t.lruList.Back()
		if oldest != nil {
			delete(t.cache, oldest.Value.(string))
			t.lruList.Remove(oldest)
		}
	}

	element := t.lruList.PushFront(key)
	t.cache[key] = memoryEntry{
		entry:   Entry{Payload: payload, FetchedAt: time.Now(), TTL: ttl},
		element: element,
	}
	return nil
}

// Size returns the current number of cached entries.
func (t *MemoryTier) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lruList.Len()
}
