package dataflows

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// FileTier is the cold cache layer, persisting entries as JSON files named
// by their cache key. It survives process restarts, which is what makes
// last-resort stale reads useful after an outage.
type FileTier struct {
	name       string
	directory  string
	maxEntries int
	mu         sync.RWMutex
}

type FileTierOption func(*FileTier)

func WithMaxEntries(count int) FileTierOption {
	return func(t *FileTier) {
		t.maxEntries = count
	}
}

// NewFileTier creates a file tier rooted at dir, creating it if needed.
func NewFileTier(name, dir string, opts ...FileTierOption) (*FileTier, error) {
	if name == "" {
		name = "file"
	}
	t := &FileTier{
		name:       name,
		directory:  dir,
		maxEntries: 10000,
	}
	for _, opt := range opts {
		opt(t)
	}
	if err := os.MkdirAll(t.directory, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create cache directory")
	}
	return t, nil
}

func (t *FileTier) Name() string { return t.name }

func (t *FileTier) path(key string) string {
	return filepath.Join(t.directory, key+".json")
}

func (t *FileTier) Get(_ context.Context, key string) (*Entry, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	path := t.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "failed to read cache file")
	}

	// bump access time so eviction keeps hot entries
	now := time.Now()
	_ = os.Chtimes(path, now, now)

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// treat corrupted files as non-existent
		_ = os.Remove(path)
		return nil, false, nil
	}
	return &entry, true, nil
}

func (t *FileTier) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := Entry{Payload: payload, FetchedAt: time.Now(), TTL: ttl}
	data, err := json.Marshal(&entry)
	if err != nil {
		return errors.Wrap(err, "failed to marshal cache entry")
	}
	if err := os.WriteFile(t.path(key), data, 0644); err != nil {
		return errors.Wrap(err, "failed to write cache file")
	}
	return t.enforceSize()
}

func (t *FileTier) enforceSize() error {
	entries, err := os.ReadDir(t.directory)
	if err != nil {
		return errors.Wrap(err, "failed to read cache directory")
	}
	if len(entries) <= t.maxEntries {
		return nil
	}

	type fileInfo struct {
		path       string
		accessTime time.Time
	}

	var files []fileInfo
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{
			path:       filepath.Join(t.directory, entry.Name()),
			accessTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].accessTime.Before(files[j].accessTime)
	})

	for i := 0; i < len(files)-t.maxEntries; i++ {
		if err := os.Remove(files[i].path); err != nil {
			return errors.Wrap(err, "failed to remove cache file")
		}
	}
	return nil
}
