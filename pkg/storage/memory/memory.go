// Package memory provides an in-memory storage backend.
//
// Intended for tests and development. All data is lost when the process
// exits. Safe for concurrent use; a single RWMutex guards both metadata and
// bytes, which keeps Replace trivially atomic.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage"
)

type entry struct {
	resource storage.Resource
	content  []byte
}

// MemoryBackend implements storage.Backend with a map keyed by pathname hash.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]*entry

	// now is the clock used for TimeCreated/TimeModified. Tests override it
	// to get deterministic, strictly increasing version tokens.
	now func() time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// SetClock replaces the backend's clock. Only meant for tests.
func (b *MemoryBackend) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

func (b *MemoryBackend) FindByHash(ctx context.Context, hash string) (*storage.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.entries[hash]
	if !ok {
		return nil, fmt.Errorf("resource %s: %w", hash, storage.ErrResourceNotFound)
	}
	res := e.resource
	return &res, nil
}

func (b *MemoryBackend) FindByItem(ctx context.Context, component, filearea string, itemID int64) (*storage.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, e := range b.entries {
		r := e.resource
		if r.Component == component && r.FileArea == filearea && r.ItemID == itemID {
			res := r
			return &res, nil
		}
	}
	return nil, fmt.Errorf("item %d in %s/%s: %w", itemID, component, filearea, storage.ErrResourceNotFound)
}

func (b *MemoryBackend) Open(ctx context.Context, hash string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.entries[hash]
	if !ok {
		return nil, fmt.Errorf("resource %s: %w", hash, storage.ErrResourceNotFound)
	}

	// Copy so a concurrent Replace cannot mutate bytes under the reader.
	buf := make([]byte, len(e.content))
	copy(buf, e.content)
	return io.NopCloser(bytes.NewReader(buf)), nil
}

func (b *MemoryBackend) Create(ctx context.Context, meta storage.ResourceMeta, content []byte) (*storage.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	hash := meta.PathnameHash()
	if _, ok := b.entries[hash]; ok {
		return nil, fmt.Errorf("resource %s: %w", hash, storage.ErrResourceExists)
	}

	now := b.now()
	res := storage.Resource{
		ContextID:    meta.ContextID,
		Component:    meta.Component,
		FileArea:     meta.FileArea,
		ItemID:       meta.ItemID,
		FilePath:     meta.FilePath,
		Filename:     meta.Filename,
		Size:         int64(len(content)),
		ContentHash:  storage.ContentHash(content),
		PathnameHash: hash,
		TimeCreated:  now,
		TimeModified: now,
	}

	stored := make([]byte, len(content))
	copy(stored, content)
	b.entries[hash] = &entry{resource: res, content: stored}

	out := res
	return &out, nil
}

func (b *MemoryBackend) Replace(ctx context.Context, hash string, content []byte) (*storage.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[hash]
	if !ok {
		return nil, fmt.Errorf("resource %s: %w", hash, storage.ErrResourceNotFound)
	}

	res := e.resource
	res.Size = int64(len(content))
	res.ContentHash = storage.ContentHash(content)
	res.TimeModified = b.now()

	stored := make([]byte, len(content))
	copy(stored, content)
	b.entries[hash] = &entry{resource: res, content: stored}

	out := res
	return &out, nil
}

func (b *MemoryBackend) Delete(ctx context.Context, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.entries[hash]; !ok {
		return fmt.Errorf("resource %s: %w", hash, storage.ErrResourceNotFound)
	}
	delete(b.entries, hash)
	return nil
}
