// Package fs provides a filesystem storage backend.
//
// Layout: bytes live under <base>/data/<pathnamehash> and resource metadata
// as a JSON sidecar under <base>/meta/<pathnamehash>. Replace writes to a
// temporary file in the same directory and renames it over the data file,
// so concurrent readers observe either the old bytes or the new bytes.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage"
)

// FSBackend implements storage.Backend on the local filesystem.
type FSBackend struct {
	dataPath string
	metaPath string
}

// NewFSBackend creates a filesystem backend rooted at basePath, creating
// the data/ and meta/ directories if needed.
func NewFSBackend(ctx context.Context, basePath string) (*FSBackend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dataPath := filepath.Join(basePath, "data")
	metaPath := filepath.Join(basePath, "meta")

	for _, dir := range []string{dataPath, metaPath} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	return &FSBackend{dataPath: dataPath, metaPath: metaPath}, nil
}

func (b *FSBackend) dataFile(hash string) string {
	return filepath.Join(b.dataPath, hash)
}

func (b *FSBackend) metaFile(hash string) string {
	return filepath.Join(b.metaPath, hash)
}

func (b *FSBackend) readMeta(hash string) (*storage.Resource, error) {
	raw, err := os.ReadFile(b.metaFile(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("resource %s: %w", hash, storage.ErrResourceNotFound)
		}
		return nil, fmt.Errorf("failed to read resource metadata: %w", err)
	}

	var res storage.Resource
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("corrupt resource metadata for %s: %w", hash, err)
	}
	return &res, nil
}

func (b *FSBackend) writeMeta(res *storage.Resource) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode resource metadata: %w", err)
	}

	tmp, err := os.CreateTemp(b.metaPath, ".meta-*")
	if err != nil {
		return fmt.Errorf("failed to create temp metadata file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write resource metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp metadata file: %w", err)
	}

	if err := os.Rename(tmpName, b.metaFile(res.PathnameHash)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to publish resource metadata: %w", err)
	}
	return nil
}

// writeData atomically publishes content under data/<hash>.
func (b *FSBackend) writeData(hash string, content []byte) error {
	tmp, err := os.CreateTemp(b.dataPath, ".data-*")
	if err != nil {
		return fmt.Errorf("failed to create temp data file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp data file: %w", err)
	}

	if err := os.Rename(tmpName, b.dataFile(hash)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to publish content: %w", err)
	}
	return nil
}

func (b *FSBackend) FindByHash(ctx context.Context, hash string) (*storage.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.readMeta(hash)
}

func (b *FSBackend) FindByItem(ctx context.Context, component, filearea string, itemID int64) (*storage.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(b.metaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to scan metadata directory: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		res, err := b.readMeta(e.Name())
		if err != nil {
			continue
		}
		if res.Component == component && res.FileArea == filearea && res.ItemID == itemID {
			return res, nil
		}
	}
	return nil, fmt.Errorf("item %d in %s/%s: %w", itemID, component, filearea, storage.ErrResourceNotFound)
}

func (b *FSBackend) Open(ctx context.Context, hash string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(b.dataFile(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("resource %s: %w", hash, storage.ErrResourceNotFound)
		}
		return nil, fmt.Errorf("failed to open content: %w", err)
	}
	return file, nil
}

func (b *FSBackend) Create(ctx context.Context, meta storage.ResourceMeta, content []byte) (*storage.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash := meta.PathnameHash()
	if _, err := os.Stat(b.metaFile(hash)); err == nil {
		return nil, fmt.Errorf("resource %s: %w", hash, storage.ErrResourceExists)
	}

	now := time.Now()
	res := &storage.Resource{
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

	if err := b.writeData(hash, content); err != nil {
		return nil, err
	}
	if err := b.writeMeta(res); err != nil {
		os.Remove(b.dataFile(hash))
		return nil, err
	}
	return res, nil
}

func (b *FSBackend) Replace(ctx context.Context, hash string, content []byte) (*storage.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := b.readMeta(hash)
	if err != nil {
		return nil, err
	}

	res.Size = int64(len(content))
	res.ContentHash = storage.ContentHash(content)
	res.TimeModified = time.Now()

	// Data first, metadata second: a reader racing the replace sees a
	// consistent byte stream either way, and metadata only ever describes
	// bytes that were fully published.
	if err := b.writeData(hash, content); err != nil {
		return nil, err
	}
	if err := b.writeMeta(res); err != nil {
		return nil, err
	}
	return res, nil
}

func (b *FSBackend) Delete(ctx context.Context, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := os.Stat(b.metaFile(hash)); os.IsNotExist(err) {
		return fmt.Errorf("resource %s: %w", hash, storage.ErrResourceNotFound)
	}

	if err := os.Remove(b.dataFile(hash)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete content: %w", err)
	}
	if err := os.Remove(b.metaFile(hash)); err != nil {
		return fmt.Errorf("failed to delete resource metadata: %w", err)
	}
	return nil
}
