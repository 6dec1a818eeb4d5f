// Package badger provides a persistent storage backend on BadgerDB.
//
// Key namespaces:
//
//	Data Type       Prefix   Key Format                                   Value
//	================================================================================
//	Resource meta   "m:"     m:<pathnamehash>                             Resource (JSON)
//	Content bytes   "d:"     d:<pathnamehash>                             raw bytes
//	Item index      "i:"     i:<component>:<filearea>:<itemid>            pathnamehash
//
// Replace runs inside a single Badger transaction, so metadata and bytes
// always change together and concurrent readers see a consistent snapshot
// (Badger provides SSI transactions).
package badger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/learnweb/moodle-assignsubmission-collabora/internal/logger"
	"github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage"
)

// BadgerBackend implements storage.Backend with a BadgerDB key-value store.
type BadgerBackend struct {
	db *badger.DB
}

// BadgerBackendConfig contains configuration for the Badger backend.
type BadgerBackendConfig struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory runs Badger without disk persistence (tests, dev).
	InMemory bool
}

// NewBadgerBackend opens (or creates) the database at the configured path.
func NewBadgerBackend(ctx context.Context, cfg BadgerBackendConfig) (*BadgerBackend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("badger backend: path is required")
	}

	opts := badger.DefaultOptions(cfg.Path)
	opts.InMemory = cfg.InMemory
	if cfg.InMemory {
		opts.Dir = ""
		opts.ValueDir = ""
	}
	// Badger's own logger is chatty at INFO; silence it.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Info("Badger storage backend opened: path=%q in_memory=%v", cfg.Path, cfg.InMemory)
	return &BadgerBackend{db: db}, nil
}

// Close releases the underlying database.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

func metaKey(hash string) []byte {
	return []byte("m:" + hash)
}

func dataKey(hash string) []byte {
	return []byte("d:" + hash)
}

func itemKey(component, filearea string, itemID int64) []byte {
	return []byte(fmt.Sprintf("i:%s:%s:%d", component, filearea, itemID))
}

func getResource(txn *badger.Txn, hash string) (*storage.Resource, error) {
	item, err := txn.Get(metaKey(hash))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("resource %s: %w", hash, storage.ErrResourceNotFound)
		}
		return nil, fmt.Errorf("failed to read resource metadata: %w", err)
	}

	var res storage.Resource
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &res)
	})
	if err != nil {
		return nil, fmt.Errorf("corrupt resource metadata for %s: %w", hash, err)
	}
	return &res, nil
}

func putResource(txn *badger.Txn, res *storage.Resource, content []byte) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode resource metadata: %w", err)
	}
	if err := txn.Set(metaKey(res.PathnameHash), raw); err != nil {
		return fmt.Errorf("failed to store resource metadata: %w", err)
	}
	if err := txn.Set(dataKey(res.PathnameHash), content); err != nil {
		return fmt.Errorf("failed to store content: %w", err)
	}
	return nil
}

func (b *BadgerBackend) FindByHash(ctx context.Context, hash string) (*storage.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var res *storage.Resource
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		res, err = getResource(txn, hash)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (b *BadgerBackend) FindByItem(ctx context.Context, component, filearea string, itemID int64) (*storage.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var res *storage.Resource
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(itemKey(component, filearea, itemID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("item %d in %s/%s: %w", itemID, component, filearea, storage.ErrResourceNotFound)
			}
			return fmt.Errorf("failed to read item index: %w", err)
		}

		var hash string
		if err := item.Value(func(val []byte) error {
			hash = string(val)
			return nil
		}); err != nil {
			return err
		}

		res, err = getResource(txn, hash)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (b *BadgerBackend) Open(ctx context.Context, hash string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var content []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dataKey(hash))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("resource %s: %w", hash, storage.ErrResourceNotFound)
			}
			return fmt.Errorf("failed to read content: %w", err)
		}
		content, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (b *BadgerBackend) Create(ctx context.Context, meta storage.ResourceMeta, content []byte) (*storage.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash := meta.PathnameHash()
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

	err := b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(metaKey(hash)); err == nil {
			return fmt.Errorf("resource %s: %w", hash, storage.ErrResourceExists)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check resource existence: %w", err)
		}

		if err := putResource(txn, res, content); err != nil {
			return err
		}
		return txn.Set(itemKey(meta.Component, meta.FileArea, meta.ItemID), []byte(hash))
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (b *BadgerBackend) Replace(ctx context.Context, hash string, content []byte) (*storage.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var res *storage.Resource
	err := b.db.Update(func(txn *badger.Txn) error {
		var err error
		res, err = getResource(txn, hash)
		if err != nil {
			return err
		}

		res.Size = int64(len(content))
		res.ContentHash = storage.ContentHash(content)
		res.TimeModified = time.Now()

		return putResource(txn, res, content)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (b *BadgerBackend) Delete(ctx context.Context, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		res, err := getResource(txn, hash)
		if err != nil {
			return err
		}

		if err := txn.Delete(metaKey(hash)); err != nil {
			return fmt.Errorf("failed to delete resource metadata: %w", err)
		}
		if err := txn.Delete(dataKey(hash)); err != nil {
			return fmt.Errorf("failed to delete content: %w", err)
		}
		return txn.Delete(itemKey(res.Component, res.FileArea, res.ItemID))
	})
}
