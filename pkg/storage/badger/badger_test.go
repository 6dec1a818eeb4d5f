package badger

import (
	"context"
	"testing"

	"github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage"
	storagetesting "github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage/testing"
)

// TestBadgerBackend runs the full backend conformance suite against an
// in-memory Badger database.
func TestBadgerBackend(t *testing.T) {
	suite := &storagetesting.BackendTestSuite{
		NewBackend: func(t *testing.T) storage.Backend {
			backend, err := NewBadgerBackend(context.Background(), BadgerBackendConfig{InMemory: true})
			if err != nil {
				t.Fatalf("Failed to create BadgerBackend: %v", err)
			}
			t.Cleanup(func() {
				_ = backend.Close()
			})
			return backend
		},
	}
	suite.Run(t)
}

// TestBadgerBackend_Persistent verifies that resources survive a close and
// reopen cycle when backed by disk.
func TestBadgerBackend_Persistent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	backend, err := NewBadgerBackend(ctx, BadgerBackendConfig{Path: dir})
	if err != nil {
		t.Fatalf("Failed to create BadgerBackend: %v", err)
	}

	meta := storage.ResourceMeta{
		ContextID: 1,
		Component: "assignsubmission_collabora",
		FileArea:  "submission_file",
		ItemID:    3,
		FilePath:  "/",
		Filename:  "notes.odt",
	}
	created, err := backend.Create(ctx, meta, []byte("persisted bytes"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := backend.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewBadgerBackend(ctx, BadgerBackendConfig{Path: dir})
	if err != nil {
		t.Fatalf("Failed to reopen BadgerBackend: %v", err)
	}
	defer reopened.Close()

	found, err := reopened.FindByHash(ctx, created.PathnameHash)
	if err != nil {
		t.Fatalf("FindByHash after reopen failed: %v", err)
	}
	if found.ContentHash != created.ContentHash {
		t.Errorf("Content hash mismatch after reopen: got %s, want %s", found.ContentHash, created.ContentHash)
	}
}
