package fs

import (
	"context"
	"testing"

	"github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage"
	storagetesting "github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage/testing"
)

// TestFSBackend runs the full backend conformance suite against the
// filesystem implementation using a per-test temporary directory.
func TestFSBackend(t *testing.T) {
	suite := &storagetesting.BackendTestSuite{
		NewBackend: func(t *testing.T) storage.Backend {
			backend, err := NewFSBackend(context.Background(), t.TempDir())
			if err != nil {
				t.Fatalf("Failed to create FSBackend: %v", err)
			}
			return backend
		},
	}
	suite.Run(t)
}
