package memory

import (
	"testing"

	"github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage"
	storagetesting "github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage/testing"
)

// TestMemoryBackend runs the full backend conformance suite against the
// in-memory implementation.
func TestMemoryBackend(t *testing.T) {
	suite := &storagetesting.BackendTestSuite{
		NewBackend: func(t *testing.T) storage.Backend {
			return NewMemoryBackend()
		},
	}
	suite.Run(t)
}
