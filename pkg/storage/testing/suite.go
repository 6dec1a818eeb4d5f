// Package testing provides a reusable conformance suite for storage.Backend
// implementations. It tests the interface contract, not implementation
// details, so every backend (memory, filesystem, badger, s3) runs the same
// assertions.
package testing

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage"
)

// BackendTestSuite exercises the full storage.Backend contract.
//
// Usage:
//
//	func TestMyBackend(t *testing.T) {
//	    suite := &storagetesting.BackendTestSuite{
//	        NewBackend: func(t *testing.T) storage.Backend {
//	            return mybackend.New(...)
//	        },
//	    }
//	    suite.Run(t)
//	}
type BackendTestSuite struct {
	// NewBackend creates a fresh, empty backend for each subtest.
	NewBackend func(t *testing.T) storage.Backend
}

// Run executes all tests in the suite.
func (s *BackendTestSuite) Run(t *testing.T) {
	t.Run("CreateAndFind", s.testCreateAndFind)
	t.Run("FindByItem", s.testFindByItem)
	t.Run("OpenRoundTrip", s.testOpenRoundTrip)
	t.Run("Replace", s.testReplace)
	t.Run("Delete", s.testDelete)
	t.Run("NotFound", s.testNotFound)
	t.Run("DuplicateCreate", s.testDuplicateCreate)
}

func testContext() context.Context {
	return context.Background()
}

func testMeta() storage.ResourceMeta {
	return storage.ResourceMeta{
		ContextID: 42,
		Component: "assignsubmission_collabora",
		FileArea:  "submission_file",
		ItemID:    7,
		FilePath:  "/",
		Filename:  "essay.docx",
	}
}

func mustCreate(t *testing.T, b storage.Backend, meta storage.ResourceMeta, content []byte) *storage.Resource {
	t.Helper()
	res, err := b.Create(testContext(), meta, content)
	require.NoError(t, err, "Create should succeed")
	return res
}

func mustReadAll(t *testing.T, b storage.Backend, hash string) []byte {
	t.Helper()
	r, err := b.Open(testContext(), hash)
	require.NoError(t, err, "Open should succeed")
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err, "reading content should succeed")
	return data
}

func (s *BackendTestSuite) testCreateAndFind(t *testing.T) {
	backend := s.NewBackend(t)
	meta := testMeta()

	content := []byte("hello submission")
	created := mustCreate(t, backend, meta, content)

	assert.Equal(t, meta.PathnameHash(), created.PathnameHash)
	assert.Equal(t, storage.ContentHash(content), created.ContentHash)
	assert.Equal(t, int64(len(content)), created.Size)
	assert.Equal(t, meta.Filename, created.Filename)
	assert.False(t, created.TimeCreated.IsZero(), "TimeCreated should be set")
	assert.False(t, created.TimeModified.IsZero(), "TimeModified should be set")

	found, err := backend.FindByHash(testContext(), created.PathnameHash)
	require.NoError(t, err)
	assert.Equal(t, created.PathnameHash, found.PathnameHash)
	assert.Equal(t, created.ContentHash, found.ContentHash)
	assert.Equal(t, created.Size, found.Size)
}

func (s *BackendTestSuite) testFindByItem(t *testing.T) {
	backend := s.NewBackend(t)
	meta := testMeta()
	mustCreate(t, backend, meta, []byte("by item"))

	found, err := backend.FindByItem(testContext(), meta.Component, meta.FileArea, meta.ItemID)
	require.NoError(t, err)
	assert.Equal(t, meta.PathnameHash(), found.PathnameHash)

	_, err = backend.FindByItem(testContext(), meta.Component, meta.FileArea, 9999)
	assert.ErrorIs(t, err, storage.ErrResourceNotFound)
}

func (s *BackendTestSuite) testOpenRoundTrip(t *testing.T) {
	backend := s.NewBackend(t)

	content := []byte{0x50, 0x4b, 0x03, 0x04, 0x00, 0xff, 0xfe}
	created := mustCreate(t, backend, testMeta(), content)

	got := mustReadAll(t, backend, created.PathnameHash)
	assert.Equal(t, content, got, "Open must return byte-for-byte content")
}

func (s *BackendTestSuite) testReplace(t *testing.T) {
	backend := s.NewBackend(t)
	meta := testMeta()

	oldContent := []byte("draft one")
	created := mustCreate(t, backend, meta, oldContent)

	newContent := []byte("draft two, substantially revised")
	replaced, err := backend.Replace(testContext(), created.PathnameHash, newContent)
	require.NoError(t, err, "Replace should succeed")

	// Identity fields and pathname hash survive the replace.
	assert.Equal(t, created.PathnameHash, replaced.PathnameHash)
	assert.Equal(t, created.Component, replaced.Component)
	assert.Equal(t, created.FileArea, replaced.FileArea)
	assert.Equal(t, created.ItemID, replaced.ItemID)
	assert.Equal(t, created.Filename, replaced.Filename)
	// Compare instants, not representations: backends that serialize
	// timestamps drop the monotonic reading.
	assert.True(t, replaced.TimeCreated.Equal(created.TimeCreated),
		"TimeCreated must survive replace (got %v, want %v)", replaced.TimeCreated, created.TimeCreated)

	// Content fields change.
	assert.Equal(t, int64(len(newContent)), replaced.Size)
	assert.Equal(t, storage.ContentHash(newContent), replaced.ContentHash)
	assert.NotEqual(t, created.ContentHash, replaced.ContentHash)

	got := mustReadAll(t, backend, created.PathnameHash)
	assert.Equal(t, newContent, got)
}

func (s *BackendTestSuite) testDelete(t *testing.T) {
	backend := s.NewBackend(t)
	created := mustCreate(t, backend, testMeta(), []byte("to delete"))

	err := backend.Delete(testContext(), created.PathnameHash)
	require.NoError(t, err)

	_, err = backend.FindByHash(testContext(), created.PathnameHash)
	assert.ErrorIs(t, err, storage.ErrResourceNotFound)

	err = backend.Delete(testContext(), created.PathnameHash)
	assert.ErrorIs(t, err, storage.ErrResourceNotFound)
}

func (s *BackendTestSuite) testNotFound(t *testing.T) {
	backend := s.NewBackend(t)

	_, err := backend.FindByHash(testContext(), "0000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, storage.ErrResourceNotFound)

	_, err = backend.Open(testContext(), "0000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, storage.ErrResourceNotFound)

	_, err = backend.Replace(testContext(), "0000000000000000000000000000000000000000", []byte("x"))
	assert.ErrorIs(t, err, storage.ErrResourceNotFound)
}

func (s *BackendTestSuite) testDuplicateCreate(t *testing.T) {
	backend := s.NewBackend(t)
	meta := testMeta()

	mustCreate(t, backend, meta, []byte("first"))

	_, err := backend.Create(testContext(), meta, []byte("second"))
	assert.ErrorIs(t, err, storage.ErrResourceExists)
}
