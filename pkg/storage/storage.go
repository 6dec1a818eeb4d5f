// Package storage defines the backend interface that owns submission
// document bytes and metadata. The WOPI layer only ever holds a transient
// *Resource reference during a single request; all persistence, addressing
// and atomicity concerns live behind the Backend interface.
//
// Resources are path-addressed: the PathnameHash identifying a resource is
// derived from its identity fields (context, component, filearea, item,
// path, name) and therefore stays stable when the content is replaced. The
// ContentHash tracks the actual bytes and changes on every replace.
package storage

import (
	"context"
	"io"
	"time"
)

// Resource describes one stored document: its identity fields, content
// fingerprint and timestamps. Resource values are snapshots; a Replace
// produces a fresh *Resource and invalidates previously returned ones.
type Resource struct {
	// Identity fields. Together they determine the PathnameHash.
	ContextID int64  `json:"contextid"`
	Component string `json:"component"`
	FileArea  string `json:"filearea"`
	ItemID    int64  `json:"itemid"`
	FilePath  string `json:"filepath"`
	Filename  string `json:"filename"`

	// Content fields. Updated on every replace.
	Size        int64  `json:"size"`
	ContentHash string `json:"contenthash"`

	// PathnameHash addresses the resource within a backend. Stable across
	// content replacement because it is derived from the identity fields.
	PathnameHash string `json:"pathnamehash"`

	TimeCreated  time.Time `json:"timecreated"`
	TimeModified time.Time `json:"timemodified"`
}

// ResourceMeta carries the identity fields needed to create a new resource.
type ResourceMeta struct {
	ContextID int64
	Component string
	FileArea  string
	ItemID    int64
	FilePath  string
	Filename  string
}

// Backend is the narrow storage interface the WOPI host depends on.
//
// Implementations must guarantee that Replace is atomic with respect to
// concurrent readers: a reader either observes the old bytes or the new
// bytes, never a mix. No ordering guarantee is made between concurrent
// replacers; the last writer to complete wins.
type Backend interface {
	// FindByHash returns the resource addressed by the given pathname hash.
	// Returns ErrResourceNotFound (possibly wrapped) when absent.
	FindByHash(ctx context.Context, hash string) (*Resource, error)

	// FindByItem locates the resource for a given (component, filearea,
	// itemid) triple. Used by the view flow which knows the submission but
	// not the hash. Returns ErrResourceNotFound when absent.
	FindByItem(ctx context.Context, component, filearea string, itemID int64) (*Resource, error)

	// Open returns a reader over the resource's current bytes.
	Open(ctx context.Context, hash string) (io.ReadCloser, error)

	// Create stores a new resource from the given metadata and bytes.
	// Returns ErrResourceExists if a resource with the same pathname hash
	// is already present.
	Create(ctx context.Context, meta ResourceMeta, content []byte) (*Resource, error)

	// Replace atomically swaps the bytes of an existing resource. All
	// identity fields and TimeCreated are preserved; Size, ContentHash and
	// TimeModified are updated. Returns the new resource snapshot.
	Replace(ctx context.Context, hash string, content []byte) (*Resource, error)

	// Delete removes the resource and its bytes.
	Delete(ctx context.Context, hash string) error
}
