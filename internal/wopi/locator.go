package wopi

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/learnweb/moodle-assignsubmission-collabora/internal/submission"
	"github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage"
)

// Component is the owning-component tag stamped on every resource this
// subsystem stores. Resolving a resource carrying any other tag fails with
// ErrForeignResource.
const Component = "assignsubmission_collabora"

// FileArea is the file area submission documents live in.
const FileArea = "submission_file"

// FileID is the decoded form of the opaque identifier handed to the editor:
// <pathnamehash>_<writableflag>. The flag records whether the edit session
// was issued writable; it can only downgrade access at resolve time (a `0`
// forces read-only), never upgrade it. The authoritative permission is
// recomputed from live submission state on every call.
type FileID struct {
	Hash     string
	Writable bool
}

// ParseFileID decodes the wire form of a file identifier.
func ParseFileID(raw string) (FileID, error) {
	hash, flag, ok := strings.Cut(raw, "_")
	if !ok || hash == "" {
		return FileID{}, fmt.Errorf("file id %q: %w", raw, ErrInvalidFileID)
	}

	switch flag {
	case "1":
		return FileID{Hash: hash, Writable: true}, nil
	case "0", "":
		return FileID{Hash: hash, Writable: false}, nil
	default:
		return FileID{}, fmt.Errorf("file id flag %q: %w", flag, ErrInvalidFileID)
	}
}

// String encodes the identifier for URLs.
func (f FileID) String() string {
	flag := "0"
	if f.Writable {
		flag = "1"
	}
	return f.Hash + "_" + flag
}

// Session is the fully resolved per-request state: who is calling, which
// resource they address, the submission it belongs to and the permission
// they hold. Sessions are rehydrated from scratch on every request; nothing
// is shared between calls.
type Session struct {
	Principal  submission.PrincipalID
	Token      string
	Resource   *storage.Resource
	Submission submission.Context
	Permission Permission
}

// Locator resolves (fileid, token) pairs into sessions.
type Locator struct {
	store storage.Backend
	subs  submission.Resolver
}

// NewLocator creates a locator over the given backend and submission
// resolver.
func NewLocator(store storage.Backend, subs submission.Resolver) *Locator {
	return &Locator{store: store, subs: subs}
}

// Resolve validates the token, looks up the resource and computes the
// caller's live permission.
//
// Order matters: the token is checked before storage is touched, and the
// component tag is checked before any submission lookup, so a foreign
// resource can never reach permission computation.
func (l *Locator) Resolve(ctx context.Context, rawFileID, token string) (*Session, error) {
	principal, err := PrincipalFromToken(token)
	if err != nil {
		return nil, err
	}

	fileID, err := ParseFileID(rawFileID)
	if err != nil {
		return nil, err
	}

	resource, err := l.store.FindByHash(ctx, fileID.Hash)
	if err != nil {
		if errors.Is(err, storage.ErrResourceNotFound) {
			return nil, fmt.Errorf("file id %q: %w", rawFileID, ErrResourceNotFound)
		}
		return nil, fmt.Errorf("storage lookup failed: %w", err)
	}

	if resource.Component != Component {
		return nil, fmt.Errorf("component %q: %w", resource.Component, ErrForeignResource)
	}

	sub, err := l.subs.Lookup(resource.ItemID)
	if err != nil {
		return nil, fmt.Errorf("submission for item %d: %w", resource.ItemID, err)
	}

	return &Session{
		Principal:  principal,
		Token:      token,
		Resource:   resource,
		Submission: sub,
		Permission: ComputePermission(sub, principal, !fileID.Writable),
	}, nil
}
