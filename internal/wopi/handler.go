package wopi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/learnweb/moodle-assignsubmission-collabora/internal/logger"
	"github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage"
)

// FileInfo is the CheckFileInfo response document. Field names follow the
// WOPI wire format exactly.
type FileInfo struct {
	BaseFileName            string `json:"BaseFileName"`
	OwnerId                 string `json:"OwnerId"`
	Size                    int64  `json:"Size"`
	UserId                  string `json:"UserId"`
	UserFriendlyName        string `json:"UserFriendlyName"`
	UserCanWrite            bool   `json:"UserCanWrite"`
	ReadOnly                bool   `json:"ReadOnly"`
	UserCanRename           bool   `json:"UserCanRename"`
	UserCanNotWriteRelative bool   `json:"UserCanNotWriteRelative"`
	LastModifiedTime        string `json:"LastModifiedTime"`
	Version                 string `json:"Version"`
}

// Response is the outcome of one dispatched WOPI call. Exactly one of the
// operation fields is populated, matching the verb that was executed.
type Response struct {
	// Info is set for CheckFileInfo.
	Info *FileInfo

	// Content and Size are set for GetFile. The caller must close Content.
	Content io.ReadCloser
	Size    int64

	// Filename is set for GetFile (content-disposition suggestion).
	Filename string

	// Updated is set for PutFile: the fresh resource snapshot after the
	// replace.
	Updated *storage.Resource
}

// Handler executes the three WOPI verbs against a resolved session.
//
// Handlers hold no per-request state; every call rehydrates everything it
// needs from the session. There is no internal mutual exclusion across
// overlapping PutFile calls on the same resource: the storage backend's
// atomic replace is the only safety net and the last writer wins.
type Handler struct {
	store storage.Backend

	// ownerID is the site-wide constant reported as OwnerId.
	ownerID string
}

// NewHandler creates a handler over the given backend. ownerID is the
// site identifier reported in every CheckFileInfo response.
func NewHandler(store storage.Backend, ownerID string) *Handler {
	return &Handler{store: store, ownerID: ownerID}
}

// Dispatch executes the WOPI operation selected by the routed verb and the
// presence of a request body:
//
//	CheckFileInfo path, no body  -> CheckFileInfo
//	contents path, no body       -> GetFile
//	contents path, body          -> PutFile
//
// Any other combination fails with ErrInvalidRequestType.
func (h *Handler) Dispatch(ctx context.Context, verb Verb, session *Session, body []byte) (*Response, error) {
	switch {
	case verb == VerbCheckFileInfo && len(body) == 0:
		return &Response{Info: h.CheckFileInfo(session)}, nil

	case verb == VerbContents && len(body) == 0:
		content, size, err := h.GetFile(ctx, session)
		if err != nil {
			return nil, err
		}
		return &Response{
			Content:  content,
			Size:     size,
			Filename: session.Resource.Filename,
		}, nil

	case verb == VerbContents && len(body) > 0:
		updated, err := h.PutFile(ctx, session, body)
		if err != nil {
			return nil, err
		}
		return &Response{Updated: updated}, nil

	default:
		return nil, fmt.Errorf("verb %s with body: %w", verb, ErrInvalidRequestType)
	}
}

// CheckFileInfo produces the metadata document the editor polls before and
// after every save. LastModifiedTime is formatted from the UTC instant
// directly; no process-wide time zone state is touched. The Version token is
// the modification time, which is monotonic because the store replaces on
// every write.
func (h *Handler) CheckFileInfo(session *Session) *FileInfo {
	resource := session.Resource
	writable := session.Permission.Writable()

	return &FileInfo{
		BaseFileName:            cleanFilename(resource.Filename),
		OwnerId:                 h.ownerID,
		Size:                    resource.Size,
		UserId:                  session.Token,
		UserFriendlyName:        session.Submission.DisplayName(session.Principal),
		UserCanWrite:            writable,
		ReadOnly:                !writable,
		UserCanRename:           false,
		UserCanNotWriteRelative: true,
		LastModifiedTime:        resource.TimeModified.UTC().Format(time.RFC3339),
		Version:                 strconv.FormatInt(resource.TimeModified.Unix(), 10),
	}
}

// GetFile returns the exact stored bytes and their length. No
// transformation is applied; the caller must close the reader.
func (h *Handler) GetFile(ctx context.Context, session *Session) (io.ReadCloser, int64, error) {
	content, err := h.store.Open(ctx, session.Resource.PathnameHash)
	if err != nil {
		if errors.Is(err, storage.ErrResourceNotFound) {
			return nil, 0, fmt.Errorf("resource %s: %w", session.Resource.PathnameHash, ErrResourceNotFound)
		}
		return nil, 0, fmt.Errorf("failed to open content: %w", err)
	}
	return content, session.Resource.Size, nil
}

// PutFile atomically replaces the document bytes. The permission check
// happens strictly before any storage call, so a read-only violation leaves
// the stored resource untouched. Identity metadata and creation time are
// preserved by the backend; the modification time becomes "now", which also
// advances the version token.
func (h *Handler) PutFile(ctx context.Context, session *Session, content []byte) (*storage.Resource, error) {
	if !session.Permission.Writable() {
		return nil, fmt.Errorf("permission %s: %w", session.Permission, ErrReadOnlyViolation)
	}

	updated, err := h.store.Replace(ctx, session.Resource.PathnameHash, content)
	if err != nil {
		if errors.Is(err, storage.ErrResourceNotFound) {
			return nil, fmt.Errorf("resource %s: %w", session.Resource.PathnameHash, ErrResourceNotFound)
		}
		return nil, fmt.Errorf("failed to replace content: %w", err)
	}

	logger.Info("PutFile: replaced %s (%d bytes, submission %d, principal %d)",
		updated.Filename, updated.Size, updated.ItemID, session.Principal)
	return updated, nil
}

var nonWordChars = regexp.MustCompile(`\W`)

// cleanFilename sanitizes the stored filename for the editor. Path
// separators and control characters are stripped; if nothing survives, fall
// back to removing every non-word character.
func cleanFilename(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(`/\:*?"<>|`, r) {
			return -1
		}
		return r
	}, name)

	cleaned = strings.TrimSpace(cleaned)
	if cleaned != "" && cleaned != "." && cleaned != ".." {
		return cleaned
	}

	if fallback := nonWordChars.ReplaceAllString(name, ""); fallback != "" {
		return fallback
	}
	return "document"
}
