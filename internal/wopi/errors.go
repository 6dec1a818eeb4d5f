package wopi

import "errors"

// Protocol error taxonomy. Every error is terminal for the current request;
// nothing is retried inside the host. The HTTP layer maps these to status
// codes with errors.Is (see internal/server).
var (
	// ErrMalformedToken indicates the access token does not have the
	// expected <checkvalue>_<principalid> shape.
	ErrMalformedToken = errors.New("malformed access token")

	// ErrTokenCheckMismatch indicates the token parsed but its check value
	// does not match the claimed principal id.
	ErrTokenCheckMismatch = errors.New("access token check mismatch")

	// ErrInvalidRequestPath indicates the request path is not a WOPI files
	// path, or the file identifier is empty.
	ErrInvalidRequestPath = errors.New("invalid request path")

	// ErrInvalidFileID indicates the file identifier does not have the
	// expected <hash>_<writableflag> shape.
	ErrInvalidFileID = errors.New("invalid file identifier")

	// ErrResourceNotFound indicates no stored resource exists for the hash
	// embedded in the file identifier.
	ErrResourceNotFound = errors.New("no stored resource for file identifier")

	// ErrForeignResource indicates the resource exists but belongs to a
	// different component; serving it would leak another subsystem's files.
	ErrForeignResource = errors.New("resource belongs to another component")

	// ErrReadOnlyViolation indicates a PutFile under a read-only permission.
	// Storage is guaranteed untouched when this is returned.
	ErrReadOnlyViolation = errors.New("document is read-only")

	// ErrInvalidRequestType indicates a verb/body combination outside the
	// three WOPI operations.
	ErrInvalidRequestType = errors.New("invalid request type")
)
