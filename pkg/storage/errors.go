package storage

import "errors"

// Standard backend errors. Implementations wrap these with context:
//
//	return nil, fmt.Errorf("resource %s: %w", hash, storage.ErrResourceNotFound)
//
// Callers match with errors.Is and map them to protocol errors at the
// boundary (the WOPI locator maps ErrResourceNotFound to its own sentinel).
var (
	// ErrResourceNotFound indicates no resource exists under the given
	// pathname hash or item triple.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrResourceExists indicates a Create collided with an existing
	// resource. Replace is the only way to change stored bytes.
	ErrResourceExists = errors.New("resource already exists")
)
