package storage

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// PathnameHash derives the stable address of a resource from its identity
// fields. The layout mirrors the historical host's file table:
// /<contextid>/<component>/<filearea>/<itemid><filepath><filename>.
func (m ResourceMeta) PathnameHash() string {
	path := fmt.Sprintf("/%d/%s/%s/%d%s%s",
		m.ContextID, m.Component, m.FileArea, m.ItemID, m.FilePath, m.Filename)
	sum := sha1.Sum([]byte(path))
	return hex.EncodeToString(sum[:])
}

// ContentHash fingerprints resource bytes. SHA-1 keeps parity with the
// original store's content addressing; it is a change detector here, not a
// security boundary.
func ContentHash(content []byte) string {
	sum := sha1.Sum(content)
	return hex.EncodeToString(sum[:])
}

// Meta returns the identity fields of an existing resource, used by
// backends to rebuild a resource on Replace.
func (r *Resource) Meta() ResourceMeta {
	return ResourceMeta{
		ContextID: r.ContextID,
		Component: r.Component,
		FileArea:  r.FileArea,
		ItemID:    r.ItemID,
		FilePath:  r.FilePath,
		Filename:  r.Filename,
	}
}
