package wopi

import (
	"fmt"
	"regexp"
)

// Verb is the routed WOPI operation class. A contents path serves both
// GetFile and PutFile; the two are told apart at dispatch time by the
// presence of a request body.
type Verb int

const (
	// VerbCheckFileInfo is a metadata query on /wopi/files/<fileid>.
	VerbCheckFileInfo Verb = iota

	// VerbContents is a read or write on /wopi/files/<fileid>/contents.
	VerbContents
)

func (v Verb) String() string {
	switch v {
	case VerbCheckFileInfo:
		return "CheckFileInfo"
	case VerbContents:
		return "Contents"
	default:
		return "unknown"
	}
}

var wopiPathPattern = regexp.MustCompile(`^/wopi/files/([^/]+)(/contents)?$`)

// RouteRequest parses a request path into a verb and raw file identifier.
// Pure function of the path string; callers pass an explicit value rather
// than any ambient request state. Fails with ErrInvalidRequestPath when the
// path does not match either WOPI shape or the file identifier is empty.
func RouteRequest(path string) (Verb, string, error) {
	matches := wopiPathPattern.FindStringSubmatch(path)
	if matches == nil {
		return 0, "", fmt.Errorf("path %q: %w", path, ErrInvalidRequestPath)
	}

	fileID := matches[1]
	if matches[2] != "" {
		return VerbContents, fileID, nil
	}
	return VerbCheckFileInfo, fileID, nil
}
