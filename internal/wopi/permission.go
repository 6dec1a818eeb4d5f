package wopi

import (
	"github.com/learnweb/moodle-assignsubmission-collabora/internal/submission"
)

// Permission is the access level a principal holds on a submission document.
//
// The numeric values mirror Unix-style owner/group/other triples but are a
// flat enum inherited from the original host, kept for log and debugging
// parity:
//
//	400 = owner can read
//	440 = group can read
//	444 = all read only (default; graders and admins always land here)
//	600 = owner can edit
//	660 = group can edit
type Permission int

const (
	PermOwnerRead  Permission = 400
	PermGroupRead  Permission = 440
	PermAllRead    Permission = 444
	PermOwnerWrite Permission = 600
	PermGroupWrite Permission = 660
)

// writeThreshold separates read levels from write levels.
const writeThreshold = 600

// Writable reports whether the level allows saving the document.
func (p Permission) Writable() bool {
	return p >= writeThreshold
}

func (p Permission) String() string {
	switch p {
	case PermOwnerRead:
		return "owner-read"
	case PermGroupRead:
		return "group-read"
	case PermAllRead:
		return "all-read"
	case PermOwnerWrite:
		return "owner-write"
	case PermGroupWrite:
		return "group-write"
	default:
		return "unknown"
	}
}

// ComputePermission works out the permission for a principal viewing a
// submission document. The permission is always computed from the live
// submission state; it is never trusted from a previously issued file
// identifier.
//
// Decision order, first match wins:
//  1. Admins and graders never edit, regardless of ownership or window.
//  2. A closed editing window forces read-only.
//  3. Group submissions grant group-level access to members.
//  4. Individual submissions grant owner-level access to the owner.
//  5. Everyone else reads.
//
// forceReadOnly downgrades a would-be write level to its read counterpart
// (group-write becomes group-read, owner-write becomes owner-read). It can
// never upgrade.
func ComputePermission(sub submission.Context, principal submission.PrincipalID, forceReadOnly bool) Permission {
	if sub.IsAdmin(principal) || sub.CanGrade(principal) {
		return PermAllRead
	}

	if !sub.IsOpenForEditing(principal) {
		return PermAllRead
	}

	if sub.IsGroupSubmission() {
		if sub.IsMember(principal) {
			if forceReadOnly {
				return PermGroupRead
			}
			return PermGroupWrite
		}
		return PermAllRead
	}

	if sub.OwnerUser() == principal {
		if forceReadOnly {
			return PermOwnerRead
		}
		return PermOwnerWrite
	}

	return PermAllRead
}
