// Package submission defines the read-only view of the assignment domain
// the WOPI host needs: who owns a submission, whether its editing window is
// open, and which principals hold administrative or grading capabilities.
//
// The WOPI host never mutates submissions; the owning system (the LMS) does.
// This package only describes the interface boundary plus an in-memory
// implementation used by tests and the standalone server binary.
package submission

// PrincipalID identifies an authenticated end user.
type PrincipalID int64

// GroupID identifies a submission group (team assignments).
type GroupID int64

// Context is the per-submission view consulted during permission
// computation. Implementations must be safe for concurrent reads.
type Context interface {
	// ID is the submission identifier, used as the storage item id.
	ID() int64

	// IsGroupSubmission reports whether this is a team submission.
	IsGroupSubmission() bool

	// OwnerUser is the owning principal for individual submissions
	// (zero for group submissions).
	OwnerUser() PrincipalID

	// OwnerGroup is the owning group for team submissions
	// (zero for individual submissions).
	OwnerGroup() GroupID

	// IsMember reports whether the principal belongs to the owning group.
	// Always false for individual submissions.
	IsMember(p PrincipalID) bool

	// IsOpenForEditing reports whether the submission window is currently
	// open for the principal (not locked, not past cutoff).
	IsOpenForEditing(p PrincipalID) bool

	// IsAdmin reports whether the principal is a site administrator.
	IsAdmin(p PrincipalID) bool

	// CanGrade reports whether the principal can grade in this context.
	CanGrade(p PrincipalID) bool

	// DisplayName is the principal's external-facing name, surfaced to the
	// editor as UserFriendlyName.
	DisplayName(p PrincipalID) string
}

// Resolver looks up the submission context for a stored resource's item id.
type Resolver interface {
	Lookup(submissionID int64) (Context, error)
}
