// Package memory provides an in-memory submission registry implementing
// submission.Resolver. It backs the standalone server binary (seeded from
// configuration) and the test suites.
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/learnweb/moodle-assignsubmission-collabora/internal/submission"
)

// Role is the coarse capability class of a user.
type Role int

const (
	RoleStudent Role = iota
	RoleGrader
	RoleAdmin
)

// User describes a registered principal.
type User struct {
	ID   submission.PrincipalID
	Name string
	Role Role
}

// Submission describes one assignment submission. Exactly one of UserID or
// GroupID is set, matching individual vs. team assignments.
type Submission struct {
	ID      int64
	UserID  submission.PrincipalID
	GroupID submission.GroupID

	// Locked closes the editing window regardless of the due date.
	Locked bool

	// CutoffDate closes the window once passed. Zero means no cutoff.
	CutoffDate time.Time
}

// Registry holds users, group memberships and submissions.
type Registry struct {
	mu          sync.RWMutex
	users       map[submission.PrincipalID]User
	groups      map[submission.GroupID][]submission.PrincipalID
	submissions map[int64]Submission

	// now is the clock used for cutoff checks. Tests override it.
	now func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		users:       make(map[submission.PrincipalID]User),
		groups:      make(map[submission.GroupID][]submission.PrincipalID),
		submissions: make(map[int64]Submission),
		now:         time.Now,
	}
}

// SetClock replaces the registry's clock. Only meant for tests.
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// AddUser registers a principal.
func (r *Registry) AddUser(u User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

// AddGroup registers a group with its members.
func (r *Registry) AddGroup(id submission.GroupID, members ...submission.PrincipalID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[id] = append([]submission.PrincipalID(nil), members...)
}

// AddSubmission registers a submission.
func (r *Registry) AddSubmission(s Submission) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submissions[s.ID] = s
}

// SetLocked flips the lock state of a submission.
func (r *Registry) SetLocked(submissionID int64, locked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.submissions[submissionID]
	if !ok {
		return fmt.Errorf("unknown submission %d", submissionID)
	}
	s.Locked = locked
	r.submissions[submissionID] = s
	return nil
}

// Submissions returns a snapshot of all registered submissions.
func (r *Registry) Submissions() []Submission {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Submission, 0, len(r.submissions))
	for _, s := range r.submissions {
		out = append(out, s)
	}
	return out
}

// Lookup implements submission.Resolver.
func (r *Registry) Lookup(submissionID int64) (submission.Context, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.submissions[submissionID]
	if !ok {
		return nil, fmt.Errorf("unknown submission %d", submissionID)
	}
	return &boundContext{registry: r, sub: s}, nil
}

// boundContext adapts one Submission row plus the registry's user and group
// tables to the submission.Context interface.
type boundContext struct {
	registry *Registry
	sub      Submission
}

func (c *boundContext) ID() int64 {
	return c.sub.ID
}

func (c *boundContext) IsGroupSubmission() bool {
	return c.sub.GroupID != 0
}

func (c *boundContext) OwnerUser() submission.PrincipalID {
	return c.sub.UserID
}

func (c *boundContext) OwnerGroup() submission.GroupID {
	return c.sub.GroupID
}

func (c *boundContext) IsMember(p submission.PrincipalID) bool {
	if c.sub.GroupID == 0 {
		return false
	}

	c.registry.mu.RLock()
	defer c.registry.mu.RUnlock()

	for _, member := range c.registry.groups[c.sub.GroupID] {
		if member == p {
			return true
		}
	}
	return false
}

func (c *boundContext) IsOpenForEditing(p submission.PrincipalID) bool {
	if c.sub.Locked {
		return false
	}

	c.registry.mu.RLock()
	now := c.registry.now()
	c.registry.mu.RUnlock()

	if !c.sub.CutoffDate.IsZero() && now.After(c.sub.CutoffDate) {
		return false
	}

	// The window is only meaningful for principals attached to the
	// submission: the owner, or a member of the owning group.
	if c.IsGroupSubmission() {
		return c.IsMember(p)
	}
	return c.sub.UserID == p
}

func (c *boundContext) IsAdmin(p submission.PrincipalID) bool {
	c.registry.mu.RLock()
	defer c.registry.mu.RUnlock()
	return c.registry.users[p].Role == RoleAdmin
}

func (c *boundContext) CanGrade(p submission.PrincipalID) bool {
	c.registry.mu.RLock()
	defer c.registry.mu.RUnlock()

	role := c.registry.users[p].Role
	return role == RoleGrader || role == RoleAdmin
}

func (c *boundContext) DisplayName(p submission.PrincipalID) string {
	c.registry.mu.RLock()
	defer c.registry.mu.RUnlock()

	if u, ok := c.registry.users[p]; ok && u.Name != "" {
		return u.Name
	}
	return fmt.Sprintf("user %d", p)
}
