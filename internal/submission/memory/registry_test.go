package memory

import (
	"testing"
	"time"

	"github.com/learnweb/moodle-assignsubmission-collabora/internal/submission"
)

func newTestRegistry() *Registry {
	r := NewRegistry()
	r.AddUser(User{ID: 7, Name: "Ada Student"})
	r.AddUser(User{ID: 8, Name: "Bo Teammate"})
	r.AddUser(User{ID: 20, Name: "Grace Grader", Role: RoleGrader})
	r.AddUser(User{ID: 1, Name: "Root Admin", Role: RoleAdmin})
	r.AddGroup(5, 7, 8)
	r.AddSubmission(Submission{ID: 3, UserID: 7})
	r.AddSubmission(Submission{ID: 4, GroupID: 5})
	return r
}

func TestLookup_UnknownSubmission(t *testing.T) {
	r := newTestRegistry()

	if _, err := r.Lookup(999); err == nil {
		t.Fatal("Expected error for unknown submission")
	}
}

func TestContext_IndividualOwnership(t *testing.T) {
	r := newTestRegistry()

	ctx, err := r.Lookup(3)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}

	if ctx.IsGroupSubmission() {
		t.Error("Submission 3 should be individual")
	}
	if ctx.OwnerUser() != 7 {
		t.Errorf("OwnerUser = %d, want 7", ctx.OwnerUser())
	}
	if ctx.IsMember(7) {
		t.Error("IsMember should be false for individual submissions")
	}
	if !ctx.IsOpenForEditing(7) {
		t.Error("Owner should have an open editing window")
	}
	if ctx.IsOpenForEditing(8) {
		t.Error("Non-owner should not have an open editing window")
	}
}

func TestContext_GroupMembership(t *testing.T) {
	r := newTestRegistry()

	ctx, err := r.Lookup(4)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}

	if !ctx.IsGroupSubmission() {
		t.Error("Submission 4 should be a group submission")
	}
	if !ctx.IsMember(7) || !ctx.IsMember(8) {
		t.Error("Both group members should be recognized")
	}
	if ctx.IsMember(20) {
		t.Error("Grader is not a group member")
	}
	if !ctx.IsOpenForEditing(8) {
		t.Error("Group member should have an open editing window")
	}
	if ctx.IsOpenForEditing(20) {
		t.Error("Non-member should not have an open editing window")
	}
}

func TestContext_LockClosesWindow(t *testing.T) {
	r := newTestRegistry()

	if err := r.SetLocked(3, true); err != nil {
		t.Fatalf("SetLocked failed: %v", err)
	}

	ctx, _ := r.Lookup(3)
	if ctx.IsOpenForEditing(7) {
		t.Error("Locked submission should not be open for editing")
	}
}

func TestContext_CutoffClosesWindow(t *testing.T) {
	r := newTestRegistry()
	cutoff := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.AddSubmission(Submission{ID: 9, UserID: 7, CutoffDate: cutoff})

	r.SetClock(func() time.Time { return cutoff.Add(-time.Hour) })
	ctx, _ := r.Lookup(9)
	if !ctx.IsOpenForEditing(7) {
		t.Error("Window should be open before the cutoff")
	}

	r.SetClock(func() time.Time { return cutoff.Add(time.Hour) })
	ctx, _ = r.Lookup(9)
	if ctx.IsOpenForEditing(7) {
		t.Error("Window should be closed after the cutoff")
	}
}

func TestContext_Capabilities(t *testing.T) {
	r := newTestRegistry()
	ctx, _ := r.Lookup(3)

	tests := []struct {
		name      string
		principal submission.PrincipalID
		admin     bool
		grade     bool
	}{
		{"student", 7, false, false},
		{"grader", 20, false, true},
		{"admin", 1, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ctx.IsAdmin(tt.principal); got != tt.admin {
				t.Errorf("IsAdmin = %v, want %v", got, tt.admin)
			}
			if got := ctx.CanGrade(tt.principal); got != tt.grade {
				t.Errorf("CanGrade = %v, want %v", got, tt.grade)
			}
		})
	}
}

func TestContext_DisplayName(t *testing.T) {
	r := newTestRegistry()
	ctx, _ := r.Lookup(3)

	if got := ctx.DisplayName(7); got != "Ada Student" {
		t.Errorf("DisplayName = %q, want %q", got, "Ada Student")
	}
	if got := ctx.DisplayName(12345); got != "user 12345" {
		t.Errorf("DisplayName fallback = %q, want %q", got, "user 12345")
	}
}
