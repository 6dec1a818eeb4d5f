package wopi

import (
	"context"

	"github.com/learnweb/moodle-assignsubmission-collabora/internal/logger"
	"github.com/learnweb/moodle-assignsubmission-collabora/internal/submission"
)

// UpdateEvent describes a successful document save.
type UpdateEvent struct {
	SubmissionID int64
	Filename     string
	ContentHash  string

	// GroupID is set for team submissions, zero otherwise.
	GroupID submission.GroupID

	// Principal is the saving user.
	Principal submission.PrincipalID
}

// EventEmitter receives notifications after a successful PutFile. The
// application layer invokes it once the replace has committed; the handler
// core itself never emits. Emit must not block the request for long and
// must tolerate being called concurrently.
type EventEmitter interface {
	Emit(ctx context.Context, event UpdateEvent)
}

// LogEmitter writes update events to the application log. It is the default
// sink when no external collaborator is wired in.
type LogEmitter struct{}

func (LogEmitter) Emit(_ context.Context, event UpdateEvent) {
	logger.Info("submission updated: id=%d file=%s hash=%s group=%d principal=%d",
		event.SubmissionID, event.Filename, event.ContentHash, event.GroupID, event.Principal)
}

// MultiEmitter fans one event out to several sinks in order.
type MultiEmitter []EventEmitter

func (m MultiEmitter) Emit(ctx context.Context, event UpdateEvent) {
	for _, e := range m {
		e.Emit(ctx, event)
	}
}
