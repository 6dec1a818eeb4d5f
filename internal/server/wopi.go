package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/learnweb/moodle-assignsubmission-collabora/internal/logger"
	"github.com/learnweb/moodle-assignsubmission-collabora/internal/wopi"
)

// maxPutFileSize caps the accepted document size. Collabora saves whole
// documents, so 256 MiB leaves plenty of headroom for assignment files.
const maxPutFileSize = 256 << 20

// handleWOPI serves the three WOPI operations. The editor authenticates
// every call with the access_token query parameter; the path carries the
// file identifier.
func (s *Server) handleWOPI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	verb, fileID, err := wopi.RouteRequest(r.URL.Path)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var body []byte
	if r.Method == http.MethodPost || r.Method == http.MethodPut {
		body, err = io.ReadAll(io.LimitReader(r.Body, maxPutFileSize+1))
		if err != nil {
			s.writeError(w, fmt.Errorf("failed to read request body: %w", err))
			return
		}
		if len(body) > maxPutFileSize {
			http.Error(w, "document too large", http.StatusRequestEntityTooLarge)
			return
		}
	}

	session, err := s.locator.Resolve(ctx, fileID, r.URL.Query().Get("access_token"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp, err := s.handler.Dispatch(ctx, verb, session, body)
	if err != nil {
		s.writeError(w, err)
		return
	}

	switch {
	case resp.Info != nil:
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp.Info); err != nil {
			logger.Error("failed to write CheckFileInfo response: %v", err)
		}

	case resp.Content != nil:
		defer resp.Content.Close()
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.FormatInt(resp.Size, 10))
		w.Header().Set("Content-Disposition", `attachment; filename="`+resp.Filename+`"`)
		if _, err := io.Copy(w, resp.Content); err != nil {
			logger.Error("failed to stream file content: %v", err)
		}

	case resp.Updated != nil:
		s.emitter.Emit(ctx, wopi.UpdateEvent{
			SubmissionID: resp.Updated.ItemID,
			Filename:     resp.Updated.Filename,
			ContentHash:  resp.Updated.ContentHash,
			GroupID:      session.Submission.OwnerGroup(),
			Principal:    session.Principal,
		})
		w.Header().Set("X-WOPI-ItemVersion", strconv.FormatInt(resp.Updated.TimeModified.Unix(), 10))
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusOK)
	}
}

// writeError maps a protocol error to its HTTP status. The response body
// carries only the generic status text; details stay in the log so storage
// internals never leak to the editor.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		logger.Error("WOPI request failed: %v", err)
	} else {
		logger.Debug("WOPI request rejected (%d): %v", status, err)
	}
	http.Error(w, http.StatusText(status), status)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, wopi.ErrMalformedToken),
		errors.Is(err, wopi.ErrInvalidRequestPath),
		errors.Is(err, wopi.ErrInvalidFileID),
		errors.Is(err, wopi.ErrInvalidRequestType):
		return http.StatusBadRequest

	case errors.Is(err, wopi.ErrTokenCheckMismatch):
		return http.StatusUnauthorized

	case errors.Is(err, wopi.ErrReadOnlyViolation):
		return http.StatusForbidden

	case errors.Is(err, wopi.ErrResourceNotFound),
		errors.Is(err, wopi.ErrForeignResource):
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}
