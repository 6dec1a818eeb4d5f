package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/learnweb/moodle-assignsubmission-collabora/internal/logger"
	"github.com/learnweb/moodle-assignsubmission-collabora/internal/submission"
	"github.com/learnweb/moodle-assignsubmission-collabora/internal/wopi"
	"github.com/learnweb/moodle-assignsubmission-collabora/pkg/storage"
)

// mimeTypes maps the document formats the host serves to the MIME types the
// editor advertises actions for.
var mimeTypes = map[string]string{
	".odt":  "application/vnd.oasis.opendocument.text",
	".ods":  "application/vnd.oasis.opendocument.spreadsheet",
	".odp":  "application/vnd.oasis.opendocument.presentation",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".txt":  "text/plain",
}

// ViewResponse is the launch bundle for one editing session. The caller
// opens URL in an iframe and posts AccessToken to it, per the usual
// Collabora embedding flow.
type ViewResponse struct {
	URL         string `json:"url"`
	AccessToken string `json:"access_token"`
	FileID      string `json:"file_id"`
	Writable    bool   `json:"writable"`
}

// handleView prepares an editor launch for a submission. The acting
// principal comes from the user query parameter; the permission embedded in
// the issued file identifier reflects their live access, and is recomputed
// on every subsequent WOPI call anyway.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	if s.disc == nil {
		http.Error(w, "no editor configured", http.StatusNotImplemented)
		return
	}

	ctx := r.Context()

	submissionID, err := strconv.ParseInt(mux.Vars(r)["submission"], 10, 64)
	if err != nil {
		http.Error(w, "invalid submission id", http.StatusBadRequest)
		return
	}

	userID, err := strconv.ParseInt(r.URL.Query().Get("user"), 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "missing or invalid user parameter", http.StatusBadRequest)
		return
	}
	principal := submission.PrincipalID(userID)

	sub, err := s.subs.Lookup(submissionID)
	if err != nil {
		http.Error(w, "unknown submission", http.StatusNotFound)
		return
	}

	resource, err := s.store.FindByItem(ctx, wopi.Component, wopi.FileArea, submissionID)
	if err != nil {
		if errors.Is(err, storage.ErrResourceNotFound) {
			http.Error(w, "no document for submission", http.StatusNotFound)
			return
		}
		logger.Error("view lookup failed for submission %d: %v", submissionID, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	perm := wopi.ComputePermission(sub, principal, false)
	fileID := wopi.FileID{Hash: resource.PathnameHash, Writable: perm.Writable()}
	token := wopi.IssueToken(principal)

	mimeType, ok := mimeTypes[strings.ToLower(path.Ext(resource.Filename))]
	if !ok {
		http.Error(w, "unsupported document format", http.StatusUnsupportedMediaType)
		return
	}

	actionURL, err := s.disc.ActionURL(ctx, mimeType)
	if err != nil {
		logger.Error("discovery failed for %s: %v", mimeType, err)
		http.Error(w, "editor discovery failed", http.StatusBadGateway)
		return
	}

	wopiSrc := strings.TrimRight(s.cfg.CallbackURL, "/") + "/wopi/files/" + fileID.String()

	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(ViewResponse{
		URL:         actionURL + "WOPISrc=" + url.QueryEscape(wopiSrc),
		AccessToken: token,
		FileID:      fileID.String(),
		Writable:    perm.Writable(),
	})
	if err != nil {
		logger.Error("failed to write view response: %v", err)
	}
}
