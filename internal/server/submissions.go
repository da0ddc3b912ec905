package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lite-tech/briefings/internal/submission"
)

// maxUploadBytes bounds the multipart image payload.
const maxUploadBytes = 10 << 20

type openSubmissionResponse struct {
	ID    string           `json:"id"`
	State submission.State `json:"state"`
}

func (s *Server) handleOpenSubmission(w http.ResponseWriter, _ *http.Request) {
	id, ctrl := s.store.Open()
	writeJSON(w, http.StatusCreated, openSubmissionResponse{
		ID:    id.String(),
		State: ctrl.State(),
	})
}

// resolveSession parses the id and looks the controller up, writing the
// error response itself on a miss.
func (s *Server) resolveSession(w http.ResponseWriter, r *http.Request) (*submission.Controller, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid session id", nil)
		return nil, false
	}
	ctrl, ok := s.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no such submission session", nil)
		return nil, false
	}
	return ctrl, true
}

func (s *Server) handleSubmissionState(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.resolveSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ctrl.State())
}

type titleRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleSubmissionTitle(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.resolveSession(w, r)
	if !ok {
		return
	}
	var req titleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	ctrl.SetTitle(req.Title)
	writeJSON(w, http.StatusOK, ctrl.State())
}

func (s *Server) handleSubmissionFile(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.resolveSession(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid multipart body", nil)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed",
			map[string]string{"image": "required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "could not read image", nil)
		return
	}

	ctrl.PickFile(header.Filename, data)
	writeJSON(w, http.StatusOK, ctrl.State())
}

func (s *Server) handleSubmissionConfirm(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.resolveSession(w, r)
	if !ok {
		return
	}
	ctrl.Confirm(r.Context())
	writeJSON(w, http.StatusOK, ctrl.State())
}

func (s *Server) handleSubmissionRetry(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.resolveSession(w, r)
	if !ok {
		return
	}
	ctrl.Retry()
	writeJSON(w, http.StatusOK, ctrl.State())
}

func (s *Server) handleSubmissionDone(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.resolveSession(w, r)
	if !ok {
		return
	}
	ctrl.Done(r.Context())
	writeJSON(w, http.StatusOK, ctrl.State())
}

func (s *Server) handleCloseSubmission(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.resolveSession(w, r)
	if !ok {
		return
	}
	ctrl.Close()
	writeJSON(w, http.StatusOK, ctrl.State())
}
