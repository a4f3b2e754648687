package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/socialchef/moodbite/internal/errors"
)

type CreateJobResponse struct {
	JobID     string `json:"job_id"`
	StatusURL string `json:"status_url"`
}

// HandleCreateJob enqueues a video recommendation and answers 202.
func (s *Server) HandleCreateJob(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeObject(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	raw, ok := fields[videoURLKey]
	if !ok || raw == nil {
		writeError(w, r, errors.NewClientInputError("video_url is required", "MISSING_VIDEO_URL", "Send {\"video_url\": \"https://...\"}."))
		return
	}
	locator, err := videoURL(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jobID, err := s.jobs.Enqueue(r.Context(), locator)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/jobs/"+jobID)
	writeJSON(w, http.StatusAccepted, CreateJobResponse{
		JobID:     jobID,
		StatusURL: "/api/jobs/" + jobID,
	})
}

// HandleJobStatus reports the state and, once finished, the result of a job.
func (s *Server) HandleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(jobID); err != nil {
		writeError(w, r, errors.NewClientInputError("job id must be a UUID", "INVALID_JOB_ID", ""))
		return
	}

	status, err := s.jobs.Status(r.Context(), jobID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
