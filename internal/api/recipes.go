package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/larder/internal/ingest"
	"github.com/kalambet/larder/internal/storage"
)

const maxImportBodySize = 10 << 20 // 10MB

type importResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type jobResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func handleImport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxImportBodySize)
		defer r.Body.Close()

		var req ingest.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		req.UserID = userFrom(r.Context()).UserID

		id, err := ingest.Enqueue(r.Context(), deps.Store, req)
		if errors.Is(err, ingest.ErrInvalidRequest) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to enqueue import: %v", err)
			return
		}

		writeJSON(w, http.StatusAccepted, importResponse{JobID: id, Status: storage.JobPending})
	}
}

// handleImportStatus reports an import job. Jobs owned by another user are
// reported as not found.
func handleImportStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		job, err := deps.Store.GetJob(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "import job not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get import job: %v", err)
			return
		}

		var req ingest.Request
		if job.Type != ingest.JobType || json.Unmarshal([]byte(job.PayloadJSON), &req) != nil ||
			req.UserID != userFrom(r.Context()).UserID {
			httpError(w, http.StatusNotFound, "not_found_error", "import job not found")
			return
		}

		writeJSON(w, http.StatusOK, jobResponse{
			ID:        job.ID,
			Status:    job.Status,
			Attempts:  job.Attempts,
			Error:     job.LastError,
			UpdatedAt: job.UpdatedAt,
		})
	}
}
