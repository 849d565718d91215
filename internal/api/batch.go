package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
)

// handleBatchStatus reports the progress of a previously submitted batch job
// (§6.1) by ID. Batch submission itself happens out-of-band via cmd batch,
// not over HTTP — this endpoint only reads store state.
func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "batch job tracking is not configured")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "batch job id is required")
		return
	}

	job, err := s.Store.GetBatchJob(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, eris.Wrap(err, "api: get batch job").Error())
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "batch job not found")
		return
	}

	writeJSON(w, http.StatusOK, job)
}
