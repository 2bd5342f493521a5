package httpx

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/testfarm/broker/internal/data"
	"github.com/testfarm/broker/internal/domain/model"
	"github.com/testfarm/broker/internal/service"
)

// JobHandlers handles job intake, claiming and lifecycle actions.
type JobHandlers struct {
	Svc    *service.Dispatcher
	Logger *slog.Logger
}

// Submit handles POST /v1/job.
func (h *JobHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if !DecodeJSON(w, r, &payload) {
		return
	}

	id, err := h.Svc.Submit(r.Context(), model.SubmitRequest{Payload: payload})
	switch {
	case errors.Is(err, model.ErrMissingQueue):
		WriteError(w, ErrorParams{Code: http.StatusUnprocessableEntity, ErrCode: "missing_queue", Err: err})
		return
	case errors.Is(err, model.ErrInvalidJobID):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_job_id", Err: err})
		return
	case errors.Is(err, data.ErrJobExists):
		WriteError(w, ErrorParams{Code: http.StatusConflict, ErrCode: "job_exists", Err: err})
		return
	case err != nil:
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "submit_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"job_id": id})
}

// Claim handles GET /v1/job?queue=q1&queue=q2.
func (h *JobHandlers) Claim(w http.ResponseWriter, r *http.Request) {
	queues := r.URL.Query()["queue"]

	job, err := h.Svc.Claim(r.Context(), queues)
	switch {
	case errors.Is(err, model.ErrMissingQueue):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_queue", Err: err})
		return
	case errors.Is(err, model.ErrNoJobsAvailable):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "claim_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// Get handles GET /v1/job/{job_id}.
func (h *JobHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("job_id")

	job, err := h.Svc.GetJob(r.Context(), id)
	switch {
	case errors.Is(err, model.ErrInvalidJobID):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_job_id", Err: err})
		return
	case errors.Is(err, service.ErrJobNotFound):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "get_job_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// Action handles POST /v1/job/{job_id}/action.
func (h *JobHandlers) Action(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("job_id")

	var req struct {
		Action string `json:"action"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	if req.Action != "cancel" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "unsupported_action",
			Err:     fmt.Errorf("invalid action: %q", req.Action),
		})
		return
	}

	err := h.Svc.Cancel(r.Context(), id)
	switch {
	case errors.Is(err, model.ErrInvalidJobID):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_job_id", Err: err})
		return
	case errors.Is(err, service.ErrJobNotFound):
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "job_not_found", Err: err})
		return
	case errors.Is(err, service.ErrJobNotCancellable):
		WriteError(w, ErrorParams{Code: http.StatusConflict, ErrCode: "job_not_cancellable", Err: err})
		return
	case err != nil:
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "cancel_failed", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"job_id": id})
}

// Position handles GET /v1/job/{job_id}/position.
//
// The body is a plain text number; a job that is unknown or no longer
// waiting answers 410 so pollers stop asking.
func (h *JobHandlers) Position(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("job_id")

	pos, err := h.Svc.Position(r.Context(), id)
	switch {
	case errors.Is(err, model.ErrInvalidJobID):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_job_id", Err: err})
		return
	case errors.Is(err, data.ErrJobNotWaiting):
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusGone)
		fmt.Fprint(w, "Job not found or already started")
		return
	case err != nil:
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "position_failed", Err: err})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, strconv.Itoa(pos))
}
