package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docmatch/internal/http/httperr"
	"github.com/MrJamesThe3rd/docmatch/internal/job"
	"github.com/MrJamesThe3rd/docmatch/internal/matching"
)

type Handler struct {
	svc           *job.Service
	maxCandidates int
}

func NewHandler(svc *job.Service, maxCandidates int) *Handler {
	return &Handler{svc: svc, maxCandidates: maxCandidates}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Post("/async", h.create)
	r.Get("/{id}", h.get)
}

type createRequest struct {
	Requests []matching.Request `json:"requests"`
}

type createResponse struct {
	JobID     uuid.UUID  `json:"job_id"`
	Status    job.Status `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.CodeInvalidJSON, "Invalid JSON request body", err.Error())
		return
	}

	if len(req.Requests) == 0 {
		httperr.Write(w, http.StatusBadRequest, httperr.CodeValidation, "requests must not be empty", "")
		return
	}

	for i, mr := range req.Requests {
		if h.maxCandidates > 0 && len(mr.Candidates) > h.maxCandidates {
			httperr.Write(w, http.StatusRequestEntityTooLarge, httperr.CodePayloadTooLarge,
				fmt.Sprintf("Request %d: maximum %d candidate documents allowed", i, h.maxCandidates), "")

			return
		}
	}

	j, err := h.svc.Submit(r.Context(), req.Requests)
	if err != nil {
		slog.Error("failed to submit batch job", "error", err)
		httperr.Write(w, http.StatusInternalServerError, httperr.CodeInternal, "failed to create job", "")

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)

	if err := json.NewEncoder(w).Encode(createResponse{
		JobID:     j.ID,
		Status:    j.Status,
		CreatedAt: j.CreatedAt,
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.CodeValidation, "invalid job id", err.Error())
		return
	}

	j, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			httperr.Write(w, http.StatusNotFound, httperr.CodeNotFound, fmt.Sprintf("Job %s not found", id), "")
			return
		}

		slog.Error("failed to get job", "job_id", id, "error", err)
		httperr.Write(w, http.StatusInternalServerError, httperr.CodeInternal, "failed to get job", "")

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(j); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
