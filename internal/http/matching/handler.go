package matching

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/docmatch/internal/http/httperr"
	"github.com/MrJamesThe3rd/docmatch/internal/matching"
)

const (
	TraceHeader    = "x-om-trace-id"
	missingTraceID = "<x-om-trace-id missing>"
)

// Limits bounds the candidate lists a request may carry. Requests over
// MaxCandidates are rejected; requests over ProcessingCap are truncated.
type Limits struct {
	MaxCandidates int
	ProcessingCap int
}

type Handler struct {
	svc    *matching.Service
	limits Limits
}

func NewHandler(svc *matching.Service, limits Limits) *Handler {
	return &Handler{svc: svc, limits: limits}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.match)
}

func (h *Handler) match(w http.ResponseWriter, r *http.Request) {
	traceID := r.Header.Get(TraceHeader)
	if traceID == "" {
		traceID = missingTraceID
	}

	var req matching.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("failed to decode match request", "trace_id", traceID, "error", err)
		httperr.Write(w, http.StatusBadRequest, httperr.CodeInvalidJSON, "Invalid JSON request body", err.Error())

		return
	}

	if !CheckCandidates(w, &req, h.limits, traceID) {
		return
	}

	slog.Info("processing match request",
		"trace_id", traceID,
		"document_id", req.Document.ID,
		"candidates", len(req.Candidates),
	)

	rep, err := h.svc.MatchRequest(matching.WithTraceID(r.Context(), traceID), req)
	if err != nil {
		httperr.WriteDocument(w, err, httperr.CodeMatchingService)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(rep); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// CheckCandidates rejects req when it is over the hard limit and truncates it
// to the processing cap otherwise. It reports whether the request may
// proceed.
func CheckCandidates(w http.ResponseWriter, req *matching.Request, limits Limits, traceID string) bool {
	if limits.MaxCandidates > 0 && len(req.Candidates) > limits.MaxCandidates {
		slog.Error("too many candidate documents", "trace_id", traceID, "candidates", len(req.Candidates))
		httperr.Write(w, http.StatusRequestEntityTooLarge, httperr.CodePayloadTooLarge,
			fmt.Sprintf("Payload too large. Maximum %d candidate documents allowed", limits.MaxCandidates), "")

		return false
	}

	if n, cut := req.Truncate(limits.ProcessingCap); cut {
		slog.Warn("truncating candidate documents",
			"trace_id", traceID,
			"received", n,
			"processing_cap", limits.ProcessingCap,
		)
	}

	return true
}
