package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/docmatch/internal/export"
	"github.com/MrJamesThe3rd/docmatch/internal/http/httperr"
	"github.com/MrJamesThe3rd/docmatch/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc       *report.Service
	exportSvc *export.Service
}

func NewHandler(svc *report.Service, exportSvc *export.Service) *Handler {
	return &Handler{svc: svc, exportSvc: exportSvc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/export", h.export)
	r.Get("/{id}", h.get)
}

func parseFilter(r *http.Request) (report.ListFilter, error) {
	q := r.URL.Query()

	var filter report.ListFilter

	if v := q.Get("label"); v != "" {
		filter.Label = &v
	}

	if v := q.Get("document_id"); v != "" {
		filter.DocumentID = &v
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("invalid limit %q", v)
		}

		filter.Limit = n
	}

	return filter, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.CodeValidation, err.Error(), "")
		return
	}

	reports, err := h.svc.List(r.Context(), filter)
	if err != nil {
		slog.Error("failed to list reports", "error", err)
		httperr.Write(w, http.StatusInternalServerError, httperr.CodeInternal, "failed to list reports", "")

		return
	}

	if reports == nil {
		reports = []*report.Report{}
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(reports); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rep, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			httperr.Write(w, http.StatusNotFound, httperr.CodeNotFound, fmt.Sprintf("Report %s not found", id), "")
			return
		}

		slog.Error("failed to get report", "report_id", id, "error", err)
		httperr.Write(w, http.StatusInternalServerError, httperr.CodeInternal, "failed to get report", "")

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(rep); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.CodeValidation, err.Error(), "")
		return
	}

	var buf bytes.Buffer

	n, err := h.exportSvc.Export(r.Context(), filter, &buf)
	if err != nil {
		slog.Error("failed to export reports", "error", err)
		httperr.Write(w, http.StatusInternalServerError, httperr.CodeInternal, "failed to export reports", "")

		return
	}

	filename := fmt.Sprintf("reports_%s.xlsx", time.Now().Format("2006-01-02"))

	slog.Info("exported reports", "count", n, "bytes", buf.Len())

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))

	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("failed to write export", "error", err)
	}
}
