package document

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/docmatch/internal/document"
	"github.com/MrJamesThe3rd/docmatch/internal/http/httperr"
	"github.com/MrJamesThe3rd/docmatch/internal/importer"
	"github.com/MrJamesThe3rd/docmatch/internal/matching"
)

const maxUploadSize = 32 << 20

type Handler struct {
	docs      *document.Service
	matchSvc  *matching.Service
	importSvc *importer.Service
	// candidateCap bounds the stored candidates loaded for one match.
	candidateCap int
}

func NewHandler(docs *document.Service, matchSvc *matching.Service, importSvc *importer.Service, candidateCap int) *Handler {
	return &Handler{
		docs:         docs,
		matchSvc:     matchSvc,
		importSvc:    importSvc,
		candidateCap: candidateCap,
	}
}

// Routes registers the JSON endpoints. Import is mounted separately by the
// router because it takes a multipart body.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/match", h.match)
}

func (h *Handler) ImportRoutes(r chi.Router) {
	r.Post("/", h.importFile)
}

type createResponse struct {
	ID         string   `json:"id"`
	Kind       string   `json:"kind"`
	References []string `json:"references"`
}

type invalidDTO struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type importResponse struct {
	Imported  []string     `json:"imported"`
	Conflicts []string     `json:"conflicts,omitempty"`
	Invalid   []invalidDTO `json:"invalid"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var p document.Payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.CodeInvalidJSON, "Invalid JSON request body", err.Error())
		return
	}

	rec, err := h.docs.Save(r.Context(), &p)
	if err != nil {
		slog.Error("failed to save document", "document_id", p.ID, "error", err)
		httperr.WriteDocument(w, err, httperr.CodeInternal)

		return
	}

	refs := rec.References()
	if refs == nil {
		refs = []string{}
	}

	writeJSON(w, http.StatusCreated, createResponse{ID: rec.ID, Kind: string(rec.Kind), References: refs})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter document.ListFilter

	if v := q.Get("kind"); v != "" {
		kind, err := document.ParseKind(v)
		if err != nil {
			httperr.WriteDocument(w, err, httperr.CodeInternal)
			return
		}

		filter.Kind = &kind
	}

	if v := q.Get("supplier"); v != "" {
		filter.SupplierID = &v
	}

	limit, err := ParseLimit(q.Get("limit"))
	if err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.CodeValidation, "invalid limit", err.Error())
		return
	}

	filter.Limit = limit

	docs, err := h.docs.List(r.Context(), filter)
	if err != nil {
		slog.Error("failed to list documents", "error", err)
		httperr.Write(w, http.StatusInternalServerError, httperr.CodeInternal, "failed to list documents", "")

		return
	}

	if docs == nil {
		docs = []*document.Payload{}
	}

	writeJSON(w, http.StatusOK, docs)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.docs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httperr.WriteDocument(w, err, httperr.CodeInternal)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.docs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httperr.WriteDocument(w, err, httperr.CodeInternal)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// match pairs a stored document against the other stored documents sharing
// a supplier or a reference with it.
func (h *Handler) match(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rec, err := h.docs.Record(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httperr.WriteDocument(w, err, httperr.CodeInternal)
		return
	}

	candidates, err := h.docs.Candidates(ctx, rec, h.candidateCap)
	if err != nil {
		slog.Error("failed to load candidates", "document_id", rec.ID, "error", err)
		httperr.Write(w, http.StatusInternalServerError, httperr.CodeInternal, "failed to load candidates", "")

		return
	}

	rep, err := h.matchSvc.Match(ctx, rec, candidates)
	if err != nil {
		httperr.WriteDocument(w, err, httperr.CodeMatchingService)
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) importFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.CodeValidation, "failed to parse form", err.Error())
		return
	}

	overwrite := false

	if v := r.FormValue("overwrite"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			httperr.Write(w, http.StatusBadRequest, httperr.CodeValidation, "invalid overwrite flag", err.Error())
			return
		}

		overwrite = b
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.CodeValidation, "file field is required", "")
		return
	}
	defer file.Close()

	payloads, err := h.importSvc.Import(importer.Source(r.FormValue("source")), file)
	if err != nil {
		httperr.Write(w, http.StatusBadRequest, httperr.CodeValidation, "failed to parse import file", err.Error())
		return
	}

	result, err := h.docs.ImportBatch(r.Context(), payloads, overwrite)
	if err != nil {
		slog.Error("failed to import documents", "error", err)
		httperr.Write(w, http.StatusInternalServerError, httperr.CodeInternal, "failed to import documents", "")

		return
	}

	resp := importResponse{
		Imported:  result.Imported,
		Conflicts: result.Conflicts,
		Invalid:   make([]invalidDTO, 0, len(result.Invalid)),
	}

	if resp.Imported == nil {
		resp.Imported = []string{}
	}

	for _, inv := range result.Invalid {
		resp.Invalid = append(resp.Invalid, invalidDTO(inv))
	}

	status := http.StatusCreated
	if len(result.Conflicts) > 0 {
		status = http.StatusConflict
	}

	writeJSON(w, status, resp)
}

var errNegativeLimit = errors.New("limit must not be negative")

// ParseLimit reads an optional limit query value. Empty means no limit.
func ParseLimit(v string) (int, error) {
	if v == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}

	if n < 0 {
		return 0, errNegativeLimit
	}

	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
