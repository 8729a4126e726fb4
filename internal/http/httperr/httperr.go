// Package httperr writes the JSON error body shared by every endpoint.
package httperr

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/MrJamesThe3rd/docmatch/internal/document"
)

const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeInvalidJSON          = "INVALID_JSON"
	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	CodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	CodeInvalidDocumentKind  = "INVALID_DOCUMENT_KIND"
	CodeNotFound             = "NOT_FOUND"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeInternal             = "INTERNAL_SERVER_ERROR"
	CodeMatchingService      = "MATCHING_SERVICE_ERROR"
)

type Response struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
}

func Write(w http.ResponseWriter, status int, code, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(Response{
		ErrorCode: code,
		Message:   message,
		Detail:    detail,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// RequireJSON rejects requests that declare a body type other than JSON.
// Requests without a Content-Type header pass.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" {
			next.ServeHTTP(w, r)
			return
		}

		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || !strings.EqualFold(mediaType, "application/json") {
			Write(w, http.StatusUnsupportedMediaType, CodeUnsupportedMediaType,
				"Unsupported Media Type. Use application/json", ct)

			return
		}

		next.ServeHTTP(w, r)
	})
}

// WriteDocument maps document validation errors to 400 responses and
// anything else to a 500 with fallbackCode.
func WriteDocument(w http.ResponseWriter, err error, fallbackCode string) {
	switch {
	case errors.Is(err, document.ErrUnknownKind):
		Write(w, http.StatusBadRequest, CodeInvalidDocumentKind, "invalid document kind", err.Error())
	case errors.Is(err, document.ErrMissingID):
		Write(w, http.StatusBadRequest, CodeValidation, "document id is required", err.Error())
	case errors.Is(err, document.ErrNotFound):
		Write(w, http.StatusNotFound, CodeNotFound, "document not found", err.Error())
	default:
		slog.Error("request failed", "error", err)
		Write(w, http.StatusInternalServerError, fallbackCode, "failed to process document", err.Error())
	}
}
