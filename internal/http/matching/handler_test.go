package matching_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/docmatch/internal/http/httperr"
	httpmatching "github.com/MrJamesThe3rd/docmatch/internal/http/matching"
	"github.com/MrJamesThe3rd/docmatch/internal/itempairing"
	"github.com/MrJamesThe3rd/docmatch/internal/matching"
	"github.com/MrJamesThe3rd/docmatch/internal/pairing"
	"github.com/MrJamesThe3rd/docmatch/internal/report"
)

const invoiceJSON = `{"id": "inv-1", "kind": "invoice", "headers": [{"name": "orderReference", "value": "PO-1"}]}`

func poJSON(id, number string) string {
	return `{"id": "` + id + `", "kind": "purchase-order", "headers": [{"name": "orderNumber", "value": "` + number + `"}]}`
}

func newRouter(t *testing.T, limits httpmatching.Limits) (chi.Router, *matching.MockRepository) {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := matching.NewMockRepository(ctrl)

	svc := matching.NewService(repo, nil, matching.Engine{
		Predictor: pairing.NewPredictor(nil, pairing.DefaultConfig()),
		Items:     itempairing.NewService(nil),
		Assembler: report.NewAssembler(report.DefaultThresholds()),
		Options:   pairing.DefaultOptions(),
	})

	r := chi.NewRouter()
	r.Route("/match", httpmatching.NewHandler(svc, limits).Routes)

	return r, repo
}

func TestHandler_Match(t *testing.T) {
	type testCase struct {
		name       string
		body       string
		limits     httpmatching.Limits
		setupMock  func(repo *matching.MockRepository)
		wantStatus int
		wantCode   string
		wantLabel  string
		wantDocs   int
	}

	tests := []testCase{
		{
			name: "matched",
			body: `{"document": ` + invoiceJSON + `, "candidate-documents": [` + poJSON("po-1", "PO-1") + `]}`,
			setupMock: func(repo *matching.MockRepository) {
				repo.EXPECT().FindLinks(gomock.Any(), gomock.Any()).Return(nil, nil)
				repo.EXPECT().CreateLinks(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantStatus: http.StatusOK,
			wantLabel:  report.LabelMatched,
			wantDocs:   2,
		},
		{
			name: "truncated to processing cap",
			body: `{"document": ` + invoiceJSON + `, "candidate-documents": [` +
				poJSON("po-9", "PO-9") + `, ` + poJSON("po-1", "PO-1") + `]}`,
			limits: httpmatching.Limits{MaxCandidates: 5, ProcessingCap: 1},
			setupMock: func(repo *matching.MockRepository) {
				repo.EXPECT().FindLinks(gomock.Any(), []string{"inv-1", "po-9"}).Return(nil, nil)
			},
			wantStatus: http.StatusOK,
			wantLabel:  report.LabelNoMatch,
			wantDocs:   1,
		},
		{
			name:       "invalid json",
			body:       `{"document": `,
			wantStatus: http.StatusBadRequest,
			wantCode:   httperr.CodeInvalidJSON,
		},
		{
			name: "too many candidates",
			body: `{"document": ` + invoiceJSON + `, "candidate-documents": [` +
				poJSON("po-1", "PO-1") + `, ` + poJSON("po-2", "PO-2") + `]}`,
			limits:     httpmatching.Limits{MaxCandidates: 1},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   httperr.CodePayloadTooLarge,
		},
		{
			name:       "unknown kind",
			body:       `{"document": {"id": "x", "kind": "receipt", "headers": []}, "candidate-documents": []}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   httperr.CodeInvalidDocumentKind,
		},
		{
			name:       "candidate without id",
			body:       `{"document": ` + invoiceJSON + `, "candidate-documents": [{"kind": "purchase-order", "headers": []}]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   httperr.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, repo := newRouter(t, tt.limits)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			req := httptest.NewRequest(http.MethodPost, "/match", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set(httpmatching.TraceHeader, "trace-1")

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			if tt.wantCode != "" {
				var resp httperr.Response
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, tt.wantCode, resp.ErrorCode)

				return
			}

			var rep report.Report
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&rep))
			assert.Contains(t, rep.Labels, tt.wantLabel)
			assert.Len(t, rep.Documents, tt.wantDocs)
		})
	}
}
