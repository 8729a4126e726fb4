package report_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/docmatch/internal/export"
	httpreport "github.com/MrJamesThe3rd/docmatch/internal/http/report"
	"github.com/MrJamesThe3rd/docmatch/internal/report"
)

func newRouter(t *testing.T, setup func(repo *report.MockRepository)) chi.Router {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := report.NewMockRepository(ctrl)

	if setup != nil {
		setup(repo)
	}

	svc := report.NewService(repo)

	r := chi.NewRouter()
	r.Route("/reports", httpreport.NewHandler(svc, export.NewService(svc)).Routes)

	return r
}

func TestHandler_List(t *testing.T) {
	label := report.LabelMatched
	docID := "inv-1"

	type testCase struct {
		name       string
		query      string
		setupMock  func(repo *report.MockRepository)
		wantStatus int
		wantLen    int
	}

	tests := []testCase{
		{
			name:  "filtered",
			query: "?label=matched&document_id=inv-1&limit=10",
			setupMock: func(repo *report.MockRepository) {
				repo.EXPECT().ListReports(gomock.Any(), report.ListFilter{
					Label:      &label,
					DocumentID: &docID,
					Limit:      10,
				}).Return([]*report.Report{{ID: "r1"}, {ID: "r2"}}, nil)
			},
			wantStatus: http.StatusOK,
			wantLen:    2,
		},
		{
			name: "empty",
			setupMock: func(repo *report.MockRepository) {
				repo.EXPECT().ListReports(gomock.Any(), report.ListFilter{}).Return(nil, nil)
			},
			wantStatus: http.StatusOK,
		},
		{name: "bad limit", query: "?limit=x", wantStatus: http.StatusBadRequest},
		{
			name: "store failure",
			setupMock: func(repo *report.MockRepository) {
				repo.EXPECT().ListReports(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(t, tt.setupMock)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus != http.StatusOK {
				return
			}

			var got []report.Report
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestHandler_Get(t *testing.T) {
	r := newRouter(t, func(repo *report.MockRepository) {
		repo.EXPECT().GetReport(gomock.Any(), "r1").Return(&report.Report{ID: "r1", Labels: []string{report.LabelNoMatch}}, nil)
		repo.EXPECT().GetReport(gomock.Any(), "r2").Return(nil, report.ErrNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/r1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got report.Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "r1", got.ID)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/r2", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Export(t *testing.T) {
	r := newRouter(t, func(repo *report.MockRepository) {
		repo.EXPECT().ListReports(gomock.Any(), gomock.Any()).Return([]*report.Report{
			{ID: "r1", Site: "north", Labels: []string{report.LabelMatched}},
		}, nil)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/export", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Reports")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "r1", rows[1][0])
}
