package health_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/docmatch/internal/http/health"
)

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHandler(t *testing.T) {
	type testCase struct {
		name       string
		db         health.Pinger
		path       string
		wantStatus int
		wantBody   string
	}

	tests := []testCase{
		{name: "health", path: "/health", wantStatus: http.StatusOK, wantBody: "Ready to match\r\n"},
		{name: "ready without db", path: "/health/ready", wantStatus: http.StatusOK, wantBody: `{"status":"READY"}` + "\n"},
		{name: "ready", db: pinger{}, path: "/health/ready", wantStatus: http.StatusOK, wantBody: `{"status":"READY"}` + "\n"},
		{
			name:       "db down",
			db:         pinger{err: errors.New("connection refused")},
			path:       "/health/ready",
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"status":"NOT_READY","error":"connection refused"}` + "\n",
		},
		{name: "live", path: "/health/live", wantStatus: http.StatusOK, wantBody: `{"status":"HEALTHY"}` + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Route("/health", health.NewHandler(tt.db).Routes)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}
