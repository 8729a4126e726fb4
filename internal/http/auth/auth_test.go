package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/docmatch/internal/http/auth"
)

func TestMiddleware(t *testing.T) {
	valid, err := auth.NewToken("secret", "tui", time.Hour)
	require.NoError(t, err)

	expired, err := auth.NewToken("secret", "tui", -time.Hour)
	require.NoError(t, err)

	foreign, err := auth.NewToken("other", "tui", time.Hour)
	require.NoError(t, err)

	type testCase struct {
		name       string
		secret     string
		header     string
		wantStatus int
	}

	tests := []testCase{
		{name: "disabled", secret: "", header: "", wantStatus: http.StatusOK},
		{name: "valid", secret: "secret", header: "Bearer " + valid, wantStatus: http.StatusOK},
		{name: "missing", secret: "secret", header: "", wantStatus: http.StatusUnauthorized},
		{name: "expired", secret: "secret", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized},
		{name: "wrong key", secret: "secret", header: "Bearer " + foreign, wantStatus: http.StatusUnauthorized},
		{name: "not bearer", secret: "secret", header: "Basic abc", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := auth.Middleware(tt.secret)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"error_code":"UNAUTHORIZED"`)
			}
		})
	}
}

func TestVerify(t *testing.T) {
	token, err := auth.NewToken("secret", "batch-client", time.Minute)
	require.NoError(t, err)

	sub, err := auth.Verify("secret", "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "batch-client", sub)
}
