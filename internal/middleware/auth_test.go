package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bryanwahyu/metaselect/internal/domain/auth"
)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := UserFromContext(r.Context()); u != nil {
			w.Write([]byte(u.ID))
			return
		}
		w.Write([]byte("anonymous"))
	})
}

func TestAPIKeyAuth(t *testing.T) {
	keys := map[string]auth.User{"k-123": {ID: "u1", Name: "Rina"}}
	h := APIKeyAuth(keys)(echoUser())

	tests := []struct {
		name   string
		path   string
		header string
		code   int
		body   string
	}{
		{name: "bearer key", path: "/v1/sessions", header: "Bearer k-123", code: http.StatusOK, body: "u1"},
		{name: "bare key", path: "/v1/sessions", header: "k-123", code: http.StatusOK, body: "u1"},
		{name: "missing header", path: "/v1/sessions", code: http.StatusUnauthorized},
		{name: "wrong key", path: "/v1/sessions", header: "Bearer nope", code: http.StatusUnauthorized},
		{name: "empty bearer", path: "/v1/sessions", header: "Bearer ", code: http.StatusUnauthorized},
		{name: "open path", path: "/health", code: http.StatusOK, body: "anonymous"},
		{name: "metrics", path: "/metrics", code: http.StatusOK, body: "anonymous"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}

func TestAPIKeyAuthDisabledWithoutKeys(t *testing.T) {
	h := APIKeyAuth(nil)(echoUser())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}
