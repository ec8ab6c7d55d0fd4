package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dieselroute/dieselroute/internal/api/middleware"
)

func TestRequireContentType(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		contentType string
		want        int
	}{
		{"json accepted", http.MethodPost, "application/json", http.StatusOK},
		{"json with charset", http.MethodPost, "application/json; charset=utf-8", http.StatusOK},
		{"missing header allowed", http.MethodPost, "", http.StatusOK},
		{"text rejected", http.MethodPost, "text/plain", http.StatusUnsupportedMediaType},
		{"form rejected on json route", http.MethodPut, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"malformed rejected", http.MethodPatch, "application/", http.StatusUnsupportedMediaType},
		{"get ignored", http.MethodGet, "text/plain", http.StatusOK},
	}

	handler := middleware.RequireContentType(middleware.MediaTypeJSON)(okHandler())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/v1/estimates", strings.NewReader("{}"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnsupportedMediaType {
				assert.Contains(t, rec.Body.String(), "unsupported_media_type")
				assert.Contains(t, rec.Body.String(), "application/json")
			}
		})
	}
}

func TestRequireContentType_MultipleTypes(t *testing.T) {
	handler := middleware.RequireContentType(middleware.MediaTypeJSON, middleware.MediaTypeForm)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/diesel/route", strings.NewReader("originDepot=Lagos"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
