package middleware

import (
	"mime"
	"net/http"
	"slices"
	"strings"

	"github.com/dieselroute/dieselroute/internal/api/models"
)

// Accepted request media types.
const (
	MediaTypeJSON      = "application/json"
	MediaTypeForm      = "application/x-www-form-urlencoded"
	MediaTypeMultipart = "multipart/form-data"
)

// RequireContentType rejects POST, PUT and PATCH requests whose
// Content-Type is not one of types with a 415 problem. A missing
// Content-Type is allowed.
func RequireContentType(types ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
			default:
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Content-Type")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			mediaType, _, err := mime.ParseMediaType(header)
			if err != nil || !slices.Contains(types, mediaType) {
				models.NewUnsupportedMediaType(GetRequestID(r.Context()),
					"Content-Type must be one of: "+strings.Join(types, ", ")).
					WithInstance(r.URL.Path).
					Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
