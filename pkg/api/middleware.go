package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ssargent/breakdb/pkg/store"
)

// maxValueBytes caps the body of a put request
const maxValueBytes = 8 << 20

var (
	errMissingAPIKey = errors.New("Missing X-API-Key header")
	errInvalidAPIKey = errors.New("Invalid API key")
)

// apiKeyMiddleware validates the X-API-Key header. An empty expected key
// rejects every request.
func apiKeyMiddleware(expectedKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := authorize(r, expectedKey); err != nil {
				sendError(w, err.Error(), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authorize(r *http.Request, expectedKey string) error {
	apiKey := r.Header.Get("X-API-Key")
	if apiKey == "" {
		return errMissingAPIKey
	}
	if expectedKey == "" || subtle.ConstantTimeCompare([]byte(apiKey), []byte(expectedKey)) != 1 {
		return errInvalidAPIKey
	}
	return nil
}

// limitBody stops handlers from reading more than limit bytes of body
func limitBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// sendSuccess sends a successful JSON response
func sendSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

// sendError sends an error JSON response
func sendError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, APIResponse{Error: message})
}

// sendStoreError reports a failed store operation with the status its
// error maps to.
func sendStoreError(w http.ResponseWriter, action string, err error) {
	sendError(w, fmt.Sprintf("%s: %v", action, err), statusFor(err))
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, errKeyNotFound):
		return http.StatusNotFound
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, store.ErrPoisoned), errors.Is(err, store.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
