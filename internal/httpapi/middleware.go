// Package httpapi exposes the scheduling engine over HTTP for external
// callers that want a network boundary instead of linking the engine
// directly. It owns no scheduling state; every request builds a fresh
// catalogue.Context and calls scheduler.Run.
package httpapi

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/conplan/scheduler/pkg/logger"
)

// LoggingMiddleware logs request start/completion with a correlation id.
func LoggingMiddleware(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}
			wrapper.Header().Set("X-Request-ID", requestID)

			log.Info("http request started",
				"method", r.Method, "path", r.URL.Path, "request_id", requestID)

			next.ServeHTTP(wrapper, r)

			log.Info("http request completed",
				"method", r.Method, "path", r.URL.Path,
				"status", wrapper.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", requestID)
		})
	}
}

// RecoveryMiddleware turns a panic in a handler into a 500 response instead
// of taking the daemon down; the scheduling engine has no goroutines of its
// own, but handler code parsing the request body can still panic on bad
// input it fails to validate defensively.
func RecoveryMiddleware(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("http handler panic recovered",
						"error", rec, "path", r.URL.Path, "stack", string(debug.Stack()))
					writeJSONError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware allows cross-origin calls to the schedule endpoint; there
// is no session state or auth to leak (those stay out of the core's scope).
func CORSMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriterWrapper) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
