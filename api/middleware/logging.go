package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/petcare/vetclinic-backend/pkg/logger"
)

// wrap returns w as a chi WrapResponseWriter, reusing one installed by an
// outer middleware.
func wrap(w http.ResponseWriter, r *http.Request) chimw.WrapResponseWriter {
	if ww, ok := w.(chimw.WrapResponseWriter); ok {
		return ww
	}
	return chimw.NewWrapResponseWriter(w, r.ProtoMajor)
}

// statusOf treats a handler that never wrote anything as 200.
func statusOf(ww chimw.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}

// routePattern is the matched chi pattern, or "unmatched" for 404s so raw
// paths never become metric labels.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// Logging writes one request.complete line per request. Client errors log at
// info; 5xx responses are already logged with their cause by WriteError.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			ww := wrap(w, r)

			next.ServeHTTP(ww, r.WithContext(ctx))

			logg.Info(logg.WithFields(ctx, map[string]any{
				"route":       routePattern(r),
				"status":      statusOf(ww),
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(started).Milliseconds(),
			}), "request.complete")
		})
	}
}
