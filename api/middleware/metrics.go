package middleware

import (
	"net/http"
	"time"

	"github.com/petcare/vetclinic-backend/pkg/metrics"
)

// Metrics observes every request under its route pattern.
func Metrics(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ww := wrap(w, r)
			next.ServeHTTP(ww, r)
			m.Observe(r.Method, routePattern(r), statusOf(ww), time.Since(started))
		})
	}
}
