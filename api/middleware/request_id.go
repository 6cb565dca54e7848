package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/petcare/vetclinic-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// inbound ids are echoed into logs and headers, so only short tokens pass.
var requestIDRe = regexp.MustCompile(`^[A-Za-z0-9._-]{8,64}$`)

// RequestID tags the request context and response with an id. A well formed
// id from the client or a proxy is kept; anything else is replaced.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if !requestIDRe.MatchString(id) {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			if logg != nil {
				r = r.WithContext(logg.WithRequestID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}
