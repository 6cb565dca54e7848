package middleware

import (
	"net/http"

	"github.com/petcare/vetclinic-backend/api/responses"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	"github.com/petcare/vetclinic-backend/pkg/logger"
)

// RequireRole admits only actors holding one of roles. Ownership rules stay
// in the services; this guards routes that are role-only.
func RequireRole(logg *logger.Logger, roles ...enums.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := ActorFromContext(r.Context()).RequireRole(roles...); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
