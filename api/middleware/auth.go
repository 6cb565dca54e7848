package middleware

import (
	"context"
	"net/http"

	"github.com/petcare/vetclinic-backend/api/responses"
	"github.com/petcare/vetclinic-backend/api/validators"
	"github.com/petcare/vetclinic-backend/internal/identity"
	"github.com/petcare/vetclinic-backend/pkg/logger"
)

// SessionCookieName is read when no Authorization header is sent.
const SessionCookieName = "petcare_session"

type actorResolver interface {
	Resolve(ctx context.Context, token string) (identity.Session, error)
}

// Auth resolves the session token into an identity.Actor and rejects
// anonymous requests.
func Auth(resolver actorResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := validators.BearerToken(r, SessionCookieName)

			sess, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithActor(r.Context(), sess.Actor)
			ctx = WithAccessID(ctx, sess.AccessID)

			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    sess.Actor.UserID.String(),
					"actor_role": sess.Actor.Role.String(),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
