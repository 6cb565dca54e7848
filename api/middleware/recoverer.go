package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/petcare/vetclinic-backend/api/responses"
	pkgerrors "github.com/petcare/vetclinic-backend/pkg/errors"
	"github.com/petcare/vetclinic-backend/pkg/logger"
)

// Recoverer turns a handler panic into a generic 500. The stack goes to the
// log only. http.ErrAbortHandler is re-raised so net/http can drop the
// connection as documented.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				ctx := r.Context()
				err := fmt.Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				if logg != nil {
					ctx = logg.WithField(ctx, "stack", string(debug.Stack()))
					logg.Error(ctx, "panic recovered", err)
				}
				responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
