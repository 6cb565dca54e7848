package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/petcare/vetclinic-backend/api/responses"
	"github.com/petcare/vetclinic-backend/pkg/config"
	pkgerrors "github.com/petcare/vetclinic-backend/pkg/errors"
	"github.com/petcare/vetclinic-backend/pkg/logger"
)

const readinessTimeout = 3 * time.Second

// Pinger is a dependency probed by the readiness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PetCare-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency and answers 503 naming the ones down.
// A nil pinger means the dependency is disabled and is skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PetCare-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		failed := map[string]string{}
		for _, name := range names {
			dep := deps[name]
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "readiness check failed", err)
				}
				failed[name] = "unavailable"
			}
		}
		if len(failed) > 0 {
			responses.WriteError(r.Context(), nil, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(failed))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
