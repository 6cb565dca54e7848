package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/petcare/vetclinic-backend/api/controllers"
	"github.com/petcare/vetclinic-backend/api/middleware"
	"github.com/petcare/vetclinic-backend/internal/appointments"
	"github.com/petcare/vetclinic-backend/internal/auth"
	"github.com/petcare/vetclinic-backend/internal/catalog"
	"github.com/petcare/vetclinic-backend/internal/identity"
	"github.com/petcare/vetclinic-backend/internal/pets"
	"github.com/petcare/vetclinic-backend/internal/treatments"
	"github.com/petcare/vetclinic-backend/internal/users"
	"github.com/petcare/vetclinic-backend/internal/vaccines"
	"github.com/petcare/vetclinic-backend/pkg/config"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	"github.com/petcare/vetclinic-backend/pkg/logger"
	"github.com/petcare/vetclinic-backend/pkg/metrics"
)

type actorResolver interface {
	Resolve(ctx context.Context, token string) (identity.Session, error)
}

type rateLimiter interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Dependencies groups what the router hands to middleware and controllers.
// Nil services answer 500 from their controllers; nil pingers are skipped by
// the readiness probe.
type Dependencies struct {
	Resolver    actorResolver
	RateLimiter rateLimiter
	Pingers     map[string]controllers.Pinger
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer

	Auth         auth.Service
	Users        users.Service
	Pets         pets.Service
	Vaccines     vaccines.Service
	Catalog      catalog.Service
	Appointments appointments.Service
	Treatments   treatments.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	maxUpload := cfg.Media.MaxUploadBytes()

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	authenticate := middleware.Auth(deps.Resolver, logg)
	staff := middleware.RequireRole(logg, enums.RoleStaff)
	staffOrVet := middleware.RequireRole(logg, enums.RoleStaff, enums.RoleVet)
	clientOrStaff := middleware.RequireRole(logg, enums.RoleClient, enums.RoleStaff)
	vet := middleware.RequireRole(logg, enums.RoleVet)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, deps.RateLimiter, logg)).
				Post("/register", controllers.AuthRegister(deps.Auth, maxUpload, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, deps.RateLimiter, logg)).
				Post("/login", controllers.AuthLogin(deps.Auth, cfg.App.IsProd(), logg))
			r.With(authenticate).Post("/logout", controllers.AuthLogout(deps.Auth, logg))
			r.With(authenticate).Get("/profile", controllers.AuthProfile(deps.Auth, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Route("/users", func(r chi.Router) {
				r.With(staff).Get("/", controllers.UserList(deps.Users, logg))
				r.With(staff).Post("/", controllers.UserCreate(deps.Users, maxUpload, logg))
				r.Get("/{userID}", controllers.UserGet(deps.Users, logg))
				r.Patch("/{userID}", controllers.UserUpdate(deps.Users, logg))
				r.Delete("/{userID}", controllers.UserDelete(deps.Users, logg))
				r.Put("/{userID}/image", controllers.UserSetImage(deps.Users, maxUpload, logg))
			})

			r.Route("/pets", func(r chi.Router) {
				r.Get("/", controllers.PetList(deps.Pets, logg))
				r.Post("/", controllers.PetCreate(deps.Pets, maxUpload, logg))
				r.Get("/{petID}", controllers.PetGet(deps.Pets, logg))
				r.Patch("/{petID}", controllers.PetUpdate(deps.Pets, logg))
				r.Delete("/{petID}", controllers.PetDelete(deps.Pets, logg))
				r.Put("/{petID}/image", controllers.PetSetImage(deps.Pets, maxUpload, logg))
			})

			r.Route("/vaccines", func(r chi.Router) {
				r.Get("/", controllers.VaccineList(deps.Vaccines, logg))
				r.Get("/{vaccineID}", controllers.VaccineGet(deps.Vaccines, logg))
				r.Group(func(r chi.Router) {
					r.Use(staffOrVet)
					r.Post("/", controllers.VaccineCreate(deps.Vaccines, logg))
					r.Patch("/{vaccineID}", controllers.VaccineUpdate(deps.Vaccines, logg))
					r.Delete("/{vaccineID}", controllers.VaccineDelete(deps.Vaccines, logg))
				})
			})

			r.Route("/vaccinations", func(r chi.Router) {
				r.Get("/", controllers.VaccinationList(deps.Vaccines, logg))
				r.Get("/{vaccinationID}", controllers.VaccinationGet(deps.Vaccines, logg))
				r.Group(func(r chi.Router) {
					r.Use(staffOrVet)
					r.Post("/", controllers.VaccinationCreate(deps.Vaccines, logg))
					r.Patch("/{vaccinationID}", controllers.VaccinationUpdate(deps.Vaccines, logg))
					r.Delete("/{vaccinationID}", controllers.VaccinationDelete(deps.Vaccines, logg))
				})
			})

			r.Route("/services", func(r chi.Router) {
				r.Get("/", controllers.ServiceList(deps.Catalog, logg))
				r.Get("/{serviceID}", controllers.ServiceGet(deps.Catalog, logg))
				r.Group(func(r chi.Router) {
					r.Use(staff)
					r.Post("/", controllers.ServiceCreate(deps.Catalog, logg))
					r.Patch("/{serviceID}", controllers.ServiceUpdate(deps.Catalog, logg))
					r.Delete("/{serviceID}", controllers.ServiceDelete(deps.Catalog, logg))
				})
			})

			r.Route("/appointments", func(r chi.Router) {
				r.Get("/", controllers.AppointmentList(deps.Appointments, logg))
				r.With(clientOrStaff).Post("/", controllers.AppointmentCreate(deps.Appointments, logg))
				r.Route("/{appointmentID}", func(r chi.Router) {
					r.Get("/", controllers.AppointmentGet(deps.Appointments, logg))
					r.With(clientOrStaff).Patch("/", controllers.AppointmentEdit(deps.Appointments, logg))
					r.With(clientOrStaff).Patch("/status", controllers.AppointmentStatus(deps.Appointments, logg))
					r.Get("/treatments", controllers.TreatmentList(deps.Treatments, logg))
					r.With(vet).Post("/treatments", controllers.TreatmentRecord(deps.Treatments, logg))
				})
			})
		})
	})

	return r
}
