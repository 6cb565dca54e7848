package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/petcare/vetclinic-backend/api"
	"github.com/petcare/vetclinic-backend/api/controllers"
	"github.com/petcare/vetclinic-backend/api/routes"
	"github.com/petcare/vetclinic-backend/internal/appointments"
	"github.com/petcare/vetclinic-backend/internal/auth"
	"github.com/petcare/vetclinic-backend/internal/catalog"
	"github.com/petcare/vetclinic-backend/internal/identity"
	"github.com/petcare/vetclinic-backend/internal/images"
	"github.com/petcare/vetclinic-backend/internal/notifications"
	"github.com/petcare/vetclinic-backend/internal/pets"
	"github.com/petcare/vetclinic-backend/internal/treatments"
	"github.com/petcare/vetclinic-backend/internal/users"
	"github.com/petcare/vetclinic-backend/internal/vaccines"
	"github.com/petcare/vetclinic-backend/pkg/auth/session"
	"github.com/petcare/vetclinic-backend/pkg/config"
	"github.com/petcare/vetclinic-backend/pkg/db"
	"github.com/petcare/vetclinic-backend/pkg/logger"
	"github.com/petcare/vetclinic-backend/pkg/mailer"
	"github.com/petcare/vetclinic-backend/pkg/metrics"
	"github.com/petcare/vetclinic-backend/pkg/migrate"
	"github.com/petcare/vetclinic-backend/pkg/pubsub"
	"github.com/petcare/vetclinic-backend/pkg/redis"
	"github.com/petcare/vetclinic-backend/pkg/security"
	"github.com/petcare/vetclinic-backend/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	loc, err := cfg.Clinic.Location()
	if err != nil {
		logg.Error(context.Background(), "invalid clinic timezone", err)
		os.Exit(1)
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pingers := map[string]controllers.Pinger{
		"postgres": dbClient,
		"redis":    redisClient,
	}

	var imageStore images.Store
	if cfg.FeatureFlags.Images {
		gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap gcs", err)
			os.Exit(1)
		}
		imageStore, err = images.NewGCSStore(gcsClient, cfg.GCS.BucketName, cfg.GCS.DownloadURLExpiry)
		if err != nil {
			logg.Error(context.Background(), "failed to create image store", err)
			os.Exit(1)
		}
		pingers["gcs"] = gcsClient
	}

	mail, err := mailer.New(cfg.Sendgrid, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mailer", err)
		os.Exit(1)
	}

	var publisher notifications.Publisher
	if cfg.PubSub.NotificationTopic != "" {
		psClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		publisher = psClient
		pingers["pubsub"] = psClient
	}

	userRepo := users.NewRepository(dbClient.DB())

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	resolver, err := identity.NewResolver(cfg.JWT, sessionManager, userRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create identity resolver", err)
		os.Exit(1)
	}

	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Mailer:      mail,
		Staff:       userRepo,
		Publisher:   publisher,
		Metrics:     metrics.NewNotificationMetrics(prometheus.DefaultRegisterer),
		Logger:      logg,
		ClinicName:  cfg.Clinic.Name,
		FrontendURL: cfg.Clinic.FrontendURL,
		Location:    loc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}

	hasher := security.NewHasher(cfg.Password)

	userService, err := users.NewService(users.ServiceParams{
		DB:     dbClient,
		Hasher: hasher,
		Images: imageStore,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		Accounts:       userService,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		Hasher:         hasher,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	petService, err := pets.NewService(pets.ServiceParams{
		DB:     dbClient,
		Images: imageStore,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pets service", err)
		os.Exit(1)
	}

	vaccineService, err := vaccines.NewService(vaccines.ServiceParams{
		DB:       dbClient,
		Location: loc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create vaccines service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		DB:     dbClient,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}
	if err := catalogService.EnsureMainServices(context.Background()); err != nil {
		logg.Error(context.Background(), "failed to seed main services", err)
		os.Exit(1)
	}

	appointmentService, err := appointments.NewService(appointments.ServiceParams{
		DB:       dbClient,
		Notifier: dispatcher,
		Images:   imageStore,
		Logger:   logg,
		LeadTime: cfg.Clinic.BookingLeadTime,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create appointments service", err)
		os.Exit(1)
	}

	treatmentService, err := treatments.NewService(treatments.ServiceParams{
		DB:     dbClient,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create treatments service", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(cfg, logg, routes.Dependencies{
		Resolver:     resolver,
		RateLimiter:  redisClient,
		Pingers:      pingers,
		HTTPMetrics:  metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
		Gatherer:     prometheus.DefaultGatherer,
		Auth:         authService,
		Users:        userService,
		Pets:         petService,
		Vaccines:     vaccineService,
		Catalog:      catalogService,
		Appointments: appointmentService,
		Treatments:   treatmentService,
	})
	server := api.NewServer(cfg, handler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        server.Addr,
		"serviceKind": cfg.Service.Kind,
	})

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "api server shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), api.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}
