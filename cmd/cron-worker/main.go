package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/petcare/vetclinic-backend/internal/appointments"
	"github.com/petcare/vetclinic-backend/internal/cron"
	"github.com/petcare/vetclinic-backend/internal/notifications"
	"github.com/petcare/vetclinic-backend/internal/users"
	"github.com/petcare/vetclinic-backend/pkg/config"
	"github.com/petcare/vetclinic-backend/pkg/db"
	"github.com/petcare/vetclinic-backend/pkg/logger"
	"github.com/petcare/vetclinic-backend/pkg/mailer"
	"github.com/petcare/vetclinic-backend/pkg/metrics"
	"github.com/petcare/vetclinic-backend/pkg/migrate"
	"github.com/petcare/vetclinic-backend/pkg/pubsub"
	"github.com/petcare/vetclinic-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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
	}

	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Mailer:      mail,
		Staff:       users.NewRepository(dbClient.DB()),
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

	executions := cron.NewExecutionRepository(dbClient.DB())

	reminders, err := cron.NewReminderJob(cron.ReminderJobParams{
		Logger:       logg,
		Appointments: appointments.NewRepository(dbClient.DB()),
		Sender:       dispatcher,
		Marker:       redisClient,
		Location:     loc,
		DaysAhead:    cfg.Clinic.ReminderDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reminder job", err)
		os.Exit(1)
	}
	dailyReminders, err := cron.NewDailyJob(reminders, cfg.Clinic.ReminderHour, loc)
	if err != nil {
		logg.Error(context.Background(), "failed to schedule reminder job", err)
		os.Exit(1)
	}

	cleanup, err := cron.NewExecutionCleanupJob(cron.ExecutionCleanupJobParams{
		Logger:     logg,
		Repository: executions,
		Retention:  cfg.Cron.JobExecutionRetention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create job execution cleanup job", err)
		os.Exit(1)
	}
	dailyCleanup, err := cron.NewDailyJob(cleanup, 0, loc)
	if err != nil {
		logg.Error(context.Background(), "failed to schedule job execution cleanup", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(cron.LockName), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(dailyReminders, dailyCleanup)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Executions: executions,
		Interval:   cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
