package config

// EnvPrefix is empty because every field carries its full variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv         = "PETCARE_APP_ENV"
	EnvPort           = "PETCARE_APP_PORT"
	EnvLogLevel       = "PETCARE_LOG_LEVEL"
	EnvDBDSN          = "PETCARE_DB_DSN"
	EnvDBHost         = "PETCARE_DB_HOST"
	EnvDBUser         = "PETCARE_DB_USER"
	EnvDBName         = "PETCARE_DB_NAME"
	EnvUseSQLite      = "PETCARE_USE_SQLITE"
	EnvRedisURL       = "PETCARE_REDIS_URL"
	EnvJWTSecret      = "PETCARE_JWT_SECRET"
	EnvJWTIssuer      = "PETCARE_JWT_ISSUER"
	EnvJWTExpMins     = "PETCARE_JWT_EXPIRATION_MINUTES"
	EnvClinicTimezone = "PETCARE_CLINIC_TIMEZONE"
	EnvLeadTime       = "PETCARE_BOOKING_LEAD_TIME"
	EnvReminderHour   = "PETCARE_REMINDER_HOUR"
	EnvFeatureImages  = "PETCARE_FEATURE_IMAGES"
	EnvGCSBucket      = "PETCARE_GCS_BUCKET_NAME"
	EnvSendgridKey    = "PETCARE_SENDGRID_API_KEY"
	EnvNotifyTopic    = "PETCARE_PUBSUB_NOTIFICATION_TOPIC"
)
