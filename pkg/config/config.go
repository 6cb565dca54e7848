package config

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

const minProdSecretLen = 32

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Clinic        ClinicConfig
	Cron          CronConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
	PubSub        PubSubConfig
	Sendgrid      SendgridConfig
}

// Load reads every PETCARE_* variable, derives what can be derived and then
// reports all invalid settings at once.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if cfg.DB.DSN == "" && !cfg.DB.IsSQLite() {
		dsn, err := cfg.DB.legacyDSN()
		if err != nil {
			return nil, err
		}
		cfg.DB.DSN = dsn
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var err error
	if _, locErr := c.Clinic.Location(); locErr != nil {
		err = multierr.Append(err, locErr)
	}
	if c.Clinic.ReminderHour < 0 || c.Clinic.ReminderHour > 23 {
		err = multierr.Append(err, fmt.Errorf("%s must be between 0 and 23", EnvReminderHour))
	}
	if c.Clinic.BookingLeadTime < 0 {
		err = multierr.Append(err, fmt.Errorf("%s cannot be negative", EnvLeadTime))
	}
	if c.FeatureFlags.Images && strings.TrimSpace(c.GCS.BucketName) == "" {
		err = multierr.Append(err, fmt.Errorf("%s is required while %s is on", EnvGCSBucket, EnvFeatureImages))
	}
	if c.App.IsProd() && len(c.JWT.Secret) < minProdSecretLen {
		err = multierr.Append(err, fmt.Errorf("%s must be at least %d bytes in prod", EnvJWTSecret, minProdSecretLen))
	}
	return err
}

type AppConfig struct {
	Env          string `envconfig:"PETCARE_APP_ENV" required:"true"`
	Port         string `envconfig:"PETCARE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PETCARE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PETCARE_LOG_WARN_STACK" default:"false"`
	// CORSOrigins is a comma separated allow-list for browser clients.
	CORSOrigins string `envconfig:"PETCARE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits CORSOrigins into trimmed, non-empty entries.
func (a AppConfig) AllowedOrigins() []string {
	parts := strings.Split(a.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type ServiceConfig struct {
	Kind string `envconfig:"PETCARE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PETCARE_DB_DSN"`
	Driver string `envconfig:"PETCARE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PETCARE_DB_HOST"`
	LegacyPort     int    `envconfig:"PETCARE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PETCARE_DB_USER"`
	LegacyPassword string `envconfig:"PETCARE_DB_PASSWORD"`
	LegacyName     string `envconfig:"PETCARE_DB_NAME"`
	LegacySSLMode  string `envconfig:"PETCARE_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"PETCARE_SQLITE_PATH" default:"petcare.db"`

	MaxOpenConns    int           `envconfig:"PETCARE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PETCARE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PETCARE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PETCARE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery logs statements slower than this as warnings; zero disables it.
	SlowQuery time.Duration `envconfig:"PETCARE_DB_SLOW_QUERY" default:"500ms"`
}

// IsSQLite reports whether the sqlite driver was selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"PETCARE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PETCARE_REDIS_ADDR"`
	Password     string        `envconfig:"PETCARE_REDIS_PASSWORD"`
	DB           int           `envconfig:"PETCARE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PETCARE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PETCARE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PETCARE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PETCARE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PETCARE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PETCARE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PETCARE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PETCARE_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// SessionTTL is the lifetime shared by access tokens and their session keys.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PETCARE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PETCARE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PETCARE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PETCARE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PETCARE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"PETCARE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"PETCARE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"PETCARE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"PETCARE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"PETCARE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"PETCARE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PETCARE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PETCARE_AUTO_MIGRATE" default:"false"`
	// Images disables GCS wiring when false; image fields are then ignored.
	Images bool `envconfig:"PETCARE_FEATURE_IMAGES" default:"true"`
}

type ClinicConfig struct {
	Name     string `envconfig:"PETCARE_CLINIC_NAME" default:"PetCare Clinic"`
	Timezone string `envconfig:"PETCARE_CLINIC_TIMEZONE" default:"UTC"`
	// BookingLeadTime is the minimum gap between booking and appointment date.
	BookingLeadTime time.Duration `envconfig:"PETCARE_BOOKING_LEAD_TIME" default:"72h"`
	ReminderHour    int           `envconfig:"PETCARE_REMINDER_HOUR" default:"9"`
	ReminderDays    int           `envconfig:"PETCARE_REMINDER_DAYS_AHEAD" default:"2"`
	FrontendURL     string        `envconfig:"PETCARE_FRONTEND_URL" default:"http://localhost:3000"`
}

// Location resolves the clinic timezone.
func (c ClinicConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvClinicTimezone, name, err)
	}
	return loc, nil
}

type CronConfig struct {
	Interval              time.Duration `envconfig:"PETCARE_CRON_INTERVAL" default:"5m"`
	LockTTL               time.Duration `envconfig:"PETCARE_CRON_LOCK_TTL" default:"10m"`
	JobExecutionRetention time.Duration `envconfig:"PETCARE_JOB_EXECUTION_RETENTION" default:"168h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PETCARE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PETCARE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PETCARE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"PETCARE_GCS_BUCKET_NAME"`
	DownloadURLExpiry time.Duration `envconfig:"PETCARE_GCS_DOWNLOAD_URL_EXPIRY" default:"168h"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"PETCARE_MAX_UPLOAD_MB" default:"10"`
}

// MaxUploadBytes converts MaxUploadMB to bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(m.MaxUploadMB) << 20
}

type PubSubConfig struct {
	// NotificationTopic receives a copy of every dispatched notification event.
	// Publishing is disabled when empty.
	NotificationTopic string        `envconfig:"PETCARE_PUBSUB_NOTIFICATION_TOPIC"`
	PublishTimeout    time.Duration `envconfig:"PETCARE_PUBSUB_PUBLISH_TIMEOUT" default:"10s"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"PETCARE_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"PETCARE_SENDGRID_FROM_EMAIL" default:"no-reply@petcare.local"`
	FromName    string `envconfig:"PETCARE_SENDGRID_FROM_NAME" default:"PetCare Clinic"`
}

// legacyDSN assembles a postgres URL from the discrete host variables.
func (db DBConfig) legacyDSN() (string, error) {
	var missing []string
	for env, value := range map[string]string{EnvDBHost: db.LegacyHost, EnvDBUser: db.LegacyUser, EnvDBName: db.LegacyName} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("set %s or all of %s", EnvDBDSN, strings.Join(missing, ", "))
	}

	user := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		user = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}
	dsn := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   net.JoinHostPort(db.LegacyHost, strconv.Itoa(db.LegacyPort)),
		Path:   db.LegacyName,
	}
	if db.LegacySSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {db.LegacySSLMode}}.Encode()
	}
	return dsn.String(), nil
}
