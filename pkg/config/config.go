package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "AREPERA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv     = "AREPERA_APP_ENV"
	EnvPort       = "AREPERA_APP_PORT"
	EnvDBDSN      = "AREPERA_DB_DSN"
	EnvDBHost     = "AREPERA_DB_HOST"
	EnvDBUser     = "AREPERA_DB_USER"
	EnvDBName     = "AREPERA_DB_NAME"
	EnvRedisURL   = "AREPERA_REDIS_URL"
	EnvJWTSecret  = "AREPERA_JWT_SECRET"
	EnvJWTIssuer  = "AREPERA_JWT_ISSUER"
	EnvJWTExpMins = "AREPERA_JWT_EXPIRATION_MINUTES"
	EnvTaxRate    = "AREPERA_CHECKOUT_TAX_RATE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Storage       StorageConfig
	Checkout      CheckoutConfig
	Cron          CronConfig
	Outbox        OutboxConfig
	Seed          SeedConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"AREPERA_APP_ENV" required:"true"`
	Port         string `envconfig:"AREPERA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AREPERA_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"AREPERA_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"AREPERA_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"AREPERA_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"AREPERA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"AREPERA_DB_DSN"`
	Driver string `envconfig:"AREPERA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AREPERA_DB_HOST"`
	LegacyPort     int    `envconfig:"AREPERA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AREPERA_DB_USER"`
	LegacyPassword string `envconfig:"AREPERA_DB_PASSWORD"`
	LegacyName     string `envconfig:"AREPERA_DB_NAME"`
	LegacySSLMode  string `envconfig:"AREPERA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AREPERA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AREPERA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AREPERA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AREPERA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AREPERA_REDIS_URL"`
	Address      string        `envconfig:"AREPERA_REDIS_ADDR"`
	Password     string        `envconfig:"AREPERA_REDIS_PASSWORD"`
	DB           int           `envconfig:"AREPERA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AREPERA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AREPERA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AREPERA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AREPERA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AREPERA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"AREPERA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"AREPERA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"AREPERA_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	BcryptCost int `envconfig:"AREPERA_BCRYPT_COST" default:"10"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"AREPERA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"AREPERA_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"AREPERA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"AREPERA_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"AREPERA_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"AREPERA_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"AREPERA_AUTO_MIGRATE" default:"false"`
}

// StorageConfig controls where uploaded product images land.
type StorageConfig struct {
	UploadDir     string `envconfig:"AREPERA_UPLOAD_DIR" default:"./public/uploads"`
	PublicPrefix  string `envconfig:"AREPERA_UPLOAD_PUBLIC_PREFIX" default:"/uploads"`
	MaxUploadSize int64  `envconfig:"AREPERA_UPLOAD_MAX_BYTES" default:"5242880"`
}

type CheckoutConfig struct {
	TaxRate        string        `envconfig:"AREPERA_CHECKOUT_TAX_RATE" default:"0.19"`
	Currency       string        `envconfig:"AREPERA_CHECKOUT_CURRENCY" default:"usd"`
	GatewayDelay   time.Duration `envconfig:"AREPERA_CHECKOUT_GATEWAY_DELAY" default:"1500ms"`
	PendingTimeout time.Duration `envconfig:"AREPERA_CHECKOUT_PENDING_TIMEOUT" default:"30m"`
}

func (c CheckoutConfig) validate() error {
	if strings.TrimSpace(c.TaxRate) == "" {
		return fmt.Errorf("%s is required", EnvTaxRate)
	}
	if c.GatewayDelay < 0 {
		return fmt.Errorf("gateway delay must not be negative")
	}
	return nil
}

type CronConfig struct {
	Interval    time.Duration `envconfig:"AREPERA_CRON_INTERVAL" default:"5m"`
	LockTTL     time.Duration `envconfig:"AREPERA_CRON_LOCK_TTL" default:"4m"`
	MetricsAddr string        `envconfig:"AREPERA_CRON_METRICS_ADDR" default:":9091"`
}

// OutboxConfig tunes the relay that copies outbox rows to a redis stream.
type OutboxConfig struct {
	BatchSize      int    `envconfig:"AREPERA_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"AREPERA_OUTBOX_POLL_INTERVAL_MS" default:"500"`
	Stream         string `envconfig:"AREPERA_OUTBOX_STREAM" default:"events"`
	StreamMaxLen   int64  `envconfig:"AREPERA_OUTBOX_STREAM_MAX_LEN" default:"10000"`
	RetentionDays  int    `envconfig:"AREPERA_OUTBOX_RETENTION_DAYS" default:"30"`
}

type SeedConfig struct {
	AdminEmail    string `envconfig:"AREPERA_SEED_ADMIN_EMAIL" default:"admin@arepera.local"`
	AdminPassword string `envconfig:"AREPERA_SEED_ADMIN_PASSWORD"`
	AdminName     string `envconfig:"AREPERA_SEED_ADMIN_NAME" default:"Administrador"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
