package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Gateway      GatewayConfig
	PayPal       PayPalConfig
	Square       SquareConfig
	Webhook      WebhookConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
	Reconcile    ReconcileConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Gateway.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env            string   `envconfig:"PAYMENTS_APP_ENV" required:"true"`
	Port           string   `envconfig:"PAYMENTS_APP_PORT" required:"true"`
	LogLevel       string   `envconfig:"PAYMENTS_LOG_LEVEL" default:"info"`
	LogFormat      string   `envconfig:"PAYMENTS_LOG_FORMAT" default:"json"`
	LogWarnStack   bool     `envconfig:"PAYMENTS_LOG_WARN_STACK" default:"false"`
	AllowedOrigins []string `envconfig:"PAYMENTS_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PAYMENTS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN        string `envconfig:"PAYMENTS_DB_DSN"`
	SQLitePath string `envconfig:"PAYMENTS_DB_SQLITE_PATH" default:"payments.db"`

	LegacyHost     string `envconfig:"PAYMENTS_DB_HOST"`
	LegacyPort     int    `envconfig:"PAYMENTS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PAYMENTS_DB_USER"`
	LegacyPassword string `envconfig:"PAYMENTS_DB_PASSWORD"`
	LegacyName     string `envconfig:"PAYMENTS_DB_NAME"`
	LegacySSLMode  string `envconfig:"PAYMENTS_DB_SSLMODE" default:"disable"`

	MaxOpenConns       int           `envconfig:"PAYMENTS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns       int           `envconfig:"PAYMENTS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime    time.Duration `envconfig:"PAYMENTS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime    time.Duration `envconfig:"PAYMENTS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQueryThreshold time.Duration `envconfig:"PAYMENTS_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PAYMENTS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PAYMENTS_REDIS_ADDR"`
	Password     string        `envconfig:"PAYMENTS_REDIS_PASSWORD"`
	DB           int           `envconfig:"PAYMENTS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PAYMENTS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PAYMENTS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PAYMENTS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAYMENTS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PAYMENTS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig covers the operator tokens accepted by the admin API.
type JWTConfig struct {
	Secret            string `envconfig:"PAYMENTS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PAYMENTS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PAYMENTS_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite              bool `envconfig:"PAYMENTS_USE_SQLITE" default:"false"`
	AutoMigrate            bool `envconfig:"PAYMENTS_AUTO_MIGRATE" default:"false"`
	DisplayCreditMessaging bool `envconfig:"PAYMENTS_DISPLAY_CREDIT_MESSAGING" default:"false"`
}

// GatewayConfig selects the processor adapter and bounds every call made to it.
type GatewayConfig struct {
	Processor string        `envconfig:"PAYMENTS_GATEWAY_PROCESSOR" default:"paypal"`
	Timeout   time.Duration `envconfig:"PAYMENTS_GATEWAY_TIMEOUT" default:"30s"`
}

func (g GatewayConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(g.Processor)) {
	case "paypal", "square":
	default:
		return fmt.Errorf("%s must be paypal or square, got %q", EnvGatewayProcessor, g.Processor)
	}
	if g.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvGatewayTimeout)
	}
	return nil
}

type PayPalConfig struct {
	ClientID     string `envconfig:"PAYMENTS_PAYPAL_CLIENT_ID"`
	ClientSecret string `envconfig:"PAYMENTS_PAYPAL_CLIENT_SECRET"`
	Env          string `envconfig:"PAYMENTS_PAYPAL_ENV" default:"sandbox"`
	// PartnerAttributionID is sent as PayPal-Partner-Attribution-Id on every call.
	PartnerAttributionID string `envconfig:"PAYMENTS_PAYPAL_PARTNER_ATTRIBUTION_ID"`
	// PlatformMerchantID is used for the auth assertion when a seller has no merchant id.
	// Required when the processor is paypal.
	PlatformMerchantID string `envconfig:"PAYMENTS_PAYPAL_PLATFORM_MERCHANT_ID"`
	WebhookID          string `envconfig:"PAYMENTS_PAYPAL_WEBHOOK_ID"`
}

// Environment returns the normalized PayPal environment (sandbox/live).
func (p PayPalConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(p.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type SquareConfig struct {
	AccessToken     string `envconfig:"PAYMENTS_SQUARE_ACCESS_TOKEN"`
	Env             string `envconfig:"PAYMENTS_SQUARE_ENV" default:"sandbox"`
	LocationID      string `envconfig:"PAYMENTS_SQUARE_LOCATION_ID"`
	WebhookSecret   string `envconfig:"PAYMENTS_SQUARE_WEBHOOK_SECRET"`
	NotificationURL string `envconfig:"PAYMENTS_SQUARE_NOTIFICATION_URL"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"PAYMENTS_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"PAYMENTS_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"PAYMENTS_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	PaymentEventsTopic    string `envconfig:"PAYMENTS_PUBSUB_PAYMENT_EVENTS_TOPIC" default:"payment-events"`
	AlertsTopic           string `envconfig:"PAYMENTS_PUBSUB_ALERTS_TOPIC" default:"payment-alerts"`
	AnalyticsSubscription string `envconfig:"PAYMENTS_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"payment-events-analytics"`
}

type BigQueryConfig struct {
	Dataset            string        `envconfig:"PAYMENTS_BIGQUERY_DATASET" default:"payments"`
	PaymentEventsTable string        `envconfig:"PAYMENTS_BIGQUERY_PAYMENT_EVENTS_TABLE" default:"payment_state_events"`
	ProcessedTTL       time.Duration `envconfig:"PAYMENTS_ANALYTICS_PROCESSED_TTL" default:"168h"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"PAYMENTS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"PAYMENTS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"PAYMENTS_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionEvery time.Duration `envconfig:"PAYMENTS_OUTBOX_RETENTION_EVERY" default:"1h"`
}

// ReconcileConfig drives the cron job that re-queries the processor for stuck sources.
type ReconcileConfig struct {
	Interval  time.Duration `envconfig:"PAYMENTS_RECONCILE_INTERVAL" default:"5m"`
	Lookback  time.Duration `envconfig:"PAYMENTS_RECONCILE_LOOKBACK" default:"10m"`
	BatchSize int           `envconfig:"PAYMENTS_RECONCILE_BATCH_SIZE" default:"100"`
	LockTTL   time.Duration `envconfig:"PAYMENTS_RECONCILE_LOCK_TTL" default:"4m"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
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
