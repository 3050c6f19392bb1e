package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Pricing       PricingConfig
	RechargeCodes RechargeCodesConfig
	Stripe        StripeConfig
	Idempotency   IdempotencyConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ZOUHAL_APP_ENV" required:"true"`
	Port         string `envconfig:"ZOUHAL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ZOUHAL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ZOUHAL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ZOUHAL_DB_DSN"`
	Driver string `envconfig:"ZOUHAL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ZOUHAL_DB_HOST"`
	LegacyPort     int    `envconfig:"ZOUHAL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ZOUHAL_DB_USER"`
	LegacyPassword string `envconfig:"ZOUHAL_DB_PASSWORD"`
	LegacyName     string `envconfig:"ZOUHAL_DB_NAME"`
	LegacySSLMode  string `envconfig:"ZOUHAL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ZOUHAL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ZOUHAL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ZOUHAL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ZOUHAL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ZOUHAL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ZOUHAL_REDIS_ADDR"`
	Password     string        `envconfig:"ZOUHAL_REDIS_PASSWORD"`
	DB           int           `envconfig:"ZOUHAL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ZOUHAL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ZOUHAL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ZOUHAL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ZOUHAL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ZOUHAL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ZOUHAL_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ZOUHAL_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ZOUHAL_JWT_EXPIRATION_MINUTES" required:"true"`
}

// AccessTokenTTL returns the access token lifetime configured in minutes.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// PricingConfig holds the flat fees applied when an order total is
// computed. All amounts are integer cents.
type PricingConfig struct {
	CashDeliveryFeeCents int64 `envconfig:"ZOUHAL_PRICING_CASH_DELIVERY_FEE_CENTS" default:"200"`
	TaxCents             int64 `envconfig:"ZOUHAL_PRICING_TAX_CENTS" default:"0"`
	ShippingCents        int64 `envconfig:"ZOUHAL_PRICING_SHIPPING_CENTS" default:"0"`
}

type RechargeCodesConfig struct {
	DefaultExpiry time.Duration `envconfig:"ZOUHAL_RECHARGE_CODE_DEFAULT_EXPIRY" default:"720h"`
	MaxBatchSize  int           `envconfig:"ZOUHAL_RECHARGE_CODE_MAX_BATCH" default:"100"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"ZOUHAL_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"ZOUHAL_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"ZOUHAL_STRIPE_ENV" default:"test"`
	SuccessURL    string `envconfig:"ZOUHAL_STRIPE_SUCCESS_URL" default:"http://localhost:3000/orders"`
	CancelURL     string `envconfig:"ZOUHAL_STRIPE_CANCEL_URL" default:"http://localhost:3000/cart"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type IdempotencyConfig struct {
	RecordTTL time.Duration `envconfig:"ZOUHAL_IDEMPOTENCY_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ZOUHAL_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ZOUHAL_AUTO_MIGRATE" default:"false"`
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
