package config

// EnvPrefix is the envconfig prefix shared by every setting.
const EnvPrefix = "ZOUHAL"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "ZOUHAL_APP_ENV"
	EnvPort     = "ZOUHAL_APP_PORT"
	EnvLogLevel = "ZOUHAL_LOG_LEVEL"

	EnvDBDSN  = "ZOUHAL_DB_DSN"
	EnvDBHost = "ZOUHAL_DB_HOST"
	EnvDBUser = "ZOUHAL_DB_USER"
	EnvDBName = "ZOUHAL_DB_NAME"

	EnvRedisURL = "ZOUHAL_REDIS_URL"

	EnvJWTSecret  = "ZOUHAL_JWT_SECRET"
	EnvJWTIssuer  = "ZOUHAL_JWT_ISSUER"
	EnvJWTExpMins = "ZOUHAL_JWT_EXPIRATION_MINUTES"

	EnvStripeAPIKey        = "ZOUHAL_STRIPE_API_KEY"
	EnvStripeWebhookSecret = "ZOUHAL_STRIPE_WEBHOOK_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
