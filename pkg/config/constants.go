package config

// EnvPrefix scopes every environment variable consumed by the service.
const EnvPrefix = "PROSTORE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "PROSTORE_APP_ENV"
	EnvPort      = "PROSTORE_APP_PORT"
	EnvDBDSN     = "PROSTORE_DB_DSN"
	EnvDBHost    = "PROSTORE_DB_HOST"
	EnvDBUser    = "PROSTORE_DB_USER"
	EnvDBName    = "PROSTORE_DB_NAME"
	EnvRedisURL  = "PROSTORE_REDIS_URL"
	EnvJWTSecret = "PROSTORE_JWT_SECRET"
	EnvJWTIssuer = "PROSTORE_JWT_ISSUER"
	EnvJWTExpMin = "PROSTORE_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
