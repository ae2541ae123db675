package config

const EnvPrefix = "HOMESTOCK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSQLiteDSN = "homestock.db"
)

const (
	EnvAppEnv       = "HOMESTOCK_APP_ENV"
	EnvPort         = "HOMESTOCK_APP_PORT"
	EnvLogLevel     = "HOMESTOCK_LOG_LEVEL"
	EnvDBDSN        = "HOMESTOCK_DB_DSN"
	EnvDBHost       = "HOMESTOCK_DB_HOST"
	EnvDBPort       = "HOMESTOCK_DB_PORT"
	EnvDBUser       = "HOMESTOCK_DB_USER"
	EnvDBPassword   = "HOMESTOCK_DB_PASSWORD"
	EnvDBName       = "HOMESTOCK_DB_NAME"
	EnvRedisURL     = "HOMESTOCK_REDIS_URL"
	EnvJWTSecret    = "HOMESTOCK_JWT_SECRET"
	EnvJWTIssuer    = "HOMESTOCK_JWT_ISSUER"
	EnvJWTTTL       = "HOMESTOCK_JWT_TTL"
	EnvPasswordAlgo = "HOMESTOCK_PASSWORD_ALGORITHM"
	EnvBcryptCost   = "HOMESTOCK_BCRYPT_COST"
	EnvUseSQLite    = "HOMESTOCK_USE_SQLITE"
	EnvCORSOrigins  = "HOMESTOCK_CORS_ALLOWED_ORIGINS"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
