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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	CORS         CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.JWT.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"HOMESTOCK_APP_ENV" required:"true"`
	Port         string `envconfig:"HOMESTOCK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"HOMESTOCK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HOMESTOCK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"HOMESTOCK_DB_DSN"`
	Driver string `envconfig:"HOMESTOCK_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"HOMESTOCK_DB_HOST"`
	Port     int    `envconfig:"HOMESTOCK_DB_PORT" default:"5432"`
	User     string `envconfig:"HOMESTOCK_DB_USER"`
	Password string `envconfig:"HOMESTOCK_DB_PASSWORD"`
	Name     string `envconfig:"HOMESTOCK_DB_NAME"`
	SSLMode  string `envconfig:"HOMESTOCK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HOMESTOCK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HOMESTOCK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HOMESTOCK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HOMESTOCK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver targets the local sqlite file.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

// RedisConfig is optional: with neither URL nor Address set the subject cache
// is disabled and the auth gate reads straight from the database.
type RedisConfig struct {
	URL          string        `envconfig:"HOMESTOCK_REDIS_URL"`
	Address      string        `envconfig:"HOMESTOCK_REDIS_ADDR"`
	Password     string        `envconfig:"HOMESTOCK_REDIS_PASSWORD"`
	DB           int           `envconfig:"HOMESTOCK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HOMESTOCK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HOMESTOCK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HOMESTOCK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HOMESTOCK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HOMESTOCK_REDIS_WRITE_TIMEOUT" default:"5s"`
	SubjectTTL   time.Duration `envconfig:"HOMESTOCK_REDIS_SUBJECT_TTL" default:"30s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret string        `envconfig:"HOMESTOCK_JWT_SECRET" required:"true"`
	Issuer string        `envconfig:"HOMESTOCK_JWT_ISSUER" default:"homestock"`
	TTL    time.Duration `envconfig:"HOMESTOCK_JWT_TTL" default:"168h"`
}

func (j JWTConfig) validate() error {
	if strings.TrimSpace(j.Secret) == "" {
		return fmt.Errorf("%s must not be blank", EnvJWTSecret)
	}
	if j.TTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvJWTTTL)
	}
	return nil
}

type PasswordConfig struct {
	Algorithm        string `envconfig:"HOMESTOCK_PASSWORD_ALGORITHM" default:"bcrypt"`
	BcryptCost       int    `envconfig:"HOMESTOCK_BCRYPT_COST" default:"12"`
	ArgonMemoryKB    int    `envconfig:"HOMESTOCK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int    `envconfig:"HOMESTOCK_ARGON_TIME" default:"3"`
	ArgonParallelism int    `envconfig:"HOMESTOCK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int    `envconfig:"HOMESTOCK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int    `envconfig:"HOMESTOCK_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"HOMESTOCK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"HOMESTOCK_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"HOMESTOCK_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = defaultSQLiteDSN
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
