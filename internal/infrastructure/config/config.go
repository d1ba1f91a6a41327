package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

type Config struct {
	Port      string `env:"PORT,       default=8080"`
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	JWT      JWTConfig
	Store    StoreConfig
	Mongo    MongoConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Admin    AdminConfig

	AuditWorkers    int           `env:"AUDIT_WORKERS,    default=4"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=15s"`
}

type JWTConfig struct {
	Secret string        `env:"JWT_SECRET, required"`
	TTL    time.Duration `env:"JWT_TTL,    default=24h"`
}

type StoreConfig struct {
	Driver string `env:"STORE_DRIVER, default=mongo"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017/?replicaSet=rs0"`
	Database string `env:"MONGO_DB,  default=rbac"`
}

type PostgresConfig struct {
	DSN          string `env:"POSTGRES_DSN"`
	MaxOpenConns int    `env:"POSTGRES_MAX_OPEN_CONNS, default=10"`
}

// RedisConfig is optional. Caching is enabled only when Addr is set and
// PermissionCacheTTL is positive.
type RedisConfig struct {
	Addr               string        `env:"REDIS_ADDR"`
	Password           string        `env:"REDIS_PASSWORD"`
	DB                 int           `env:"REDIS_DB,             default=0"`
	PermissionCacheTTL time.Duration `env:"PERMISSION_CACHE_TTL, default=0s"`
}

type AuthConfig struct {
	DefaultRole    string `env:"DEFAULT_ROLE,     default=USER"`
	BcryptCost     int    `env:"BCRYPT_COST,      default=10"`
	LoginRateLimit int    `env:"LOGIN_RATE_LIMIT, default=20"`
}

// AdminConfig describes the optional bootstrap administrator.
type AdminConfig struct {
	Username string `env:"BOOTSTRAP_ADMIN_USERNAME"`
	Email    string `env:"BOOTSTRAP_ADMIN_EMAIL"`
	Password string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
}

// CacheEnabled reports whether the permission cache should be wired.
func (c *Config) CacheEnabled() bool {
	return c.Redis.Addr != "" && c.Redis.PermissionCacheTTL > 0
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field rules the struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case DriverMongo:
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required when STORE_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverMongo, DriverPostgres, c.Store.Driver))
	}

	if len(c.JWT.Secret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.Auth.DefaultRole == "" {
		errs = append(errs, errors.New("DEFAULT_ROLE must not be empty"))
	}
	if c.Admin.Username != "" && (c.Admin.Email == "" || c.Admin.Password == "") {
		errs = append(errs, errors.New("BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD are required with BOOTSTRAP_ADMIN_USERNAME"))
	}

	return errors.Join(errs...)
}
