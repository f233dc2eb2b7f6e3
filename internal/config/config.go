// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
	// Embedded zone database so TIMELINE_TIMEZONE resolves in slim containers.
	_ "time/tzdata"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL used for links and redirects.
	BaseURL string

	// CORSOrigins may read the JSON API cross-origin. Defaults to BaseURL.
	CORSOrigins []string

	// TrustedProxies are the CIDR ranges whose forwarding headers are honoured.
	TrustedProxies []string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// Database holds MariaDB connection settings.
	Database DatabaseConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// Auth holds identity-token settings.
	Auth AuthConfig

	// RentalAPI holds settings for the upstream rental REST backend.
	RentalAPI RentalAPIConfig

	// Timeline holds the calendar timeline geometry and paging settings.
	Timeline TimelineConfig
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields
// (Host, User, Password, Name) are read from separate env vars so
// container orchestrators can manage each independently.
// If DATABASE_URL is set, it takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	// If no port is specified, 3306 is appended automatically.
	Host string

	// User is the MariaDB username (default: "dashboard").
	User string

	// Password is the MariaDB password (default: "dashboard").
	Password string

	// Name is the database name (default: "dashboard").
	Name string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	// MaxOpenConns is the maximum number of open connections in the pool.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int

	// ConnMaxLifetime is how long a connection can be reused.
	ConnMaxLifetime time.Duration

	// MigrationsPath is the directory holding *.up.sql / *.down.sql files.
	MigrationsPath string
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// Host/User/Password/Name fields using the driver's Config.FormatDSN()
// to safely handle special characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	// Migrations contain more than one statement per file.
	cfg.MultiStatements = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
// Allows users to set DB_HOST=mydb (gets :3306) or DB_HOST=mydb:3307 (as-is).
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// AuthConfig holds the shared secret used to verify access tokens issued by
// the rental backend. Sessions are owned by the backend, not this service.
type AuthConfig struct {
	// JWTSecret is the HMAC key the backend signs access tokens with.
	JWTSecret string

	// CookieName is the cookie carrying the access token for browser requests.
	CookieName string

	// LoginURL is where unauthenticated browsers are redirected.
	LoginURL string
}

// RentalAPIConfig holds settings for the upstream REST backend.
type RentalAPIConfig struct {
	// BaseURL is the API root, e.g. "https://api.example.com/api/v1".
	BaseURL string

	// Token is a service token sent when the request carries no user token.
	Token string

	// Timeout bounds every upstream request.
	Timeout time.Duration

	// CacheTTL is how long list pages stay in Redis. Zero disables caching.
	CacheTTL time.Duration

	// ImageOrigins are hosts serving vehicle and product photos, allowed by the CSP.
	ImageOrigins []string
}

// TimelineConfig holds the geometry and paging constants of the calendar timeline.
type TimelineConfig struct {
	// ColumnWidth is the pixel width of one day column.
	ColumnWidth int

	// RowHeight is the pixel height of one entity row.
	RowHeight int

	// MinRows is the minimum number of rows shown; short pages are padded.
	MinRows int

	// PageSize is the number of entities requested per page.
	PageSize int

	// Timezone is the IANA zone all dates are normalized to.
	Timezone string

	// ViewTTL is how long an idle timeline view is kept before teardown.
	ViewTTL time.Duration
}

// Location resolves the configured timezone, falling back to UTC.
func (t TimelineConfig) Location() *time.Location {
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// defaultTrustedProxies covers a reverse proxy on the same host or on a
// private container network.
var defaultTrustedProxies = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"::1/128",
	"fd00::/8",
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first if present; real
// environment variables always win. Returns an error if required variables
// are missing.
func Load() (*Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		BaseURL:  getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		CORSOrigins:    getEnvList("CORS_ALLOWED_ORIGINS"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "dashboard"),
			Password:        getEnv("DB_PASSWORD", "dashboard"),
			Name:            getEnv("DB_NAME", "dashboard"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			MigrationsPath:  getEnv("DB_MIGRATIONS_PATH", "db/migrations"),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			CookieName: getEnv("AUTH_COOKIE_NAME", "access_token"),
			LoginURL:   getEnv("AUTH_LOGIN_URL", "/login"),
		},

		RentalAPI: RentalAPIConfig{
			BaseURL:      strings.TrimRight(getEnv("RENTAL_API_URL", "http://localhost:3000/api/v1"), "/"),
			Token:        getEnv("RENTAL_API_TOKEN", ""),
			Timeout:      getEnvDuration("RENTAL_API_TIMEOUT", 15*time.Second),
			CacheTTL:     getEnvDuration("RENTAL_API_CACHE_TTL", 30*time.Second),
			ImageOrigins: getEnvList("RENTAL_IMAGE_ORIGINS"),
		},

		Timeline: TimelineConfig{
			ColumnWidth: getEnvInt("TIMELINE_COLUMN_WIDTH", 64),
			RowHeight:   getEnvInt("TIMELINE_ROW_HEIGHT", 40),
			MinRows:     getEnvInt("TIMELINE_MIN_ROWS", 5),
			PageSize:    getEnvInt("TIMELINE_PAGE_SIZE", 10),
			Timezone:    getEnv("TIMELINE_TIMEZONE", "Asia/Jakarta"),
			ViewTTL:     getEnvDuration("TIMELINE_VIEW_TTL", 30*time.Minute),
		},
	}

	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{cfg.BaseURL}
	}
	if len(cfg.TrustedProxies) == 0 {
		cfg.TrustedProxies = defaultTrustedProxies
	}

	if cfg.Timeline.ColumnWidth <= 0 || cfg.Timeline.RowHeight <= 0 {
		return nil, fmt.Errorf("TIMELINE_COLUMN_WIDTH and TIMELINE_ROW_HEIGHT must be positive")
	}
	if cfg.Timeline.PageSize <= 0 {
		return nil, fmt.Errorf("TIMELINE_PAGE_SIZE must be positive")
	}
	if _, err := time.LoadLocation(cfg.Timeline.Timezone); err != nil {
		return nil, fmt.Errorf("TIMELINE_TIMEZONE %q: %w", cfg.Timeline.Timezone, err)
	}

	// Validate required fields in production. Case-insensitive check catches
	// common variants like "Production", "prod", etc.
	envLower := strings.ToLower(cfg.Env)
	if envLower == "production" || envLower == "prod" {
		if cfg.Auth.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		if _, ok := os.LookupEnv("RENTAL_API_URL"); !ok {
			return nil, fmt.Errorf("RENTAL_API_URL is required in production")
		}
	}

	// Provide a dev-only default secret so local dev works without .env.
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "dev-secret-key-do-not-use-in-production!!"
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "720h") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvList reads a comma-separated env var, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
