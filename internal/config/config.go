package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all runtime configuration values. It is built once at
// startup and never mutated afterwards.
type Config struct {
	Env             string        // application environment; "production" turns on Secure cookies and terse errors
	Port            string        // HTTP port to listen on
	DBUser          string        // database username
	DBPass          string        // database password (optional)
	DBHost          string        // database host address
	DBPort          string        // database port number
	DBName          string        // database name
	AccessSecret    string        // HMAC secret for access tokens
	RefreshSecret   string        // HMAC secret for refresh tokens, must differ from AccessSecret
	AccessTTL       time.Duration // access token lifetime
	RefreshTTL      time.Duration // refresh token lifetime, also the cookie max-age
	BcryptCost      int           // bcrypt cost for password hashing
	CORSOrigin      string        // single allowed browser origin
	SentryDSN       string        // optional; empty disables Sentry
	RabbitMQURL     string        // optional; empty disables security event publishing
	SecurityLogPath string        // file the security event consumer appends to
	RunMigrations   bool          // apply the embedded schema on startup
}

// Load reads the configuration and exits the process when it is unusable.
func Load() Config {
	cfg, err := FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	return cfg
}

// FromEnv reads the configuration from environment variables. Every missing
// or malformed variable is reported in the returned error.
func FromEnv() (Config, error) {
	var errs []error
	must := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			errs = append(errs, fmt.Errorf("missing required env var: %s", key))
		}
		return v
	}
	dur := func(key string, def time.Duration) time.Duration {
		v := os.Getenv(key)
		if v == "" {
			return def
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("invalid duration for %s: %q", key, v))
			return def
		}
		return d
	}
	integer := func(key string, def int) int {
		v := os.Getenv(key)
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid int for %s: %q", key, v))
			return def
		}
		return n
	}

	cfg := Config{
		Env:             envStr("APP_ENV", "development"),
		Port:            envStr("APP_PORT", "3550"),
		DBUser:          must("DB_USER"),
		DBPass:          os.Getenv("DB_PASS"),
		DBHost:          must("DB_HOST"),
		DBPort:          envStr("DB_PORT", "3306"),
		DBName:          must("DB_NAME"),
		AccessSecret:    must("JWT_ACCESS_TOKEN_SECRET"),
		RefreshSecret:   must("JWT_REFRESH_TOKEN_SECRET"),
		AccessTTL:       dur("ACCESS_TOKEN_TTL", 3*time.Minute),
		RefreshTTL:      dur("REFRESH_TOKEN_TTL", 10*time.Minute),
		BcryptCost:      integer("BCRYPT_COST", 10),
		CORSOrigin:      envStr("CORS_ALLOWED_ORIGIN", "http://localhost:5173"),
		SentryDSN:       os.Getenv("SENTRY_DSN"),
		RabbitMQURL:     os.Getenv("RABBITMQ_URL"),
		SecurityLogPath: envStr("SECURITY_LOG_PATH", "logs/security.log"),
		RunMigrations:   envBool("RUN_MIGRATIONS", false),
	}
	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	return cfg, errors.Join(errs...)
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.AccessSecret != "" && c.AccessSecret == c.RefreshSecret {
		return errors.New("JWT_ACCESS_TOKEN_SECRET and JWT_REFRESH_TOKEN_SECRET must differ")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST out of range: %d", c.BcryptCost)
	}
	return nil
}

// IsProduction reports whether the service runs with production hardening.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}
