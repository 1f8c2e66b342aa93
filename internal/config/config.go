package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	IDP       IDPConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit for managed-Postgres posture.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

// IDPConfig describes the external identity provider that issues the
// bearer tokens this gateway verifies.
type IDPConfig struct {
	JWKSURL  string
	Issuer   string
	Audience string

	// KeyCacheTTL bounds how long fetched signing keys are trusted
	// before a refresh is attempted.
	KeyCacheTTL time.Duration

	// FetchTimeout bounds a single outbound key-set fetch.
	FetchTimeout time.Duration
}

// RateLimitConfig carries the two limiting tiers. The sensitive tier is
// applied to admin-bearing route prefixes; everything else gets the
// general tier.
type RateLimitConfig struct {
	GeneralLimit    int
	GeneralWindow   time.Duration
	SensitiveLimit  int
	SensitiveWindow time.Duration

	// Backend selects the counter store: "memory" or "redis".
	Backend string
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.IDP.JWKSURL = strings.TrimSpace(os.Getenv("IDP_JWKS_URL"))
	c.IDP.Issuer = strings.TrimSpace(os.Getenv("IDP_ISSUER"))
	c.IDP.Audience = strings.TrimSpace(os.Getenv("IDP_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate().
	c.IDP.KeyCacheTTL = optDuration("IDP_KEY_CACHE_TTL")
	c.IDP.FetchTimeout = optDuration("IDP_FETCH_TIMEOUT")

	c.RateLimit.GeneralLimit = optInt("RATE_LIMIT_GENERAL", 0)
	c.RateLimit.GeneralWindow = optDuration("RATE_LIMIT_GENERAL_WINDOW")
	c.RateLimit.SensitiveLimit = optInt("RATE_LIMIT_SENSITIVE", 0)
	c.RateLimit.SensitiveWindow = optDuration("RATE_LIMIT_SENSITIVE_WINDOW")
	c.RateLimit.Backend = strings.TrimSpace(os.Getenv("RATE_LIMIT_BACKEND"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.IDP.JWKSURL == "" {
		errs = append(errs, errors.New("IDP_JWKS_URL is required"))
	} else if u, err := url.Parse(c.IDP.JWKSURL); err != nil {
		errs = append(errs, fmt.Errorf("IDP_JWKS_URL is not a valid URL: %v", err))
	} else if c.IsProduction() && u.Scheme != "https" {
		errs = append(errs, errors.New("IDP_JWKS_URL must be https in production"))
	}
	if c.IDP.Issuer == "" {
		errs = append(errs, errors.New("IDP_ISSUER is required"))
	}
	if c.IDP.Audience == "" {
		errs = append(errs, errors.New("IDP_AUDIENCE is required"))
	}
	if c.IDP.KeyCacheTTL <= 0 {
		c.IDP.KeyCacheTTL = time.Hour
	}
	if c.IDP.FetchTimeout <= 0 {
		c.IDP.FetchTimeout = 5 * time.Second
	}

	if c.RateLimit.GeneralLimit <= 0 {
		c.RateLimit.GeneralLimit = 60
	}
	if c.RateLimit.GeneralWindow <= 0 {
		c.RateLimit.GeneralWindow = time.Minute
	}
	if c.RateLimit.SensitiveLimit <= 0 {
		c.RateLimit.SensitiveLimit = 10
	}
	if c.RateLimit.SensitiveWindow <= 0 {
		c.RateLimit.SensitiveWindow = time.Minute
	}
	if c.RateLimit.SensitiveLimit > c.RateLimit.GeneralLimit {
		errs = append(errs, errors.New("RATE_LIMIT_SENSITIVE must not exceed RATE_LIMIT_GENERAL"))
	}
	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = "memory"
	}
	if !isValidRateLimitBackend(c.RateLimit.Backend) {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND must be one of memory, redis, got %q", c.RateLimit.Backend))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func optDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func isValidRateLimitBackend(v string) bool {
	switch v {
	case "memory", "redis":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
