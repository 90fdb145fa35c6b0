package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const minProductionSecretLen = 32

type Config struct {
	Port                  string        `mapstructure:"PORT"`
	Env                   string        `mapstructure:"ENV"`
	AppVersion            string        `mapstructure:"APP_VERSION"`
	DatabaseURL           string        `mapstructure:"DATABASE_URL"`
	DBMaxConns            int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns            int32         `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir         string        `mapstructure:"MIGRATIONS_DIR"` // empty: embedded schema
	JWTSecret             string        `mapstructure:"JWT_SECRET"`
	JWTIssuer             string        `mapstructure:"JWT_ISSUER"`
	JWTTTL                time.Duration `mapstructure:"JWT_TTL"`
	CORSOrigins           []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRequests     int           `mapstructure:"RATE_LIMIT_REQUESTS"`
	RateLimitWindow       time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`
	AuthRateLimitRequests int           `mapstructure:"AUTH_RATE_LIMIT_REQUESTS"`
	LoginMaxAttempts      int           `mapstructure:"LOGIN_MAX_ATTEMPTS"`
	LoginLockDuration     time.Duration `mapstructure:"LOGIN_LOCK_DURATION"`
	BcryptCost            int           `mapstructure:"BCRYPT_COST"`
	BodyLimit             string        `mapstructure:"BODY_LIMIT"`
	RequestTimeout        time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	TracingEnabled        bool          `mapstructure:"TRACING_ENABLED"`
	OTLPEndpoint          string        `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRate     float64       `mapstructure:"TRACING_SAMPLE_RATE"`
	BootstrapAdminPass    string        `mapstructure:"BOOTSTRAP_ADMIN_PASSWORD"`
}

var serverKeys = []string{
	"PORT", "ENV", "APP_VERSION", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "MIGRATIONS_DIR",
	"JWT_SECRET", "JWT_ISSUER", "JWT_TTL", "CORS_ORIGINS",
	"RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW", "AUTH_RATE_LIMIT_REQUESTS",
	"LOGIN_MAX_ATTEMPTS", "LOGIN_LOCK_DURATION", "BCRYPT_COST", "BODY_LIMIT", "REQUEST_TIMEOUT",
	"TRACING_ENABLED", "OTLP_ENDPOINT", "TRACING_SAMPLE_RATE", "BOOTSTRAP_ADMIN_PASSWORD",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("APP_VERSION", "2.0.0")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 0)
	v.SetDefault("MIGRATIONS_DIR", "")
	v.SetDefault("JWT_ISSUER", "clinrec")
	v.SetDefault("JWT_TTL", "8h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", "15m")
	v.SetDefault("AUTH_RATE_LIMIT_REQUESTS", 5)
	v.SetDefault("LOGIN_MAX_ATTEMPTS", 5)
	v.SetDefault("LOGIN_LOCK_DURATION", "15m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("BODY_LIMIT", "10M")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("TRACING_SAMPLE_RATE", 0.1)

	for _, k := range serverKeys {
		v.BindEnv(k)
	}

	// Missing .env is fine.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside development
// a signing secret is mandatory; in production it must be long enough to
// resist brute force.
func (c *Config) Validate() error {
	if c.JWTSecret == "" && !c.IsDev() {
		return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
	}
	if c.IsProduction() && len(c.JWTSecret) < minProductionSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in production", minProductionSecretLen)
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}
	if c.RateLimitRequests <= 0 || c.AuthRateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if c.LoginMaxAttempts <= 0 {
		return fmt.Errorf("LOGIN_MAX_ATTEMPTS must be positive, got %d", c.LoginMaxAttempts)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.TracingEnabled && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP_ENDPOINT is required when TRACING_ENABLED is true")
	}
	return nil
}

// SigningKey returns the JWT secret. In development an unset secret falls back
// to a fixed key so the server can start without configuration.
func (c *Config) SigningKey() []byte {
	if c.JWTSecret == "" && c.IsDev() {
		return []byte("clinrec-development-secret")
	}
	return []byte(c.JWTSecret)
}
