package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Server     ServerConfig
	Tenancy    TenancyConfig
	Lifecycle  LifecycleConfig
	SelfHosted bool
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings for cross-instance
// resolver cache invalidation.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// JWTConfig holds operator-token settings for the admin surface.
type JWTConfig struct {
	Secret    string //nolint:gosec // G117: JWT signing secret config
	AccessTTL time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// TenancyConfig holds domain routing settings.
type TenancyConfig struct {
	// PlatformDomain is the base domain whose subdomain labels resolve
	// tenants, e.g. "gurukul.app" routes "alpha.gurukul.app" to the
	// tenant whose schema name is "alpha".
	PlatformDomain string
	// ReservedSubdomains never resolve to a tenant; they route to the
	// platform's own reserved namespace.
	ReservedSubdomains []string
	CacheTTL           time.Duration
	CacheSize          int
}

// LifecycleConfig holds administrative lifecycle settings.
type LifecycleConfig struct {
	// DeleteGrace is how long a deleted tenant's schema is retained
	// before the reaper physically drops it.
	DeleteGrace time.Duration
	// ReaperInterval is the cadence of the purge sweep over expired
	// tombstones, independent of the reconcile cadence.
	ReaperInterval    time.Duration
	ReconcileInterval time.Duration
	MigrationWorkers  int
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("GURUKUL_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("GURUKUL_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("GURUKUL_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	accessTTL, err := getEnvDuration("GURUKUL_JWT_ACCESS_TTL", 1*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("GURUKUL_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("GURUKUL_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cacheTTL, err := getEnvDuration("GURUKUL_RESOLVER_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cacheSize, err := getEnvInt("GURUKUL_RESOLVER_CACHE_SIZE", 4096)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	deleteGrace, err := getEnvDuration("GURUKUL_DELETE_GRACE", 72*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	reaperInterval, err := getEnvDuration("GURUKUL_REAPER_INTERVAL", 1*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	reconcileInterval, err := getEnvDuration("GURUKUL_RECONCILE_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	migrationWorkers, err := getEnvInt("GURUKUL_MIGRATION_WORKERS", 4)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	selfHosted, err := getEnvBool("GURUKUL_SELF_HOSTED", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("GURUKUL_CORS_ORIGINS", []string{"http://localhost:5173"})
	reserved := getEnvList("GURUKUL_RESERVED_SUBDOMAINS", []string{"www", "api", "admin", "app", "portal", "static", "media"})

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("GURUKUL_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("GURUKUL_DB_USER", "gurukul"),
			Password: getEnv("GURUKUL_DB_PASSWORD", ""),
			DBName:   getEnv("GURUKUL_DB_NAME", "gurukul_dev"),
			SSLMode:  getEnv("GURUKUL_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("GURUKUL_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("GURUKUL_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:    getEnv("GURUKUL_JWT_SECRET", ""),
			AccessTTL: accessTTL,
		},
		Server: ServerConfig{
			Addr:         getEnv("GURUKUL_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  corsOrigins,
		},
		Tenancy: TenancyConfig{
			PlatformDomain:     getEnv("GURUKUL_PLATFORM_DOMAIN", "gurukul.localhost"),
			ReservedSubdomains: reserved,
			CacheTTL:           cacheTTL,
			CacheSize:          cacheSize,
		},
		Lifecycle: LifecycleConfig{
			DeleteGrace:       deleteGrace,
			ReaperInterval:    reaperInterval,
			ReconcileInterval: reconcileInterval,
			MigrationWorkers:  migrationWorkers,
		},
		SelfHosted: selfHosted,
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("GURUKUL_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("GURUKUL_JWT_SECRET must be at least 32 characters")
	}

	if c.Tenancy.PlatformDomain == "" {
		return errors.New("GURUKUL_PLATFORM_DOMAIN is required")
	}

	// DB SSL mode warning for non-self-hosted deployments.
	if c.Database.SSLMode == "disable" && !c.SelfHosted {
		log.Warn().Msg("GURUKUL_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("GURUKUL_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("GURUKUL_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("GURUKUL_JWT_ACCESS_TTL must be positive, got %s", c.JWT.AccessTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("GURUKUL_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("GURUKUL_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Tenancy.CacheTTL <= 0 {
		return fmt.Errorf("GURUKUL_RESOLVER_CACHE_TTL must be positive, got %s", c.Tenancy.CacheTTL)
	}
	if c.Tenancy.CacheSize < 1 {
		return fmt.Errorf("GURUKUL_RESOLVER_CACHE_SIZE must be >= 1, got %d", c.Tenancy.CacheSize)
	}
	if c.Lifecycle.DeleteGrace < 0 {
		return fmt.Errorf("GURUKUL_DELETE_GRACE must be >= 0, got %s", c.Lifecycle.DeleteGrace)
	}
	if c.Lifecycle.ReaperInterval <= 0 {
		return fmt.Errorf("GURUKUL_REAPER_INTERVAL must be positive, got %s", c.Lifecycle.ReaperInterval)
	}
	if c.Lifecycle.ReconcileInterval <= 0 {
		return fmt.Errorf("GURUKUL_RECONCILE_INTERVAL must be positive, got %s", c.Lifecycle.ReconcileInterval)
	}
	if c.Lifecycle.MigrationWorkers < 1 {
		return fmt.Errorf("GURUKUL_MIGRATION_WORKERS must be >= 1, got %d", c.Lifecycle.MigrationWorkers)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
