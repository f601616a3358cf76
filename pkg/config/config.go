package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Env           string
	Port          int
	APIPrefix     string
	StorageDriver string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Dashboard DashboardConfig
	Events    EventsConfig
	Dues      DuesConfig
	Exports   ExportsConfig
	Seed      SeedConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DashboardConfig governs caching of the aggregated ledger dashboard.
type DashboardConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// EventsConfig configures case event delivery. An empty AMQPURL logs events instead.
type EventsConfig struct {
	AMQPURL  string
	Exchange string
	Workers  int
	Retries  int
}

// DuesConfig drives the monthly pending-dues generator.
type DuesConfig struct {
	Enabled        bool
	Interval       time.Duration
	TakafulDefault decimal.Decimal
	PlusDefault    decimal.Decimal
}

// ExportsConfig configures rendered report files served through signed download links.
type ExportsConfig struct {
	Dir           string
	SigningSecret string
	TTL           time.Duration
	Workers       int
}

// SeedConfig holds credentials for the bootstrap superadmin.
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_DRIVER")))
	if cfg.StorageDriver != StorageMemory {
		cfg.StorageDriver = StoragePostgres
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Dashboard = DashboardConfig{
		CacheEnabled: v.GetBool("ENABLE_DASHBOARD_CACHE"),
		CacheTTL:     parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Events = EventsConfig{
		AMQPURL:  strings.TrimSpace(v.GetString("AMQP_URL")),
		Exchange: v.GetString("EVENTS_EXCHANGE"),
		Workers:  v.GetInt("EVENTS_WORKERS"),
		Retries:  v.GetInt("EVENTS_RETRIES"),
	}

	cfg.Dues = DuesConfig{
		Enabled:        v.GetBool("DUES_ENABLED"),
		Interval:       parseDuration(v.GetString("DUES_INTERVAL"), 6*time.Hour),
		TakafulDefault: parseDecimal(v.GetString("DUES_TAKAFUL_DEFAULT")),
		PlusDefault:    parseDecimal(v.GetString("DUES_PLUS_DEFAULT")),
	}

	cfg.Exports = ExportsConfig{
		Dir:           v.GetString("EXPORTS_DIR"),
		SigningSecret: v.GetString("EXPORT_SIGNING_SECRET"),
		TTL:           parseDuration(v.GetString("EXPORT_TTL"), 24*time.Hour),
		Workers:       v.GetInt("EXPORT_WORKERS"),
	}
	if cfg.Exports.SigningSecret == "" {
		cfg.Exports.SigningSecret = cfg.JWT.Secret
	}

	cfg.Seed = SeedConfig{
		AdminEmail:    v.GetString("SEED_ADMIN_EMAIL"),
		AdminPassword: v.GetString("SEED_ADMIN_PASSWORD"),
		AdminName:     v.GetString("SEED_ADMIN_NAME"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("STORAGE_DRIVER", StoragePostgres)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "family_fund")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "family-fund-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_DASHBOARD_CACHE", false)
	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("AMQP_URL", "")
	v.SetDefault("EVENTS_EXCHANGE", "family_fund.events")
	v.SetDefault("EVENTS_WORKERS", 2)
	v.SetDefault("EVENTS_RETRIES", 3)

	v.SetDefault("DUES_ENABLED", false)
	v.SetDefault("DUES_INTERVAL", "6h")
	v.SetDefault("DUES_TAKAFUL_DEFAULT", "0")
	v.SetDefault("DUES_PLUS_DEFAULT", "0")

	v.SetDefault("EXPORTS_DIR", "./exports")
	v.SetDefault("EXPORT_SIGNING_SECRET", "")
	v.SetDefault("EXPORT_TTL", "24h")
	v.SetDefault("EXPORT_WORKERS", 1)

	v.SetDefault("SEED_ADMIN_EMAIL", "admin@family.local")
	v.SetDefault("SEED_ADMIN_PASSWORD", "")
	v.SetDefault("SEED_ADMIN_NAME", "Fund Administrator")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func parseDecimal(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
