package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, StoragePostgres, cfg.StorageDriver)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 5*time.Minute, cfg.Dashboard.CacheTTL)
	assert.Equal(t, "family_fund.events", cfg.Events.Exchange)
	assert.True(t, cfg.Dues.TakafulDefault.IsZero())
	assert.Empty(t, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "dev_secret", cfg.Exports.SigningSecret)
	assert.Equal(t, 24*time.Hour, cfg.Exports.TTL)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("STORAGE_DRIVER", " Memory ")
	v.Set("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	v.Set("DASHBOARD_CACHE_TTL", "not-a-duration")
	v.Set("DUES_TAKAFUL_DEFAULT", "250.50")
	v.Set("DUES_PLUS_DEFAULT", "-10")
	v.Set("JWT_EXPIRATION", "2h")

	cfg := fromViper(v)

	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	require.Len(t, cfg.CORS.AllowedOrigins, 2)
	assert.Equal(t, "https://b.example", cfg.CORS.AllowedOrigins[1])
	assert.Equal(t, 5*time.Minute, cfg.Dashboard.CacheTTL)
	assert.True(t, cfg.Dues.TakafulDefault.Equal(decimal.RequireFromString("250.50")))
	assert.True(t, cfg.Dues.PlusDefault.IsZero())
	assert.Equal(t, 2*time.Hour, cfg.JWT.Expiration)
}

func TestUnknownStorageDriverFallsBackToPostgres(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("STORAGE_DRIVER", "sqlite")

	assert.Equal(t, StoragePostgres, fromViper(v).StorageDriver)
}
