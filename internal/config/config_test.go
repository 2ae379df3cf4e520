package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 10, cfg.LowStockThreshold)
	assert.True(t, cfg.SaleRequireActive)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, 30*time.Second, cfg.DashboardCacheTTL())
	assert.Equal(t, time.Hour, cfg.LowStockScanInterval())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("LOW_STOCK_THRESHOLD", "3")
	t.Setenv("SALE_REQUIRE_ACTIVE", "false")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, 3, cfg.LowStockThreshold)
	assert.False(t, cfg.SaleRequireActive)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.True(t, cfg.IsProduction())
}
