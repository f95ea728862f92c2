package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ADMIN_IDS", " 42, 100500 ,")
	t.Setenv("DB_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"42", "100500"}, cfg.AdminIDs)
	assert.True(t, cfg.IsAdminID("42"))
	assert.False(t, cfg.IsAdminID("7"))
	assert.Equal(t, int64(11000), cfg.BuyWorthBP)
	assert.Equal(t, 10*time.Minute, cfg.JailDuration)
	assert.Equal(t, 24*time.Hour, cfg.RedPacketTTL)
	assert.Contains(t, cfg.DatabaseDSN(), "economy:secret@postgres:5432")

	wheat, ok := cfg.Catalog.Crop("wheat")
	require.True(t, ok)
	assert.Equal(t, 5*time.Minute, wheat.GrowTime)
	assert.Equal(t, int64(120), wheat.MinYield)
}

func TestDatabaseURLOverridesParts(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://u:p@db/x", DBHost: "ignored"}
	assert.Equal(t, "postgres://u:p@db/x", cfg.DatabaseDSN())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	bad := *cfg
	bad.OwnerShareBP = 12000
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.DBMinConns = bad.DBMaxConns + 1
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Catalog = nil
	assert.Error(t, bad.Validate())
}

func TestCatalogLookups(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, int64(0), c.LandPrice(1))
	assert.Equal(t, int64(10000), c.LandPrice(5))
	assert.Equal(t, int64(10000), c.LandPrice(7))

	bg, ok := c.Bodyguard("legend")
	require.True(t, ok)
	assert.Equal(t, 6*time.Hour, bg.Duration)

	d, ok := c.VIPDuration("week", 0)
	require.True(t, ok)
	assert.Equal(t, 168*time.Hour, d)

	d, ok = c.VIPDuration(VIPCardHour, 3)
	require.True(t, ok)
	assert.Equal(t, 3*time.Hour, d)

	_, ok = c.VIPDuration(VIPCardHour, 0)
	assert.False(t, ok)
	_, ok = c.VIPDuration("year", 0)
	assert.False(t, ok)
}

func TestCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	raw := []byte(`
crops:
  - {name: rice, seed_price: 10, grow_time: 1m, min_yield: 5, max_yield: 5}
land: {max_plots: 2, prices: [1], default_price: 3}
`)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	assert.Equal(t, int64(3), c.LandPrice(2))

	c.Crops[0].MaxYield = 1
	assert.Error(t, c.Validate())
}
