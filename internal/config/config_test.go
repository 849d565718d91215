package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "census", cfg.Geocoder.Active)
	assert.Equal(t, []string{"census", "google"}, cfg.Geocoder.RankOrder)
	assert.Equal(t, 4, cfg.Geocoder.Threads)
	assert.Equal(t, 1000, cfg.Geocache.BufferSize)
	assert.InDelta(t, 50.0, cfg.District.ProximityThresholdMeters, 0.001)
	assert.Equal(t, "single", cfg.District.Strategy)
	assert.Equal(t, 9, cfg.District.H3Resolution)
	assert.InDelta(t, 50.0, cfg.Census.RateLimit, 0.001)
	assert.False(t, cfg.WFS.Enabled)
	assert.False(t, cfg.USPS.Enabled)
	assert.Equal(t, 3, cfg.Batch.PoolSize)
	assert.Equal(t, 2024, cfg.Tigerload.Year)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
  format: console
server:
  port: 9090
batch:
  pool_size: 10
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Batch.PoolSize)
	// Defaults still apply for unset values
	assert.Equal(t, "census", cfg.Geocoder.Active)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("GEODISTRICT_STORE_DRIVER", "postgres")
	t.Setenv("GEODISTRICT_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("GEODISTRICT_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with every required field populated for
// validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = "test.db"
	cfg.Geocoder.RankOrder = []string{"census"}
	cfg.District.Strategy = "single"
	cfg.District.ProximityThresholdMeters = 50.0
	cfg.District.H3Resolution = 9
	cfg.Batch.PoolSize = 3
	return cfg
}

func TestValidateServe_ValidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 9090

	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateServe_PostgresRequiresURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateBatch_PoolSize(t *testing.T) {
	cfg := validDefaults()
	cfg.Batch.PoolSize = 0

	err := cfg.Validate("batch")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "batch.pool_size must be >= 1")
}

func TestValidateTigerload_RequiresDatabaseURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("tigerload")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateDistrictStrategy(t *testing.T) {
	cfg := validDefaults()
	cfg.District.Strategy = "bogus"

	err := cfg.Validate("batch")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `district.strategy must be "single" or "bluebird"`)

	cfg.District.Strategy = "bluebird"
	assert.NoError(t, cfg.Validate("batch"))
}

func TestValidateProximityThreshold(t *testing.T) {
	cfg := validDefaults()
	cfg.District.ProximityThresholdMeters = -1

	err := cfg.Validate("batch")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "proximity_threshold_meters")
}

func TestValidateH3Resolution(t *testing.T) {
	cfg := validDefaults()
	cfg.District.H3Resolution = 16

	err := cfg.Validate("batch")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "h3_resolution")
}

func TestValidateRankOrderRequired(t *testing.T) {
	cfg := validDefaults()
	cfg.Geocoder.RankOrder = nil

	err := cfg.Validate("batch")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "geocoder.rank_order must name at least one provider")
}
