package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.Paths.DataDir)
	assert.Equal(t, filepath.Join("data", "current_pois.json"), cfg.Paths.DocumentPath())
	assert.Equal(t, filepath.Join("data", "tour.db"), cfg.Paths.EventsDBPath())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 0.92, cfg.Merge.NameSimilarityThreshold, 0.001)
	assert.InDelta(t, 0.85, cfg.Merge.ProposalMatchFloor, 0.001)
	assert.Equal(t, 3, cfg.Merge.MaxAltNames)
	assert.Equal(t, 120, cfg.Merge.TeaserMaxLen)
	assert.Equal(t, 2, cfg.Validation.RetryBudget)
	assert.InDelta(t, 0.85, cfg.Validation.IdentityFloor, 0.001)
	assert.InDelta(t, 2200, cfg.Validation.OutlierRadiusM, 0.001)
	assert.InDelta(t, 6.5, cfg.Route.MaxDistanceKM, 0.001)
	assert.Equal(t, 8, cfg.Route.MaxStops)
	assert.Equal(t, 3, cfg.Route.TopKStarts)
	assert.Equal(t, "walking", cfg.Route.Mode)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.InDelta(t, 5, cfg.Google.RatePerSec, 0.001)
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
paths:
  data_dir: /var/tour
log:
  level: debug
  format: console
route:
  max_stops: 6
validate:
  retry_budget: 3
`
	require.NoError(t, os.WriteFile("config.yaml", []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/tour", cfg.Paths.DataDir)
	assert.Equal(t, "/var/tour/current_pois.json", cfg.Paths.DocumentPath())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 6, cfg.Route.MaxStops)
	assert.Equal(t, 3, cfg.Validation.RetryBudget)
	// Defaults still apply for unset values
	assert.InDelta(t, 6.5, cfg.Route.MaxDistanceKM, 0.001)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chTempDir(t)

	yaml := `
log:
  level: debug
`
	require.NoError(t, os.WriteFile("config.yaml", []byte(yaml), 0644))

	t.Setenv("TOUR_LOG_LEVEL", "warn")
	t.Setenv("TOUR_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestValidateModes(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 8080

	assert.NoError(t, cfg.Validate("merge"))
	assert.NoError(t, cfg.Validate("filter"))
	assert.NoError(t, cfg.Validate("compose"))
	assert.NoError(t, cfg.Validate("serve"))

	err := cfg.Validate("validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "google.key is required")
	assert.Contains(t, err.Error(), "bias_lat")

	err = cfg.Validate("refine")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")

	cfg.Google.Key = "k"
	cfg.Google.BiasLat, cfg.Google.BiasLng = 37.7793, -122.4193
	cfg.Anthropic.Key = "sk-ant"
	assert.NoError(t, cfg.Validate("validate"))
	assert.NoError(t, cfg.Validate("route"))
	assert.NoError(t, cfg.Validate("refine"))

	cfg.Server.Port = 0
	err = cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")

	err = cfg.Validate("bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestStageConfigMapping(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)
	cfg.Google.Key = "k"
	cfg.Google.BiasLat, cfg.Google.BiasLng = 37.7793, -122.4193

	vc := cfg.ValidateConfig()
	assert.Equal(t, 2, vc.RetryBudget)
	assert.InDelta(t, 37.7793, vc.Bias.Lat, 0.001)
	assert.InDelta(t, 5000, vc.Bias.RadiusM, 0.001)
	assert.Equal(t, 3, vc.MaxAltNames)

	mo := cfg.MergeOptions()
	assert.InDelta(t, 0.92, mo.NameSimilarityThreshold, 0.001)

	rc := cfg.RouteConfig()
	assert.Equal(t, 8, rc.MaxStops)
	assert.Equal(t, "walking", rc.Mode)

	pc := cfg.PlacesConfig()
	assert.Equal(t, "k", pc.APIKey)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
