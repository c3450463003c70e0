package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

const sampleYAML = `
surfin:
  batch:
    job_name: weatherEtlJob
  system:
    timezone: America/Mazatlan
  database:
    workload:
      type: sqlite
      database: ${TEST_WEATHER_DB_PATH}
weather:
  fetch:
    latitude: 24.8091
`

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadConfig_YAMLOverDefaults(t *testing.T) {
	t.Setenv("TEST_WEATHER_DB_PATH", "/tmp/weather.db")

	cfg, err := LoadConfig(noEnvFile(t), EmbeddedConfig(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "weatherEtlJob", cfg.Surfin.Batch.JobName)
	assert.Equal(t, "America/Mazatlan", cfg.Surfin.System.Timezone)
	// Not present in YAML, default survives.
	assert.Equal(t, "INFO", cfg.Surfin.System.Logging.Level)
	assert.Equal(t, MetricsBackendNone, cfg.Surfin.Metrics.Backend)

	workload, ok := cfg.Surfin.AdapterConfigs["workload"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "/tmp/weather.db", workload["database"])
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SURFIN_SYSTEM_LOGGING_LEVEL", "DEBUG")
	t.Setenv("SURFIN_METRICS_INSECURE", "true")
	t.Setenv("SURFIN_METRICS_EXPORT_INTERVAL_SECONDS", "5")

	cfg, err := LoadConfig(noEnvFile(t), EmbeddedConfig(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Surfin.System.Logging.Level)
	assert.True(t, cfg.Surfin.Metrics.Insecure)
	assert.Equal(t, 5, cfg.Surfin.Metrics.ExportIntervalSeconds)
}

func TestLoadConfig_InvalidEnvValue(t *testing.T) {
	t.Setenv("SURFIN_METRICS_EXPORT_INTERVAL_SECONDS", "soon")

	_, err := LoadConfig(noEnvFile(t), EmbeddedConfig(sampleYAML))
	assert.ErrorContains(t, err, "SURFIN_METRICS_EXPORT_INTERVAL_SECONDS")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := LoadConfig(noEnvFile(t), EmbeddedConfig("surfin: ["))
	assert.Error(t, err)
}

func TestDecodeSection(t *testing.T) {
	cfg, err := LoadConfig(noEnvFile(t), EmbeddedConfig(sampleYAML))
	require.NoError(t, err)

	var section struct {
		Fetch struct {
			Latitude float64 `yaml:"latitude"`
		} `yaml:"fetch"`
	}
	require.NoError(t, cfg.DecodeSection("weather", &section))
	assert.InDelta(t, 24.8091, section.Fetch.Latitude, 1e-9)

	require.NoError(t, cfg.DecodeSection("absent", &section))
}

func TestModule_ProvidesConfig(t *testing.T) {
	t.Setenv("TEST_WEATHER_DB_PATH", "/tmp/weather.db")

	var cfg *Config
	app := fx.New(
		fx.NopLogger,
		fx.Supply(EmbeddedConfig(sampleYAML)),
		fx.Supply(fx.Annotated{Name: "envFilePath", Target: noEnvFile(t)}),
		Module,
		fx.Populate(&cfg),
	)
	require.NoError(t, app.Err())
	require.NotNil(t, cfg)
	assert.Equal(t, "weatherEtlJob", cfg.Surfin.Batch.JobName)
	assert.Equal(t, "America/Mazatlan", cfg.Surfin.System.Timezone)
}

func TestNewConfigProvider_InvalidYAML(t *testing.T) {
	_, err := NewConfigProvider(ConfigParams{EmbeddedConfig: EmbeddedConfig("surfin: ["), EnvFilePath: noEnvFile(t)})
	assert.Error(t, err)
}
