// Package config holds the application settings of the weather pipeline,
// decoded from the "weather" section of application.yaml.
package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	batchconfig "github.com/tigerroll/weatheretl/pkg/batch/core/config"
)

// WeatherConfig configures the OpenWeather call and the pipeline's file and database targets.
type WeatherConfig struct {
	Endpoint string  `yaml:"endpoint"`
	APIKey   string  `yaml:"api_key"`
	Lat      float64 `yaml:"lat"`
	Lon      float64 `yaml:"lon"`
	Units    string  `yaml:"units"`
	// Timeout bounds the whole HTTP exchange.
	Timeout time.Duration `yaml:"timeout"`
	// Timezone is the zone of obs_timestamp_local and of file names.
	Timezone     string `yaml:"timezone"`
	RawDir       string `yaml:"raw_dir"`
	ProcessedDir string `yaml:"processed_dir"`
	// DBRef names the surfin.database connection the loader writes to.
	DBRef  string       `yaml:"db_ref"`
	Export ExportConfig `yaml:"export"`
}

// ExportConfig configures the optional Parquet export step.
type ExportConfig struct {
	Enabled bool `yaml:"enabled"`
	// StorageRef names the surfin.storage connection to upload to.
	StorageRef string `yaml:"storage_ref"`
	// Bucket overrides the bucket of the storage connection.
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// Default returns the settings used when application.yaml leaves a key out.
func Default() WeatherConfig {
	return WeatherConfig{
		Endpoint:     "https://api.openweathermap.org/data/2.5/weather",
		Lat:          24.8091,
		Lon:          -107.3940,
		Units:        "metric",
		Timeout:      20 * time.Second,
		Timezone:     "America/Mazatlan",
		RawDir:       "data/raw",
		ProcessedDir: "data/processed",
		DBRef:        "workload",
		Export: ExportConfig{
			StorageRef: "archive",
			Prefix:     "weather_observation",
		},
	}
}

// Load decodes the "weather" section of cfg over the defaults.
// surfin.system.timezone, when set, replaces the default timezone, and
// weather.timezone still wins over both.
func Load(cfg *batchconfig.Config) (*WeatherConfig, error) {
	wc := Default()
	if tz := cfg.Surfin.System.Timezone; tz != "" {
		wc.Timezone = tz
	}
	if err := cfg.DecodeSection("weather", &wc); err != nil {
		return nil, err
	}
	if _, err := wc.Location(); err != nil {
		return nil, err
	}
	return &wc, nil
}

// Location resolves Timezone.
func (c WeatherConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid weather.timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
