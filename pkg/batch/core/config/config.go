// Package config provides the framework configuration model and its loader.
package config

// EmbeddedConfig holds the raw bytes of application.yaml, typically embedded by main.go.
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
type LogLevel string

const (
	LogLevelTrace  LogLevel = "TRACE"
	LogLevelDebug  LogLevel = "DEBUG"
	LogLevelInfo   LogLevel = "INFO"
	LogLevelWarn   LogLevel = "WARN"
	LogLevelError  LogLevel = "ERROR"
	LogLevelFatal  LogLevel = "FATAL"
	LogLevelSilent LogLevel = "SILENT"
)

// Metric backends understood by the infrastructure metrics module.
const (
	MetricsBackendNone       = "none"
	MetricsBackendPrometheus = "prometheus"
	MetricsBackendOTLPHTTP   = "otlp-http"
	MetricsBackendOTLPGRPC   = "otlp-grpc"
)

// BatchConfig holds configuration for the batch engine.
type BatchConfig struct {
	// JobName, when set, must match the ID of the job definition.
	JobName string `yaml:"job_name"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG", "TRACE").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the default zone for local-time fields (e.g., "UTC", "America/Mazatlan").
	// Empty leaves the zone to the application.
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// MetricsConfig selects and configures the MetricRecorder backend.
type MetricsConfig struct {
	// Backend is one of "none", "prometheus", "otlp-http" or "otlp-grpc".
	Backend string `yaml:"backend"`
	// TextfilePath, when set, receives the Prometheus registry in text format at job end.
	TextfilePath string `yaml:"textfile_path"`
	// PushgatewayURL, when set, receives the Prometheus registry via push at job end.
	PushgatewayURL string `yaml:"pushgateway_url"`
	// OTLPEndpoint is the host:port of the OTLP metrics collector.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
	// ExportIntervalSeconds is the OTLP periodic reader interval.
	ExportIntervalSeconds int `yaml:"export_interval_seconds"`
}

// TracingConfig selects and configures the Tracer backend.
type TracingConfig struct {
	// Exporter is one of "none", "otlp-http" or "otlp-grpc".
	Exporter    string `yaml:"exporter"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// SurfinConfig holds all configuration under the "surfin" top-level key.
type SurfinConfig struct {
	Batch   BatchConfig   `yaml:"batch"`
	System  SystemConfig  `yaml:"system"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	// AdapterConfigs holds named database connection settings, decoded by each provider.
	AdapterConfigs map[string]interface{} `yaml:"database"`
	// StorageConfigs holds named storage connection settings, decoded by each provider.
	StorageConfigs map[string]interface{} `yaml:"storage"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Surfin SurfinConfig `yaml:"surfin"`
	// EmbeddedConfig keeps the source bytes so that applications can decode their own sections.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Surfin: SurfinConfig{
			System: SystemConfig{
				Logging: LoggingConfig{Level: string(LogLevelInfo)},
			},
			Metrics: MetricsConfig{
				Backend:               MetricsBackendNone,
				ExportIntervalSeconds: 10,
			},
			Tracing: TracingConfig{
				Exporter:    "none",
				ServiceName: "surfin-batch",
			},
			AdapterConfigs: map[string]interface{}{},
			StorageConfigs: map[string]interface{}{},
		},
	}
}
