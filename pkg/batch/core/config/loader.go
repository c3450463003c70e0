package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"go.uber.org/fx"

	"github.com/tigerroll/weatheretl/pkg/batch/support/util/exception"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	EnvFilePath    string `name:"envFilePath" optional:"true"`
}

// LoadConfig builds the Config for one process run:
//
//  1. load the .env file (missing files are not an error),
//  2. start from NewConfig defaults,
//  3. expand ${VAR} placeholders and decode the embedded YAML over the defaults,
//  4. override scalar fields from environment variables named after their yaml path,
//     e.g. SURFIN_SYSTEM_LOGGING_LEVEL.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath == "" {
		envFilePath = ".env"
	}
	if err := godotenv.Load(envFilePath); err != nil {
		logger.Debugf(".env file (%s) not loaded: %v", envFilePath, err)
	}

	cfg := NewConfig()
	cfg.EmbeddedConfig = embeddedConfig

	expanded, err := NewOsEnvironmentExpander().Expand(embeddedConfig)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to expand environment placeholders", err, false, false)
	}
	// Decoding onto the defaults keeps every key the YAML leaves out.
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to unmarshal embedded config", err, false, false)
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load config from environment variables", err, false, false)
	}
	return cfg, nil
}

// NewConfigProvider is an Fx provider that loads *Config and applies the configured log level.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := LoadConfig(params.EnvFilePath, params.EmbeddedConfig)
	if err != nil {
		return nil, err
	}
	logger.SetLogLevel(cfg.Surfin.System.Logging.Level)
	logger.Debugf("Log level set to: %s", cfg.Surfin.System.Logging.Level)
	return cfg, nil
}

// DecodeSection decodes the top-level YAML key `key` of the embedded config into target,
// after environment expansion. A missing key leaves target untouched.
func (c *Config) DecodeSection(key string, target interface{}) error {
	expanded, err := NewOsEnvironmentExpander().Expand(c.EmbeddedConfig)
	if err != nil {
		return err
	}
	var root map[string]yaml.Node
	if err := yaml.Unmarshal(expanded, &root); err != nil {
		return exception.NewBatchError(moduleName, "failed to parse embedded config", err, false, false)
	}
	node, ok := root[key]
	if !ok {
		return nil
	}
	if err := node.Decode(target); err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to decode config section '%s'", key), err, false, false)
	}
	return nil
}

// loadStructFromEnv walks val and sets every scalar field whose environment
// variable (the upper-cased yaml path joined by "_") is present.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// setField converts value to the kind of field. Unsupported kinds are ignored.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	if field.Type() == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	}
	return nil
}
