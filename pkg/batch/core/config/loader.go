package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
	"github.com/tigerroll/ridership/pkg/batch/support/util/logger"
)

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	Expander       EnvironmentExpander
	EnvFilePath    string `name:"envFilePath" optional:"true"`
}

// LoadConfig loads configuration in this order:
//  1. the .env file (or ./.env) into the process environment
//  2. defaults from NewConfig
//  3. the embedded YAML, after ${VAR} expansion
//  4. SURFIN_* environment overrides keyed by yaml tags
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig, expander EnvironmentExpander) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else if err := godotenv.Load(); err != nil {
		logger.Debugf(".env file not found or could not be loaded: %v", err)
	}
	if expander == nil {
		expander = NewOsEnvironmentExpander()
	}

	cfg := NewConfig()

	expanded, err := expander.Expand(embeddedConfig)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to expand environment placeholders", err, false, false)
	}

	var yamlConfig Config
	if err := yaml.Unmarshal(expanded, &yamlConfig); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to unmarshal embedded config", err, false, false)
	}
	mergeConfig(cfg, &yamlConfig)

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load config from environment variables", err, false, false)
	}
	cfg.EmbeddedConfig = embeddedConfig
	return cfg, nil
}

// Validate checks the system timezone and the forecast section.
func Validate(cfg *Config) error {
	if tz := cfg.Surfin.System.Timezone; tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return exception.NewBatchError(moduleName, fmt.Sprintf("invalid timezone %q", tz), err, false, false)
		}
	}
	v := validator.New()
	if err := v.Struct(cfg.Surfin.Forecast); err != nil {
		return exception.NewBatchError(moduleName, "invalid forecast configuration", err, false, false)
	}
	seen := make(map[string]bool, len(cfg.Surfin.Forecast.Families))
	for _, fam := range cfg.Surfin.Forecast.Families {
		if seen[fam.Name] {
			return exception.NewBatchError(moduleName, fmt.Sprintf("duplicate model family %q", fam.Name), nil, false, false)
		}
		seen[fam.Name] = true
	}
	return nil
}

// NewConfigProvider is an Fx provider that loads, validates and provides *Config.
// It also applies the configured log level and timezone.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := LoadConfig(params.EnvFilePath, params.EmbeddedConfig, params.Expander)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	logger.SetLogLevel(cfg.Surfin.System.Logging.Level)
	if err := logger.SetTimezone(cfg.Surfin.System.Timezone); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to apply timezone", err, false, false)
	}
	logger.Debugf("Log level set to: %s", cfg.Surfin.System.Logging.Level)
	return cfg, nil
}

// mergeConfig copies every non-zero value of source into dest.
func mergeConfig(dest, source *Config) {
	d, s := &dest.Surfin, &source.Surfin

	if s.System.Timezone != "" {
		d.System.Timezone = s.System.Timezone
	}
	if s.System.Logging.Level != "" {
		d.System.Logging.Level = s.System.Logging.Level
	}

	if s.AdapterConfigs != nil {
		if d.AdapterConfigs == nil {
			d.AdapterConfigs = make(map[string]interface{})
		}
		for key, value := range s.AdapterConfigs {
			d.AdapterConfigs[key] = value
		}
	}

	mergeForecastConfig(&d.Forecast, &s.Forecast)

	if s.Metrics.Enabled {
		d.Metrics.Enabled = true
	}
	mergeString(&d.Metrics.Namespace, s.Metrics.Namespace)
	mergeString(&d.Metrics.TextfilePath, s.Metrics.TextfilePath)

	if s.Tracing.Enabled {
		d.Tracing.Enabled = true
	}
	if s.Tracing.Insecure {
		d.Tracing.Insecure = true
	}
	mergeString(&d.Tracing.Exporter, s.Tracing.Exporter)
	mergeString(&d.Tracing.Endpoint, s.Tracing.Endpoint)
	mergeString(&d.Tracing.ServiceName, s.Tracing.ServiceName)
}

func mergeForecastConfig(dest, source *ForecastConfig) {
	mergeString(&dest.StorageLocation, source.StorageLocation)
	mergeString(&dest.Credentials, source.Credentials)
	mergeString(&dest.DatabaseRef, source.DatabaseRef)

	mergeString(&dest.Tables.Subway, source.Tables.Subway)
	mergeString(&dest.Tables.Weather, source.Tables.Weather)
	mergeString(&dest.Tables.Holiday, source.Tables.Holiday)
	mergeString(&dest.Tables.Predictions, source.Tables.Predictions)

	mergeString(&dest.Prefixes.Features, source.Prefixes.Features)
	mergeString(&dest.Prefixes.Predictions, source.Prefixes.Predictions)
	mergeString(&dest.Prefixes.Export, source.Prefixes.Export)

	mergeString(&dest.Artifacts.StorageRef, source.Artifacts.StorageRef)
	mergeString(&dest.Artifacts.Prefix, source.Artifacts.Prefix)
	mergeString(&dest.Artifacts.FeatureContract, source.Artifacts.FeatureContract)
	mergeString(&dest.Artifacts.LineEncoder, source.Artifacts.LineEncoder)
	mergeString(&dest.Artifacts.StationEncoder, source.Artifacts.StationEncoder)

	if source.Families != nil {
		dest.Families = source.Families
	}
	if source.InsertBatchSize != 0 {
		dest.InsertBatchSize = source.InsertBatchSize
	}
	if source.RequireWeatherCoverage != nil {
		v := *source.RequireWeatherCoverage
		dest.RequireWeatherCoverage = &v
	}
	if source.ExportParquet {
		dest.ExportParquet = true
	}
}

func mergeString(dest *string, source string) {
	if source != "" {
		*dest = source
	}
}

// loadStructFromEnv recursively loads values into a struct from environment variables.
// The variable name is the upper-cased chain of yaml tags joined by "_"
// (e.g. SURFIN_FORECAST_INSERT_BATCH_SIZE).
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

// setField sets a string, integer, float, bool or *bool field from its string form.
// Other kinds are left untouched.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
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
	case reflect.Ptr:
		elem := reflect.New(field.Type().Elem())
		if err := setField(elem.Elem(), value); err != nil {
			return err
		}
		field.Set(elem)
	}
	return nil
}
