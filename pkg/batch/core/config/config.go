// Package config provides the configuration structures of the ridership forecast
// pipeline and the loader that assembles them from YAML, .env files and the environment.
package config

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
type EmbeddedConfig []byte

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone (e.g., "UTC", "Asia/Seoul").
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// TableNames names the raw and prediction tables.
type TableNames struct {
	Subway      string `yaml:"subway" validate:"required"`
	Weather     string `yaml:"weather" validate:"required"`
	Holiday     string `yaml:"holiday" validate:"required"`
	Predictions string `yaml:"predictions" validate:"required"`
}

// DefaultTableNames returns the table names created by the embedded schema migrations.
func DefaultTableNames() TableNames {
	return TableNames{
		Subway:      "subway_stats",
		Weather:     "weather_stats",
		Holiday:     "holidays_stats",
		Predictions: "pred_data",
	}
}

// Prefixes are the storage key prefixes used by each stage.
type Prefixes struct {
	Features    string `yaml:"features" validate:"required"`
	Predictions string `yaml:"predictions" validate:"required"`
	Export      string `yaml:"export"`
}

// ArtifactConfig locates the inference artifacts inside the artifact storage.
type ArtifactConfig struct {
	// StorageRef names the storage connection holding the artifacts. Empty means the forecast storage.
	StorageRef      string `yaml:"storage_ref"`
	Prefix          string `yaml:"prefix"`
	FeatureContract string `yaml:"feature_contract" validate:"required"`
	LineEncoder     string `yaml:"line_encoder" validate:"required"`
	StationEncoder  string `yaml:"station_encoder" validate:"required"`
}

// FamilyConfig describes one model family and its two regressors.
type FamilyConfig struct {
	Name           string `yaml:"name" validate:"required,alphanum"`
	Format         string `yaml:"format" validate:"omitempty,oneof=lightgbm lightgbm_json xgboost"`
	BoardingModel  string `yaml:"boarding_model" validate:"required"`
	AlightingModel string `yaml:"alighting_model" validate:"required"`
}

// ForecastConfig is the pipeline configuration injected into every step.
type ForecastConfig struct {
	// StorageLocation names the storage connection (adapter.storage.<name>) for features and predictions.
	StorageLocation string `yaml:"storage_location" validate:"required"`
	// Credentials overrides the credentials file of the storage connection.
	Credentials string `yaml:"credentials"`
	// DatabaseRef names the database connection (adapter.database.<name>).
	DatabaseRef     string         `yaml:"database_ref" validate:"required"`
	Tables          TableNames     `yaml:"table_names"`
	Prefixes        Prefixes       `yaml:"prefixes"`
	Artifacts       ArtifactConfig `yaml:"artifacts"`
	Families        []FamilyConfig `yaml:"families" validate:"min=1,dive"`
	InsertBatchSize int            `yaml:"insert_batch_size" validate:"gt=0"`
	// RequireWeatherCoverage makes prepare fail when the target date has no weather. Nil means true.
	RequireWeatherCoverage *bool `yaml:"require_weather_coverage"`
	ExportParquet          bool  `yaml:"export_parquet"`
}

// WeatherCoverageRequired resolves RequireWeatherCoverage with its default.
func (f ForecastConfig) WeatherCoverageRequired() bool {
	return f.RequireWeatherCoverage == nil || *f.RequireWeatherCoverage
}

// FamilyNames returns the configured family names in order.
func (f ForecastConfig) FamilyNames() []string {
	names := make([]string, 0, len(f.Families))
	for _, fam := range f.Families {
		names = append(names, fam.Name)
	}
	return names
}

// Family looks up a family by name.
func (f ForecastConfig) Family(name string) (FamilyConfig, bool) {
	for _, fam := range f.Families {
		if fam.Name == name {
			return fam, true
		}
	}
	return FamilyConfig{}, false
}

// MetricsConfig configures the Prometheus recorder.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	// TextfilePath, when set, receives the registry in text format at shutdown (node_exporter textfile collector).
	TextfilePath string `yaml:"textfile_path"`
}

// TracingConfig configures the OpenTelemetry tracer.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Exporter    string `yaml:"exporter"` // "http" or "grpc"
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// SurfinConfig holds all configuration under the "surfin" top-level key.
type SurfinConfig struct {
	System SystemConfig `yaml:"system"`
	// AdapterConfigs holds the raw "database" and "storage" connection maps, decoded by each adapter.
	AdapterConfigs map[string]interface{} `yaml:"adapter"`
	Forecast       ForecastConfig         `yaml:"forecast"`
	Metrics        MetricsConfig          `yaml:"metrics"`
	Tracing        TracingConfig          `yaml:"tracing"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Surfin SurfinConfig `yaml:"surfin"`
	// EmbeddedConfig holds configuration loaded from an embedded source, not from YAML.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	return &Config{
		Surfin: SurfinConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			AdapterConfigs: map[string]interface{}{},
			Forecast: ForecastConfig{
				StorageLocation: "forecast",
				DatabaseRef:     "forecast",
				Tables:          DefaultTableNames(),
				Prefixes: Prefixes{
					Features:    "features/prepared_data",
					Predictions: "predictions",
					Export:      "export/pred_data",
				},
				Artifacts: ArtifactConfig{
					Prefix:          "models",
					FeatureContract: "feature_contract.yaml",
					LineEncoder:     "line_encoder.yaml",
					StationEncoder:  "station_encoder.yaml",
				},
				InsertBatchSize: 1000,
			},
			Metrics: MetricsConfig{Namespace: "ridership"},
			Tracing: TracingConfig{Exporter: "http", ServiceName: "ridership"},
		},
	}
}
