package config

import "go.uber.org/fx"

// NewLoggingConfigProvider extracts *LoggingConfig from *Config.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.Surfin.System.Logging
}

// NewForecastConfigProvider extracts *ForecastConfig from *Config so that
// pipeline steps depend only on the forecast section.
func NewForecastConfigProvider(cfg *Config) *ForecastConfig {
	return &cfg.Surfin.Forecast
}

// Module provides *Config and its sections. EmbeddedConfig must be supplied by main.
var Module = fx.Options(
	fx.Provide(func() EnvironmentExpander {
		return NewOsEnvironmentExpander()
	}),
	fx.Provide(NewConfigProvider),
	fx.Provide(NewLoggingConfigProvider),
	fx.Provide(NewForecastConfigProvider),
)
