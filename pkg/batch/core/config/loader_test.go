package config

import (
	"testing"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
surfin:
  system:
    timezone: Asia/Seoul
    logging:
      level: DEBUG
  adapter:
    database:
      forecast:
        type: sqlite
        database: ${RIDERSHIP_TEST_DB}
  forecast:
    storage_location: local
    require_weather_coverage: false
    insert_batch_size: 250
    families:
      - name: lgb
        format: lightgbm
        boarding_model: lgb/boarding.txt
        alighting_model: lgb/alighting.txt
      - name: xgb
        format: xgboost
        boarding_model: xgb/boarding.bin
        alighting_model: xgb/alighting.bin
`

func TestLoadConfig_MergesYAMLOverDefaults(t *testing.T) {
	t.Setenv("RIDERSHIP_TEST_DB", "/tmp/ridership.db")

	cfg, err := LoadConfig("testdata/missing.env", EmbeddedConfig(testYAML), nil)
	require.NoError(t, err)

	f := cfg.Surfin.Forecast
	assert.Equal(t, "local", f.StorageLocation)
	assert.Equal(t, "forecast", f.DatabaseRef)
	assert.Equal(t, "pred_data", f.Tables.Predictions)
	assert.Equal(t, 250, f.InsertBatchSize)
	assert.False(t, f.WeatherCoverageRequired())
	assert.Equal(t, []string{"lgb", "xgb"}, f.FamilyNames())
	assert.Equal(t, "DEBUG", cfg.Surfin.System.Logging.Level)
	assert.Equal(t, "Asia/Seoul", cfg.Surfin.System.Timezone)

	db := cfg.Surfin.AdapterConfigs["database"].(map[string]interface{})
	forecast := db["forecast"].(map[string]interface{})
	assert.Equal(t, "/tmp/ridership.db", forecast["database"])
	require.NoError(t, Validate(cfg))
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SURFIN_FORECAST_INSERT_BATCH_SIZE", "42")
	t.Setenv("SURFIN_FORECAST_REQUIRE_WEATHER_COVERAGE", "true")
	t.Setenv("SURFIN_FORECAST_TABLE_NAMES_PREDICTIONS", "pred_data_v2")

	cfg, err := LoadConfig("", EmbeddedConfig(testYAML), nil)
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.Surfin.Forecast.InsertBatchSize)
	assert.True(t, cfg.Surfin.Forecast.WeatherCoverageRequired())
	assert.Equal(t, "pred_data_v2", cfg.Surfin.Forecast.Tables.Predictions)
}

func TestWeatherCoverageRequired_DefaultsToTrue(t *testing.T) {
	assert.True(t, NewConfig().Surfin.Forecast.WeatherCoverageRequired())
}

func TestValidate_RejectsBadFamilies(t *testing.T) {
	cfg := NewConfig()
	err := Validate(cfg)
	require.Error(t, err, "no families configured")

	cfg.Surfin.Forecast.Families = []FamilyConfig{
		{Name: "lgb", Format: "onnx", BoardingModel: "b", AlightingModel: "a"},
	}
	require.Error(t, Validate(cfg), "unsupported format")

	cfg.Surfin.Forecast.Families = []FamilyConfig{
		{Name: "lgb", Format: "lightgbm", BoardingModel: "b", AlightingModel: "a"},
		{Name: "lgb", Format: "xgboost", BoardingModel: "b", AlightingModel: "a"},
	}
	err = Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate model family")
}

func TestValidate_RejectsUnknownTimezone(t *testing.T) {
	cfg := NewConfig()
	cfg.Surfin.Forecast.Families = []FamilyConfig{
		{Name: "lgb", Format: "lightgbm", BoardingModel: "b", AlightingModel: "a"},
	}
	require.NoError(t, Validate(cfg))

	cfg.Surfin.System.Timezone = "Asia/Atlantis"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timezone")
}
