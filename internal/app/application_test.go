package app_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tigerroll/ridership/internal/app"
	"github.com/tigerroll/ridership/internal/step"
	"github.com/tigerroll/ridership/pkg/batch/core/config"
)

func testConfig(dbPath, baseDir string) config.EmbeddedConfig {
	return config.EmbeddedConfig(fmt.Sprintf(`
surfin:
  system:
    logging:
      level: WARN
  adapter:
    database:
      forecast:
        type: sqlite
        database: %s
    storage:
      forecast:
        type: local
        base_dir: %s
  forecast:
    families:
      - name: xgb
        format: xgboost
        boarding_model: xgb_boarding.json
        alighting_model: xgb_alighting.json
`, dbPath, baseDir))
}

func TestRun_ExitCodes(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "forecast.db")
	cfg := testConfig(dbPath, filepath.Join(dir, "bucket"))
	envFile := filepath.Join(dir, "missing.env")
	ctx := context.Background()

	code := app.Run(ctx, envFile, cfg, app.Command{Name: "migrate", Params: step.Params{RunID: "t-migrate"}})
	require.Equal(t, app.ExitOK, code)

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	require.NoError(t, err)
	for _, table := range []string{"subway_stats", "weather_stats", "holidays_stats", "pred_data"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	// no ridership yet
	code = app.Run(ctx, envFile, cfg, app.Command{Name: "prepare", Params: step.Params{RunID: "t-prepare"}})
	assert.Equal(t, app.ExitTempFail, code)

	code = app.Run(ctx, envFile, cfg, app.Command{Name: "train"})
	assert.Equal(t, app.ExitFailure, code)
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := config.EmbeddedConfig("surfin:\n  forecast:\n    insert_batch_size: 10\n")
	code := app.Run(context.Background(), filepath.Join(t.TempDir(), "missing.env"), cfg, app.Command{Name: "migrate"})
	assert.Equal(t, app.ExitFailure, code)
}
