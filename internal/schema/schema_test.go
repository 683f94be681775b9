package schema_test

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tigerroll/ridership/internal/domain/entity"
	"github.com/tigerroll/ridership/internal/schema"
	dbconfig "github.com/tigerroll/ridership/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/ridership/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/ridership/pkg/batch/component/migration"
)

func TestMigrations_EveryDialectHasTheSameVersions(t *testing.T) {
	var want []string
	for _, dialect := range []string{"postgres", "mysql", "sqlite"} {
		entries, err := fs.ReadDir(schema.Migrations, schema.Dir(dialect))
		require.NoError(t, err)
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		if want == nil {
			want = names
			continue
		}
		assert.Equal(t, want, names, dialect)
	}
	assert.Len(t, want, 4)
}

func TestMigrations_SQLiteEnforcesPredictionKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecast.db")
	open := func() *gormadapter.GormDBAdapter {
		db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
		require.NoError(t, err)
		return gormadapter.NewGormDBAdapter(db, dbconfig.DatabaseConfig{Type: "sqlite", Database: path}, "forecast")
	}

	version, err := migration.NewMigrator(open()).Up(context.Background(), schema.Migrations, schema.Dir("sqlite"), "")
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)

	conn := open()
	defer conn.Close()
	db := conn.GetGormDB()
	for _, table := range []string{"subway_stats", "weather_stats", "holidays_stats", "pred_data"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	rec := entity.PredictionRecord{Date: "2024-05-02", TargetModel: "boarding_lgb", LineID: "2", StationName: "Gangnam", PredictedCount: 10}
	require.NoError(t, db.Create(&rec).Error)
	dup := rec
	dup.ID = 0
	assert.Error(t, db.Create(&dup).Error)
}
