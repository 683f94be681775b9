package step_test

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tigerroll/ridership/internal/domain/entity"
	"github.com/tigerroll/ridership/internal/pipeline/predict"
	"github.com/tigerroll/ridership/internal/repository"
	"github.com/tigerroll/ridership/internal/step"
	"github.com/tigerroll/ridership/internal/tabular"
	dbconfig "github.com/tigerroll/ridership/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/ridership/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/ridership/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/ridership/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/ridership/pkg/batch/adapter/storage/local"
	coreAdapter "github.com/tigerroll/ridership/pkg/batch/core/adapter"
	"github.com/tigerroll/ridership/pkg/batch/core/config"
	"github.com/tigerroll/ridership/pkg/batch/core/metrics"
	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
	"github.com/tigerroll/ridership/pkg/batch/test"
)

type fixedStorage struct {
	conn storage.StorageConnection
}

func (r *fixedStorage) ResolveConnection(ctx context.Context, name string) (coreAdapter.ResourceConnection, error) {
	return r.conn, nil
}

func (r *fixedStorage) ResolveStorageConnection(ctx context.Context, name string) (storage.StorageConnection, error) {
	return r.conn, nil
}

// constRegressor predicts the number stored in its model file.
type constRegressor float64

func (c constRegressor) Predict(features []float64) (float64, error) { return float64(c), nil }

func constLoader(format string, r io.Reader) (predict.Regressor, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return nil, err
	}
	return constRegressor(v), nil
}

type fixture struct {
	db       *gorm.DB
	conn     storage.StorageConnection
	storage  *fixedStorage
	cfg      *config.ForecastConfig
	repo     *repository.RawRepository
	txs      *gormadapter.GormTransactionManagerFactory
	runner   *step.Runner
	recorder metrics.MetricRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&entity.SubwayStat{}, &entity.WeatherStat{}, &entity.HolidayStat{}, &entity.PredictionRecord{}))

	dbResolver := &test.StaticDBResolver{Conn: gormadapter.NewGormDBAdapter(db, dbconfig.DatabaseConfig{Type: "sqlite"}, "forecast")}

	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: t.TempDir()}, "forecast")
	require.NoError(t, err)

	cfg := config.NewConfig().Surfin.Forecast
	cfg.Families = []config.FamilyConfig{
		{Name: "xgb", Format: "xgboost", BoardingModel: "xgb_boarding.model", AlightingModel: "xgb_alighting.model"},
		{Name: "lgb", Format: "lightgbm", BoardingModel: "lgb_boarding.model", AlightingModel: "lgb_alighting.model"},
	}
	cfg.ExportParquet = true

	return &fixture{
		db:       db,
		conn:     conn,
		storage:  &fixedStorage{conn: conn},
		cfg:      &cfg,
		repo:     repository.NewRawRepository(dbResolver, &cfg),
		txs:      gormadapter.NewGormTransactionManagerFactory(dbResolver),
		runner:   step.NewRunner(metrics.NewNoOpTracer(), metrics.NewNoOpMetricRecorder()),
		recorder: metrics.NewNoOpMetricRecorder(),
	}
}

func (f *fixture) put(t *testing.T, key, content string) {
	t.Helper()
	require.NoError(t, f.conn.Upload(context.Background(), "", key, strings.NewReader(content), "text/csv"))
}

func (f *fixture) run(t *testing.T, s step.Step, p step.Params) step.Result {
	t.Helper()
	res, err := f.runner.Run(context.Background(), s, p)
	require.NoError(t, err)
	return res
}

func TestPipeline_IngestPreparePredictReconcile(t *testing.T) {
	f := newFixture(t)
	f.put(t, "raw/ridership.csv", "USE_YMD,SBWY_ROUT_LN_NM,SBWY_STNS_NM,GTON_TNOPE,GTOFF_TNOPE\n"+
		"20240501,2호선,강남,100,90\n"+
		"20240501,2호선,잠실,80,70\n")
	f.put(t, "raw/weather.csv", "날짜,시간,구분,값\n"+
		"20240502,0900,기온,22.5\n"+
		"20240502,0900,습도,60\n")
	f.put(t, "raw/holiday.csv", "날짜,공휴일여부,공휴일이름\n2024-05-05,True,어린이날\n")
	f.put(t, "models/feature_contract.yaml", "version: 1\nfeatures: [호선_enc, 역명_enc, 년, 월, 일, 공휴일여부, 기온, 습도, 요일_목]\n")
	f.put(t, "models/line_encoder.yaml", "- 2호선\n")
	f.put(t, "models/station_encoder.yaml", "field: station_name\nclasses: [강남, 잠실]\n")
	f.put(t, "models/xgb_boarding.model", "10.4")
	f.put(t, "models/xgb_alighting.model", "-3.2")
	f.put(t, "models/lgb_boarding.model", "14.6")
	f.put(t, "models/lgb_alighting.model", "7")

	ingest := step.NewIngestStep(f.storage, f.repo, f.txs, f.cfg, f.recorder)
	res := f.run(t, ingest, step.Params{Args: []string{step.KindRidership, "raw/ridership.csv"}})
	assert.Equal(t, 4, res.Rows)
	res = f.run(t, ingest, step.Params{Args: []string{step.KindRidership, "raw/ridership.csv"}})
	assert.Equal(t, 0, res.Rows)
	assert.Equal(t, metrics.StatusSkipped, res.Status)
	f.run(t, ingest, step.Params{Args: []string{step.KindWeather, "raw/weather.csv"}})
	f.run(t, ingest, step.Params{Args: []string{step.KindHoliday, "raw/holiday.csv"}})

	target := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	prepared := f.run(t, step.NewPrepareStep(f.repo, f.storage, f.cfg, f.recorder), step.Params{})
	assert.Equal(t, target, prepared.Date)
	assert.Equal(t, 2, prepared.Rows)
	assert.Equal(t, []string{"features/prepared_data/2024-05-02.csv"}, prepared.Keys)

	predicted := f.run(t, step.NewPredictStep(f.storage, f.cfg, f.recorder, constLoader), step.Params{})
	assert.Equal(t, 8, predicted.Rows)
	assert.Equal(t, []string{"predictions/2024-05-02_xgb.csv", "predictions/2024-05-02_lgb.csv"}, predicted.Keys)

	reconcileStep := step.NewReconcileStep(f.storage, f.txs, f.cfg, f.recorder)
	reconciled := f.run(t, reconcileStep, step.Params{})
	assert.Equal(t, target, reconciled.Date)
	assert.Equal(t, 8, reconciled.Rows)
	require.Len(t, reconciled.Keys, 3)
	assert.True(t, strings.HasPrefix(reconciled.Keys[2], "export/pred_data/dt=2024-05-02/data_"))

	again := f.run(t, reconcileStep, step.Params{})
	assert.Equal(t, metrics.StatusSkipped, again.Status)
	assert.Equal(t, 0, again.Rows)

	var records []entity.PredictionRecord
	require.NoError(t, f.db.Order("id").Find(&records).Error)
	require.Len(t, records, 8)
	counts := map[string]int64{}
	for _, r := range records {
		if r.StationName == "강남" {
			counts[r.TargetModel] = r.PredictedCount
		}
	}
	assert.Equal(t, map[string]int64{
		"boarding_xgb":  10,
		"alighting_xgb": 0,
		"boarding_lgb":  15,
		"alighting_lgb": 7,
	}, counts)
}

func TestPredict_UnknownFamily(t *testing.T) {
	f := newFixture(t)
	_, err := f.runner.Run(context.Background(), step.NewPredictStep(f.storage, f.cfg, f.recorder, constLoader), step.Params{Family: "rf"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"rf"`)
}

func TestReconcile_NothingToReconcile(t *testing.T) {
	f := newFixture(t)
	_, err := f.runner.Run(context.Background(), step.NewReconcileStep(f.storage, f.txs, f.cfg, f.recorder), step.Params{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every family")
}

func TestPrepare_HistoryModeAnchorsOnRecordedRidership(t *testing.T) {
	f := newFixture(t)
	f.put(t, "raw/ridership.csv", "USE_YMD,SBWY_ROUT_LN_NM,SBWY_STNS_NM,GTON_TNOPE,GTOFF_TNOPE\n"+
		"20240430,2호선,강남,50,40\n"+
		"20240501,2호선,강남,100,90\n"+
		"20240501,2호선,잠실,80,70\n"+
		"20240501,2호선,역삼,60,50\n")
	f.put(t, "raw/weather.csv", "날짜,시간,구분,값\n20240501,0900,기온,18\n")
	f.put(t, "raw/holiday.csv", "날짜,공휴일여부,공휴일이름\n2024-05-01,Y,근로자의날\n")
	ingest := step.NewIngestStep(f.storage, f.repo, f.txs, f.cfg, f.recorder)
	f.run(t, ingest, step.Params{Args: []string{step.KindRidership, "raw/ridership.csv"}})
	f.run(t, ingest, step.Params{Args: []string{step.KindWeather, "raw/weather.csv"}})
	f.run(t, ingest, step.Params{Args: []string{step.KindHoliday, "raw/holiday.csv"}})

	prepare := step.NewPrepareStep(f.repo, f.storage, f.cfg, f.recorder)
	res := f.run(t, prepare, step.Params{Args: []string{step.PrepareModeHistory}})
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), res.Date)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, []string{"features/prepared_data/2024-05-01.csv"}, res.Keys)

	r, err := f.conn.Download(context.Background(), "", res.Keys[0])
	require.NoError(t, err)
	defer r.Close()
	table, err := tabular.ReadCSV(r)
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)
	for _, row := range table.Rows {
		assert.Equal(t, "1", row["is_holiday"])
		assert.Equal(t, "18", row["temperature"])
	}

	// 2024-04-30 has ridership but no weather.
	_, err = f.runner.Run(context.Background(), prepare, step.Params{Date: time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), Args: []string{step.PrepareModeHistory}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrData))

	// A date without ridership has no anchors.
	f.cfg.RequireWeatherCoverage = new(bool)
	_, err = f.runner.Run(context.Background(), prepare, step.Params{Date: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), Args: []string{step.PrepareModeHistory}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrData))
}

func TestPrepare_UnknownMode(t *testing.T) {
	f := newFixture(t)
	_, err := f.runner.Run(context.Background(), step.NewPrepareStep(f.repo, f.storage, f.cfg, f.recorder), step.Params{Args: []string{"forecast"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown prepare mode "forecast"`)
}
