package feature

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/ridership/internal/domain/model"
	"github.com/tigerroll/ridership/internal/pipeline/normalize"
	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
)

var target = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) // Wednesday

func weatherOf(t *testing.T, r model.FeatureRow, name string) float64 {
	t.Helper()
	v, ok := r.Value(name)
	require.True(t, ok, name)
	return v
}

func TestFromRoster_EndToEndScenario(t *testing.T) {
	roster := []model.RosterEntry{{LineID: "Line2", StationName: "StationB"}, {LineID: "Line2", StationName: "StationA"}}
	weather := []model.DailyWeather{{Date: target, Values: map[string]float64{"temperature": 22.5, "humidity": 60}}}

	rows, err := NewBuilder(Options{RequireWeatherCoverage: true}).FromRoster(context.Background(), roster, target, weather, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "StationA", rows[0].StationName)
	assert.Equal(t, "StationB", rows[1].StationName)
	for _, r := range rows {
		assert.Equal(t, 0, r.IsHoliday)
		assert.Equal(t, 0.0, weatherOf(t, r, "precipitation_amount"))
		assert.Equal(t, 22.5, weatherOf(t, r, "temperature"))
		assert.Equal(t, 60.0, weatherOf(t, r, "humidity"))
		assert.Equal(t, [7]int{0, 0, 1, 0, 0, 0, 0}, r.Weekday)
		assert.Equal(t, 2024, r.Year)
		assert.Equal(t, 5, r.Month)
		assert.Equal(t, 1, r.Day)
	}
}

func TestFromRoster_HolidayFlagOnlyExactY(t *testing.T) {
	roster := []model.RosterEntry{{LineID: "L", StationName: "S"}}
	b := NewBuilder(Options{})
	for flag, want := range map[string]int{"Y": 1, "N": 0, "y": 0, " Y": 0, "1": 0, "YES": 0, "": 0} {
		rows, err := b.FromRoster(context.Background(), roster, target, nil, []model.HolidayFlag{{Date: target, Flag: flag}})
		require.NoError(t, err)
		assert.Equal(t, want, rows[0].IsHoliday, "flag %q", flag)
	}
}

func TestFromRoster_NormalizedHolidayTable(t *testing.T) {
	roster := []model.RosterEntry{{LineID: "L", StationName: "S"}}
	b := NewBuilder(Options{})
	for flag, want := range map[string]int{" Y ": 0, "Y ": 0, "y": 0, "Y": 1} {
		table := model.RawTable{
			Columns: []string{"date", "is_holiday"},
			Rows:    []map[string]string{{"date": "2024-05-01", "is_holiday": flag}},
		}
		rows, err := b.FromRoster(context.Background(), roster, target, nil, normalize.Holiday(table))
		require.NoError(t, err)
		assert.Equal(t, want, rows[0].IsHoliday, "flag %q", flag)
	}
}

func TestFromRoster_Deterministic(t *testing.T) {
	roster := []model.RosterEntry{{LineID: "Line3", StationName: "C"}, {LineID: "Line1", StationName: "B"}, {LineID: "Line1", StationName: "A"}}
	weather := []model.DailyWeather{{Date: target, Values: map[string]float64{"temperature": 18}}}
	b := NewBuilder(Options{RequireWeatherCoverage: true})

	first, err := b.FromRoster(context.Background(), roster, target, weather, nil)
	require.NoError(t, err)
	second, err := b.FromRoster(context.Background(), []model.RosterEntry{roster[2], roster[0], roster[1]}, target, weather, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, ToTable(first), ToTable(second))
}

func TestFromRoster_Errors(t *testing.T) {
	b := NewBuilder(Options{RequireWeatherCoverage: true})

	_, err := b.FromRoster(context.Background(), nil, target, nil, nil)
	assert.True(t, errors.Is(err, exception.ErrData))

	_, err = b.FromRoster(context.Background(), []model.RosterEntry{{LineID: "L", StationName: "S"}}, target, nil, nil)
	assert.True(t, errors.Is(err, exception.ErrData))
	assert.Contains(t, err.Error(), "no weather")

	// without the coverage requirement weather defaults to 0
	rows, err := NewBuilder(Options{}).FromRoster(context.Background(), []model.RosterEntry{{LineID: "L", StationName: "S"}}, target, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, [5]float64{}, rows[0].Weather)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewBuilder(Options{}).FromRoster(ctx, []model.RosterEntry{{LineID: "L", StationName: "S"}}, target, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFromRidership(t *testing.T) {
	next := target.AddDate(0, 0, 1)
	records := []model.RidershipRecord{
		{Date: next, LineID: "L", StationName: "S", Direction: model.Boarding},
		{Date: target, LineID: "L", StationName: "S", Direction: model.Boarding},
		{Date: target, LineID: "L", StationName: "S", Direction: model.Alighting},
	}
	rows, err := NewBuilder(Options{}).FromRidership(context.Background(), records, nil, []model.HolidayFlag{{Date: next, Flag: "Y"}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, target, rows[0].Date)
	assert.Equal(t, 0, rows[0].IsHoliday)
	assert.Equal(t, 1, rows[1].IsHoliday)

	_, err = NewBuilder(Options{}).FromRidership(context.Background(), nil, nil, nil)
	assert.True(t, errors.Is(err, exception.ErrData))
}

func TestTableRoundTrip(t *testing.T) {
	rows, err := NewBuilder(Options{}).FromRoster(context.Background(), []model.RosterEntry{{LineID: "Line2", StationName: "StationA"}}, target,
		[]model.DailyWeather{{Date: target, Values: map[string]float64{"temperature": 22.5, "wind_speed": 1.25}}},
		[]model.HolidayFlag{{Date: target, Flag: "Y"}})
	require.NoError(t, err)

	back, err := FromTable(ToTable(rows))
	require.NoError(t, err)
	assert.Equal(t, rows, back)
}

func TestFromTable_LegacyHeaders(t *testing.T) {
	table := model.RawTable{
		Columns: []string{"호선", "역명", "날짜", "기온", "강수", "습도", "공휴일여부"},
		Rows: []map[string]string{
			{"호선": "2호선", "역명": "강남", "날짜": "2024-05-01", "기온": "22.5", "강수": "", "습도": "x", "공휴일여부": "0"},
			{"호선": "2호선", "역명": "역삼", "날짜": "", "기온": "1"},
		},
	}
	rows, err := FromTable(table)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 22.5, weatherOf(t, rows[0], "temperature"))
	assert.Equal(t, 0.0, weatherOf(t, rows[0], "humidity"))
	assert.Equal(t, 1, rows[0].Weekday[2])

	_, err = FromTable(model.RawTable{Columns: []string{"날짜", "호선"}})
	assert.True(t, errors.Is(err, exception.ErrSchema))
}
