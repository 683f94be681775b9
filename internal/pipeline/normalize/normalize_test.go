package normalize

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/ridership/internal/domain/model"
	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDate(t *testing.T) {
	want := day(2024, 5, 1)
	for _, in := range []string{
		"20240501",
		"2024-05-01",
		"2024/05/01",
		"2024.05.01",
		" 2024-05-01 ",
		"2024-05-01 13:45:00",
		"2024-05-01T13:45:00",
		"2024-05-01T23:30:00+09:00",
		"2024-05-01 23:30:00+09",
		"2024-05-01T00:10:00Z",
	} {
		got, ok := ParseDate(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "nan", "NaN", "None", "NaT", "null", "yesterday", "2024-13-01"} {
		_, ok := ParseDate(in)
		assert.False(t, ok, in)
	}
}

func TestRidership_AliasesAndDirections(t *testing.T) {
	table := model.RawTable{
		Columns: []string{"사용일자", "호선", "역명", "구분", "인원수"},
		Rows: []map[string]string{
			{"사용일자": "20240501", "호선": "2호선", "역명": " 강남 ", "구분": "승차", "인원수": "1,204"},
			{"사용일자": "2024-05-01 00:00:00", "호선": "2호선", "역명": "강남", "구분": "하차", "인원수": "998"},
			{"사용일자": "nan", "호선": "2호선", "역명": "강남", "구분": "승차", "인원수": "1"},
			{"사용일자": "20240501", "호선": "2호선", "역명": "강남", "구분": "환승", "인원수": "1"},
		},
	}
	recs, err := Ridership(table)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, model.RidershipRecord{Date: day(2024, 5, 1), LineID: "2호선", StationName: "강남", Direction: model.Boarding, Count: 1204}, recs[0])
	assert.Equal(t, model.Alighting, recs[1].Direction)
	assert.Equal(t, int64(998), recs[1].Count)
}

func TestRidership_MissingColumns(t *testing.T) {
	_, err := Ridership(model.RawTable{Columns: []string{"date", "count"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrSchema))
	assert.Contains(t, err.Error(), "line_id")
	assert.Contains(t, err.Error(), "station_name")
	assert.NotContains(t, err.Error(), "[date")
}

func TestRoster(t *testing.T) {
	table := model.RawTable{
		Columns: []string{"line_id", "station_name"},
		Rows: []map[string]string{
			{"line_id": "Line2", "station_name": "StationB"},
			{"line_id": "Line2", "station_name": "StationA"},
			{"line_id": "Line2", "station_name": "StationA "},
			{"line_id": "Line1", "station_name": ""},
		},
	}
	roster, err := Roster(table)
	require.NoError(t, err)
	assert.Equal(t, []model.RosterEntry{{LineID: "Line2", StationName: "StationA"}, {LineID: "Line2", StationName: "StationB"}}, roster)

	_, err = Roster(model.RawTable{Columns: []string{"line_id"}})
	assert.True(t, errors.Is(err, exception.ErrSchema))
}

func TestWeather(t *testing.T) {
	table := model.RawTable{
		Columns: []string{"날짜", "구분", "값"},
		Rows: []map[string]string{
			{"날짜": "2024-05-01 01:00:00", "구분": "기온", "값": "21.0"},
			{"날짜": "2024-05-01 02:00:00", "구분": "기온", "값": ""},
			{"날짜": "", "구분": "기온", "값": "3"},
		},
	}
	obs := Weather(table)
	require.Len(t, obs, 2)
	assert.Equal(t, 21.0, obs[0].Value)
	assert.False(t, obs[0].Missing)
	assert.True(t, obs[1].Missing)

	assert.Empty(t, Weather(model.RawTable{Columns: []string{"date", "value"}}))
}

func TestHoliday(t *testing.T) {
	table := model.RawTable{
		Columns: []string{"날짜", "공휴일여부", "공휴일이름"},
		Rows: []map[string]string{
			{"날짜": "2024-05-05", "공휴일여부": "Y", "공휴일이름": "어린이날"},
			{"날짜": "2024-05-06", "공휴일여부": " N "},
		},
	}
	flags := Holiday(table)
	require.Len(t, flags, 2)
	assert.True(t, flags[0].IsHoliday())
	assert.Equal(t, "어린이날", flags[0].Name)
	assert.Equal(t, " N ", flags[1].Flag)
	assert.False(t, flags[1].IsHoliday())

	noFlag := Holiday(model.RawTable{Columns: []string{"date"}, Rows: []map[string]string{{"date": "2024-05-05"}}})
	require.Len(t, noFlag, 1)
	assert.Equal(t, "N", noFlag[0].Flag)

	assert.Empty(t, Holiday(model.RawTable{Columns: []string{"flag"}}))
}

func TestHoliday_KeepsFlagVerbatim(t *testing.T) {
	table := model.RawTable{
		Columns: []string{"date", "is_holiday"},
		Rows: []map[string]string{
			{"date": "2024-05-05", "is_holiday": " Y "},
			{"date": "2024-05-06", "is_holiday": "y"},
			{"date": "2024-05-07", "is_holiday": "Y"},
		},
	}
	flags := Holiday(table)
	require.Len(t, flags, 3)
	assert.Equal(t, " Y ", flags[0].Flag)
	assert.False(t, flags[0].IsHoliday())
	assert.False(t, flags[1].IsHoliday())
	assert.True(t, flags[2].IsHoliday())
}

func TestParseCount(t *testing.T) {
	cases := []struct {
		raw  string
		want int64
		ok   bool
	}{
		{"1,200", 1200, true},
		{" 42 ", 42, true},
		{"41.5", 42, true},
		{"-5", 0, true},
		{"-3.7", 0, true},
		{"0", 0, true},
		{"99999999999999999999", math.MaxInt64, true},
		{"1e300", math.MaxInt64, true},
		{"1e400", math.MaxInt64, true},
		{"-1e400", 0, true},
		{"", 0, false},
		{"n/a", 0, false},
		{"NaN", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseCount(tc.raw)
		assert.Equal(t, tc.want, got, "raw %q", tc.raw)
		assert.Equal(t, tc.ok, ok, "raw %q", tc.raw)
	}
}

func TestRidership_CountsAreNonNegative(t *testing.T) {
	table := model.RawTable{
		Columns: []string{"date", "line_id", "station_name", "direction", "count"},
		Rows: []map[string]string{
			{"date": "2024-05-01", "line_id": "2", "station_name": "A", "direction": "boarding", "count": "-5"},
			{"date": "2024-05-01", "line_id": "2", "station_name": "A", "direction": "alighting", "count": "many"},
		},
	}
	recs, err := Ridership(table)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(0), recs[0].Count)
	assert.Equal(t, int64(0), recs[1].Count)
}

func TestColumn(t *testing.T) {
	table := model.RawTable{Columns: []string{"USE_YMD", " GTON_TNOPE ", "하차"}}

	col, ok := Column(table, "date")
	assert.True(t, ok)
	assert.Equal(t, "USE_YMD", col)

	col, ok = Column(table, "boarding")
	assert.True(t, ok)
	assert.Equal(t, " GTON_TNOPE ", col)

	_, ok = Column(table, "station_name")
	assert.False(t, ok)
	_, ok = Column(table, "unknown")
	assert.False(t, ok)
}
