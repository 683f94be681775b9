package tabular

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/ridership/internal/domain/model"
)

func TestReadCSV(t *testing.T) {
	in := "\uFEFF날짜, 호선 ,역명\n2024-05-01,2호선, 강남 \n2024-05-01,2호선\n"
	table, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"날짜", "호선", "역명"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, " 강남 ", table.Rows[0]["역명"])
	_, ok := table.Rows[1]["역명"]
	assert.False(t, ok)
}

func TestReadCSV_Empty(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, table.Columns)
}

func TestEncodeRoundTrip(t *testing.T) {
	table := model.RawTable{
		Columns: []string{"a", "b"},
		Rows:    []map[string]string{{"a": "1", "b": "x,y"}, {"a": "2"}},
	}
	buf, err := Encode(table)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,\"x,y\"\n2,\n", buf.String())

	back, err := ReadCSV(buf)
	require.NoError(t, err)
	assert.Equal(t, "x,y", back.Rows[0]["b"])
}

func TestKeys(t *testing.T) {
	d := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "features/prepared_data/2024-05-01.csv", FeatureKey("features/prepared_data", d))
	assert.Equal(t, "predictions/2024-05-01_lgb.csv", PredictionKey("predictions/", d, "lgb"))

	got, family, ok := ParsePredictionKey("predictions/2024-05-01_xgb.csv")
	require.True(t, ok)
	assert.Equal(t, d, got)
	assert.Equal(t, "xgb", family)

	_, _, ok = ParsePredictionKey("predictions/readme.txt")
	assert.False(t, ok)
}

func TestLatestFeatureKey(t *testing.T) {
	keys := []string{
		"prepared_data/2024-05-02.csv",
		"prepared_data/2024-04-30.csv",
		"prepared_data/notes.csv",
		"other/2024-06-01.csv",
	}
	got, ok := LatestFeatureKey("prepared_data", keys)
	require.True(t, ok)
	assert.Equal(t, "prepared_data/2024-05-02.csv", got)

	_, ok = LatestFeatureKey("prepared_data", nil)
	assert.False(t, ok)
}

func TestLatestCompleteDate(t *testing.T) {
	keys := []string{
		"predictions/2024-05-01_lgb.csv",
		"predictions/2024-05-01_xgb.csv",
		"predictions/2024-05-02_lgb.csv",
	}
	got, ok := LatestCompleteDate(keys, []string{"lgb", "xgb"})
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), got)

	got, ok = LatestCompleteDate(keys, []string{"lgb"})
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), got)

	_, ok = LatestCompleteDate(keys, []string{"rf"})
	assert.False(t, ok)
}
