package encoding

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/ridership/internal/domain/model"
	"github.com/tigerroll/ridership/pkg/batch/core/metrics"
)

type countingRecorder struct {
	metrics.NoOpMetricRecorder
	counts map[string]int
}

func (r *countingRecorder) RecordDroppedLabels(ctx context.Context, field string, n int) {
	r.counts[field] += n
}

func TestVocabulary(t *testing.T) {
	v, err := NewVocabulary("line_id", []string{"1호선", " 2호선 "})
	require.NoError(t, err)
	code, ok := v.Code("2호선")
	assert.True(t, ok)
	assert.Equal(t, 1, code)
	label, ok := v.Class(0)
	assert.True(t, ok)
	assert.Equal(t, "1호선", label)
	_, ok = v.Class(2)
	assert.False(t, ok)

	_, err = NewVocabulary("line_id", []string{"a", "a "})
	assert.ErrorContains(t, err, "duplicates")
	_, err = NewVocabulary("line_id", nil)
	assert.ErrorContains(t, err, "empty")
}

func TestLoadVocabulary(t *testing.T) {
	v, err := LoadVocabulary("station_name", strings.NewReader("field: station_name\nclasses:\n  - 강남\n  - 역삼\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, v.Len())

	v, err = LoadVocabulary("station_name", strings.NewReader(`["강남", "역삼", "선릉"]`))
	require.NoError(t, err)
	code, _ := v.Code("선릉")
	assert.Equal(t, 2, code)
}

func TestEncode_ExcludesUnseenLabels(t *testing.T) {
	line, _ := NewVocabulary(FieldLine, []string{"Line1", "Line2"})
	station, _ := NewVocabulary(FieldStation, []string{"StationA", "StationB", "StationC"})
	rec := &countingRecorder{counts: map[string]int{}}
	enc := NewEncoder(line, station, rec)

	rows := []model.FeatureRow{
		{LineID: " Line2", StationName: "StationC "},
		{LineID: "Line9", StationName: "StationA"},
		{LineID: "Line1", StationName: "NewStation"},
		{LineID: "Line9", StationName: "Another"},
		{LineID: "Line1", StationName: "StationA"},
	}
	res := enc.Encode(context.Background(), rows)

	require.Len(t, res.Rows, 2)
	for _, r := range res.Rows {
		gotLine, _ := line.Class(r.LineEncoded)
		gotStation, _ := station.Class(r.StationEncoded)
		assert.Equal(t, r.LineID, gotLine)
		assert.Equal(t, r.StationName, gotStation)
	}
	assert.Equal(t, "StationC", res.Rows[0].StationName)
	assert.Equal(t, 3, res.DroppedRows)
	assert.Equal(t, []DroppedLabel{
		{FieldLine, "Line9"},
		{FieldStation, "Another"},
		{FieldStation, "NewStation"},
	}, res.Dropped)
	assert.Equal(t, 1, rec.counts[FieldLine])
	assert.Equal(t, 2, rec.counts[FieldStation])
}

func TestEncode_AllDropped(t *testing.T) {
	line, _ := NewVocabulary(FieldLine, []string{"Line1"})
	station, _ := NewVocabulary(FieldStation, []string{"A"})
	res := NewEncoder(line, station, nil).Encode(context.Background(), []model.FeatureRow{{LineID: "X", StationName: "A"}})
	assert.Empty(t, res.Rows)
	assert.Equal(t, 1, res.DroppedRows)
}
