package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFeatureRow_ValueResolvesAliases(t *testing.T) {
	r := FeatureRow{
		Date:           time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		LineEncoded:    3,
		StationEncoded: 7,
		IsHoliday:      1,
		Weather:        [5]float64{22.5, 0, 0, 60, 1.5},
	}
	r.SetCalendar()

	cases := map[string]float64{
		"year": 2024, "년": 2024, "월": 5, "일": 1,
		"호선_enc": 3, "station_encoded": 7, "공휴일여부": 1,
		"기온": 22.5, "습도": 60, "풍속": 1.5, "강수": 0,
		"요일_수": 1, "weekday_mon": 0,
	}
	for name, want := range cases {
		got, ok := r.Value(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	_, ok := r.Value("풍향")
	assert.False(t, ok)
}

func TestFeatureRow_SetCalendarWeekdayOneHot(t *testing.T) {
	start := time.Date(2024, 4, 29, 0, 0, 0, 0, time.UTC) // Monday
	for i := 0; i < 7; i++ {
		r := FeatureRow{Date: start.AddDate(0, 0, i)}
		r.SetCalendar()
		sum := 0
		for _, v := range r.Weekday {
			sum += v
		}
		assert.Equal(t, 1, sum)
		assert.Equal(t, 1, r.Weekday[i])
	}
}

func TestDateOnly(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	got := DateOnly(time.Date(2024, 5, 1, 23, 30, 0, 0, loc))
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestTargetModel(t *testing.T) {
	assert.Equal(t, "alighting_xgb", TargetModel(Alighting, "xgb"))
}
