package model

import (
	"strings"
	"time"
)

// Canonical feature names.
const (
	FeatureLineEncoded         = "line_encoded"
	FeatureStationEncoded      = "station_encoded"
	FeatureYear                = "year"
	FeatureMonth               = "month"
	FeatureDay                 = "day"
	FeatureIsHoliday           = "is_holiday"
	FeatureTemperature         = "temperature"
	FeaturePrecipitationAmount = "precipitation_amount"
	FeaturePrecipitationType   = "precipitation_type"
	FeatureHumidity            = "humidity"
	FeatureWindSpeed           = "wind_speed"
)

// WeatherFeatures are the numeric weather features, in feature order.
var WeatherFeatures = []string{
	FeatureTemperature,
	FeaturePrecipitationAmount,
	FeaturePrecipitationType,
	FeatureHumidity,
	FeatureWindSpeed,
}

// WeekdayFeatures are the Monday-first weekday indicator names.
var WeekdayFeatures = []string{
	"weekday_mon", "weekday_tue", "weekday_wed", "weekday_thu", "weekday_fri", "weekday_sat", "weekday_sun",
}

// featureAliases maps the names used by the trained artifacts to canonical names.
var featureAliases = map[string]string{
	"년":     FeatureYear,
	"월":     FeatureMonth,
	"일":     FeatureDay,
	"공휴일여부": FeatureIsHoliday,
	"기온":    FeatureTemperature,
	"강수":    FeaturePrecipitationAmount,
	"강수형태":  FeaturePrecipitationType,
	"습도":    FeatureHumidity,
	"풍속":    FeatureWindSpeed,
	"호선_enc": FeatureLineEncoded,
	"역명_enc": FeatureStationEncoded,
	"요일_월":  "weekday_mon",
	"요일_화":  "weekday_tue",
	"요일_수":  "weekday_wed",
	"요일_목":  "weekday_thu",
	"요일_금":  "weekday_fri",
	"요일_토":  "weekday_sat",
	"요일_일":  "weekday_sun",
}

// CanonicalFeature resolves a feature name or one of its aliases.
func CanonicalFeature(name string) string {
	n := strings.TrimSpace(name)
	if c, ok := featureAliases[n]; ok {
		return c
	}
	return n
}

// FeatureNames returns the canonical feature names in frame order.
func FeatureNames() []string {
	names := []string{
		FeatureLineEncoded, FeatureStationEncoded,
		FeatureYear, FeatureMonth, FeatureDay, FeatureIsHoliday,
	}
	names = append(names, WeatherFeatures...)
	return append(names, WeekdayFeatures...)
}

// FeatureRow is the model input of one station on one date.
type FeatureRow struct {
	Date           time.Time
	LineID         string
	StationName    string
	LineEncoded    int
	StationEncoded int
	Year           int
	Month          int
	Day            int
	IsHoliday      int
	// Weather follows WeatherFeatures.
	Weather [5]float64
	// Weekday follows WeekdayFeatures, exactly one element is 1.
	Weekday [7]int
}

// Value returns the value of a canonical or aliased feature name.
func (r FeatureRow) Value(name string) (float64, bool) {
	switch c := CanonicalFeature(name); c {
	case FeatureLineEncoded:
		return float64(r.LineEncoded), true
	case FeatureStationEncoded:
		return float64(r.StationEncoded), true
	case FeatureYear:
		return float64(r.Year), true
	case FeatureMonth:
		return float64(r.Month), true
	case FeatureDay:
		return float64(r.Day), true
	case FeatureIsHoliday:
		return float64(r.IsHoliday), true
	default:
		for i, w := range WeatherFeatures {
			if w == c {
				return r.Weather[i], true
			}
		}
		for i, w := range WeekdayFeatures {
			if w == c {
				return float64(r.Weekday[i]), true
			}
		}
		return 0, false
	}
}

// SetCalendar derives year, month, day and the weekday one-hot from Date.
func (r *FeatureRow) SetCalendar() {
	r.Year, r.Month, r.Day = r.Date.Year(), int(r.Date.Month()), r.Date.Day()
	r.Weekday = [7]int{}
	// time.Weekday is Sunday-first.
	r.Weekday[(int(r.Date.Weekday())+6)%7] = 1
}
