// Package weather pivots hourly observations into one mean value per date and category.
package weather

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/tigerroll/ridership/internal/domain/model"
)

// categoryNames maps normalized upstream labels to canonical categories.
// Both the Korean labels and the API codes of the short-term observation service are known.
var categoryNames = map[string]string{
	"기온":   model.FeatureTemperature,
	"강수":   model.FeaturePrecipitationAmount,
	"강수량":  model.FeaturePrecipitationAmount,
	"강수형태": model.FeaturePrecipitationType,
	"습도":   model.FeatureHumidity,
	"풍속":   model.FeatureWindSpeed,
	"풍향":   "wind_direction",
	"T1H":  model.FeatureTemperature,
	"RN1":  model.FeaturePrecipitationAmount,
	"PTY":  model.FeaturePrecipitationType,
	"REH":  model.FeatureHumidity,
	"WSD":  model.FeatureWindSpeed,
	"VEC":  "wind_direction",
}

// NormalizeCategory strips all whitespace from label and maps it to its canonical name.
// Unknown labels keep their stripped spelling.
func NormalizeCategory(label string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, label)
	if c, ok := categoryNames[stripped]; ok {
		return c
	}
	return stripped
}

type sum struct {
	total float64
	n     int
}

// Aggregate returns one DailyWeather per date, sorted by date. Missing values are excluded
// from the mean; a category whose values are all missing is absent from that date.
func Aggregate(observations []model.WeatherObservation) []model.DailyWeather {
	byDate := make(map[time.Time]map[string]*sum)
	for _, o := range observations {
		d := model.DateOnly(o.Date)
		cats, ok := byDate[d]
		if !ok {
			cats = make(map[string]*sum)
			byDate[d] = cats
		}
		if o.Missing {
			continue
		}
		c := NormalizeCategory(o.Category)
		s, ok := cats[c]
		if !ok {
			s = &sum{}
			cats[c] = s
		}
		s.total += o.Value
		s.n++
	}

	out := make([]model.DailyWeather, 0, len(byDate))
	for d, cats := range byDate {
		dw := model.DailyWeather{Date: d, Values: make(map[string]float64, len(cats))}
		for c, s := range cats {
			dw.Values[c] = s.total / float64(s.n)
		}
		out = append(out, dw)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
