// Package feature joins anchor rows with daily weather and holiday flags and derives
// the calendar features consumed by the regressors.
package feature

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tigerroll/ridership/internal/domain/model"
	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
)

const module = "feature"

// Options controls the builder.
type Options struct {
	// RequireWeatherCoverage fails the build when no anchor date has any weather.
	RequireWeatherCoverage bool
}

// Builder builds FeatureRows. It is deterministic: identical inputs give identical rows.
type Builder struct {
	opts Options
}

// NewBuilder creates a Builder.
func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts}
}

type anchor struct {
	date    time.Time
	line    string
	station string
}

// FromRoster builds one row per roster entry for the target date.
func (b *Builder) FromRoster(ctx context.Context, roster []model.RosterEntry, target time.Time, weather []model.DailyWeather, holidays []model.HolidayFlag) ([]model.FeatureRow, error) {
	if len(roster) == 0 {
		return nil, exception.NewDataError(module, "roster is empty: no (line, station) pairs in ridership history", nil)
	}
	d := model.DateOnly(target)
	anchors := make([]anchor, 0, len(roster))
	for _, e := range roster {
		anchors = append(anchors, anchor{date: d, line: e.LineID, station: e.StationName})
	}
	return b.build(ctx, anchors, weather, holidays)
}

// FromRidership builds one row per distinct (date, line, station) of records.
func (b *Builder) FromRidership(ctx context.Context, records []model.RidershipRecord, weather []model.DailyWeather, holidays []model.HolidayFlag) ([]model.FeatureRow, error) {
	seen := make(map[anchor]bool, len(records))
	anchors := make([]anchor, 0, len(records))
	for _, r := range records {
		a := anchor{date: model.DateOnly(r.Date), line: r.LineID, station: r.StationName}
		if !seen[a] {
			seen[a] = true
			anchors = append(anchors, a)
		}
	}
	if len(anchors) == 0 {
		return nil, exception.NewDataError(module, "no ridership anchor rows", nil)
	}
	return b.build(ctx, anchors, weather, holidays)
}

func (b *Builder) build(ctx context.Context, anchors []anchor, weather []model.DailyWeather, holidays []model.HolidayFlag) ([]model.FeatureRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Slice(anchors, func(i, j int) bool {
		a, c := anchors[i], anchors[j]
		if !a.date.Equal(c.date) {
			return a.date.Before(c.date)
		}
		if a.line != c.line {
			return a.line < c.line
		}
		return a.station < c.station
	})

	weatherByDate := make(map[time.Time]map[string]float64, len(weather))
	for _, w := range weather {
		weatherByDate[model.DateOnly(w.Date)] = w.Values
	}
	// A date is a holiday when any of its rows is flagged exactly "Y".
	holidayByDate := make(map[time.Time]bool, len(holidays))
	for _, h := range holidays {
		d := model.DateOnly(h.Date)
		holidayByDate[d] = holidayByDate[d] || h.IsHoliday()
	}

	if b.opts.RequireWeatherCoverage {
		covered := false
		for _, a := range anchors {
			if len(weatherByDate[a.date]) > 0 {
				covered = true
				break
			}
		}
		if !covered {
			return nil, exception.NewDataError(module, fmt.Sprintf("no weather for any anchor date (first %s); upstream acquisition may lag", anchors[0].date.Format(model.DateLayout)), nil)
		}
	}

	rows := make([]model.FeatureRow, 0, len(anchors))
	for _, a := range anchors {
		row := model.FeatureRow{Date: a.date, LineID: a.line, StationName: a.station}
		if holidayByDate[a.date] {
			row.IsHoliday = 1
		}
		values := weatherByDate[a.date]
		for i, name := range model.WeatherFeatures {
			row.Weather[i] = values[name]
		}
		row.SetCalendar()
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, exception.NewDataError(module, "feature frame is empty", nil)
	}
	return rows, nil
}
