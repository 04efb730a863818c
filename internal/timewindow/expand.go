// Package timewindow turns a nominal time and a window size into the ordered
// calendar coordinates a windowed view covers.
package timewindow

import (
	"time"

	"github.com/me/gokite/pkg/model"
)

// Coordinate returns the UTC calendar coordinate of t.
func Coordinate(t time.Time) model.CalendarCoordinate {
	t = t.UTC()
	return model.CalendarCoordinate{
		Year:   t.Year(),
		Month:  int(t.Month()),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
	}
}

// Expand returns windowSize coordinates ending at nominal, oldest first, each
// one unit before the next. The last element is always Coordinate(nominal).
func Expand(nominal time.Time, windowSize int, unit model.TimeUnit) ([]model.CalendarCoordinate, error) {
	if windowSize < 1 {
		return nil, model.ConfigurationError("expand window", "window size must be >= 1, got %d", windowSize)
	}
	if !unit.Valid() {
		return nil, model.ConfigurationError("expand window", "invalid step unit %v", unit)
	}

	nominal = nominal.UTC()
	coords := make([]model.CalendarCoordinate, windowSize)
	for i := 0; i < windowSize; i++ {
		back := windowSize - 1 - i
		coords[i] = Coordinate(stepBack(nominal, unit, back))
	}
	return coords, nil
}

// stepBack moves t back n units. Month and year steps keep the day of month,
// clamped to the length of the target month.
func stepBack(t time.Time, unit model.TimeUnit, n int) time.Time {
	if n == 0 {
		return t
	}
	switch unit {
	case model.UnitMonth:
		return shiftMonths(t, -n)
	case model.UnitYear:
		return shiftMonths(t, -12*n)
	default:
		return t.Add(-time.Duration(n) * unit.Duration())
	}
}

func shiftMonths(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	target := first.AddDate(0, months, 0)
	day := t.Day()
	if last := daysIn(target.Year(), target.Month()); day > last {
		day = last
	}
	return target.AddDate(0, 0, day-1)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
