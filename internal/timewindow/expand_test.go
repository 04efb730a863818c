package timewindow

import (
	"errors"
	"testing"
	"time"

	"github.com/me/gokite/pkg/model"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts
}

func TestExpand_SingleInstance(t *testing.T) {
	nominal := mustTime(t, "2015-05-15T12:00:00Z")
	coords, err := Expand(nominal, 1, model.UnitHour)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := model.CalendarCoordinate{Year: 2015, Month: 5, Day: 15, Hour: 12, Minute: 0}
	if len(coords) != 1 || coords[0] != want {
		t.Errorf("Expand = %v, want [%v]", coords, want)
	}
}

func TestExpand_MinuteWindow(t *testing.T) {
	nominal := mustTime(t, "2015-05-07T12:02:00Z")
	coords, err := Expand(nominal, 3, model.UnitMinute)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	wantMinutes := []int{0, 1, 2}
	if len(coords) != 3 {
		t.Fatalf("len = %d, want 3", len(coords))
	}
	for i, c := range coords {
		if c.Hour != 12 || c.Minute != wantMinutes[i] {
			t.Errorf("coords[%d] = %v, want 12:%02d", i, c, wantMinutes[i])
		}
	}
}

func TestExpand_Properties(t *testing.T) {
	nominal := mustTime(t, "2016-03-01T00:30:00Z")
	for _, unit := range model.Units {
		for n := 1; n <= 30; n++ {
			coords, err := Expand(nominal, n, unit)
			if err != nil {
				t.Fatalf("Expand(%d, %v): %v", n, unit, err)
			}
			if len(coords) != n {
				t.Fatalf("Expand(%d, %v) returned %d coords", n, unit, len(coords))
			}
			if coords[n-1] != Coordinate(nominal) {
				t.Errorf("Expand(%d, %v) last = %v, want nominal %v", n, unit, coords[n-1], Coordinate(nominal))
			}
			for i := 1; i < n; i++ {
				if !isOneStep(coords[i-1], coords[i], unit) {
					t.Errorf("Expand(%d, %v): %v -> %v is not one %v step", n, unit, coords[i-1], coords[i], unit)
				}
			}
		}
	}
}

// isOneStep checks that b is exactly one unit after a.
func isOneStep(a, b model.CalendarCoordinate, unit model.TimeUnit) bool {
	ta := time.Date(a.Year, time.Month(a.Month), a.Day, a.Hour, a.Minute, 0, 0, time.UTC)
	tb := time.Date(b.Year, time.Month(b.Month), b.Day, b.Hour, b.Minute, 0, 0, time.UTC)
	switch unit {
	case model.UnitMonth:
		return (b.Year*12+b.Month)-(a.Year*12+a.Month) == 1
	case model.UnitYear:
		return b.Year-a.Year == 1
	default:
		return tb.Sub(ta) == unit.Duration()
	}
}

func TestExpand_CrossesBoundaries(t *testing.T) {
	nominal := mustTime(t, "2015-01-01T00:01:00Z")
	coords, err := Expand(nominal, 3, model.UnitMinute)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := model.CalendarCoordinate{Year: 2014, Month: 12, Day: 31, Hour: 23, Minute: 59}
	if coords[0] != want {
		t.Errorf("coords[0] = %v, want %v", coords[0], want)
	}
}

func TestExpand_MonthClampsDay(t *testing.T) {
	nominal := mustTime(t, "2015-03-31T06:00:00Z")
	coords, err := Expand(nominal, 2, model.UnitMonth)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := model.CalendarCoordinate{Year: 2015, Month: 2, Day: 28, Hour: 6}
	if coords[0] != want {
		t.Errorf("coords[0] = %v, want %v", coords[0], want)
	}
}

func TestExpand_ConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	nominal := time.Date(2015, 5, 15, 14, 0, 0, 0, loc)
	coords, err := Expand(nominal, 1, model.UnitHour)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if coords[0].Hour != 12 {
		t.Errorf("Hour = %d, want 12", coords[0].Hour)
	}
}

func TestExpand_InvalidWindow(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, err := Expand(time.Now(), n, model.UnitHour)
		if !errors.Is(err, model.ErrConfiguration) {
			t.Errorf("Expand(%d) err = %v, want ErrConfiguration", n, err)
		}
	}
	if _, err := Expand(time.Now(), 1, model.UnitNone); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("Expand(UnitNone) err = %v, want ErrConfiguration", err)
	}
}

func TestExpand_Deterministic(t *testing.T) {
	nominal := mustTime(t, "2015-05-07T12:02:00Z")
	a, _ := Expand(nominal, 5, model.UnitHour)
	b, _ := Expand(nominal, 5, model.UnitHour)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Expand not deterministic at %d: %v vs %v", i, a[i], b[i])
		}
	}
}
