package resolve

import (
	"errors"
	"reflect"
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

func TestResolve_HourlySingleInstance(t *testing.T) {
	b := model.ViewBinding{
		Name:        "source.users",
		URITemplate: "view://users?year={YEAR}&month={MONTH}&day={DAY}&hour={HOUR}",
		Direction:   model.DirectionIn,
	}
	rv, err := Resolve(b, mustTime(t, "2015-05-15T12:00:00Z"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{"view://users?year=2015&month=5&day=15&hour=12"}
	if !reflect.DeepEqual(rv.Addresses, want) {
		t.Errorf("Addresses = %v, want %v", rv.Addresses, want)
	}
	if rv.Overridden || rv.Binding != "source.users" || rv.Direction != model.DirectionIn {
		t.Errorf("unexpected resolved view %+v", rv)
	}
}

func TestResolve_MinuteWindow(t *testing.T) {
	b := model.ViewBinding{
		Name:        "events",
		URITemplate: "view://events?hour={HOUR}&minute={MINUTE}",
		Direction:   model.DirectionIn,
		WindowSize:  3,
	}
	rv, err := Resolve(b, mustTime(t, "2015-05-07T12:02:00Z"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{
		"view://events?hour=12&minute=0",
		"view://events?hour=12&minute=1",
		"view://events?hour=12&minute=2",
	}
	if !reflect.DeepEqual(rv.Addresses, want) {
		t.Errorf("Addresses = %v, want %v", rv.Addresses, want)
	}
}

func TestResolve_ExplicitUnit(t *testing.T) {
	b := model.ViewBinding{
		Name:        "daily",
		URITemplate: "view://agg?year={YEAR}&month={MONTH}&day={DAY}&hour={HOUR}",
		Direction:   model.DirectionIn,
		WindowSize:  2,
		Unit:        model.UnitDay,
	}
	rv, err := Resolve(b, mustTime(t, "2015-03-01T05:00:00Z"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{
		"view://agg?year=2015&month=2&day=28&hour=5",
		"view://agg?year=2015&month=3&day=1&hour=5",
	}
	if !reflect.DeepEqual(rv.Addresses, want) {
		t.Errorf("Addresses = %v, want %v", rv.Addresses, want)
	}
}

func TestResolve_DollarPlaceholders(t *testing.T) {
	b := model.ViewBinding{
		Name:        "legacy",
		URITemplate: "view://legacy?year=${YEAR}&hour={HOUR}",
		Direction:   model.DirectionOut,
	}
	rv, err := Resolve(b, mustTime(t, "2020-01-02T03:04:00Z"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := rv.Addresses[0]; got != "view://legacy?year=2020&hour=3" {
		t.Errorf("Addresses[0] = %q", got)
	}
}

func TestResolve_NoPlaceholders(t *testing.T) {
	b := model.ViewBinding{Name: "static", URITemplate: "view://lookup", Direction: model.DirectionIn}
	rv, err := Resolve(b, time.Now())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !rv.Single() || rv.Addresses[0] != "view://lookup" {
		t.Errorf("Addresses = %v", rv.Addresses)
	}
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name    string
		binding model.ViewBinding
	}{
		{"windowed output", model.ViewBinding{Name: "o", URITemplate: "view://o?h={HOUR}", Direction: model.DirectionOut, WindowSize: 2}},
		{"unknown placeholder", model.ViewBinding{Name: "u", URITemplate: "view://u?w={WEEK}", Direction: model.DirectionIn}},
		{"unterminated", model.ViewBinding{Name: "u", URITemplate: "view://u?h={HOUR", Direction: model.DirectionIn}},
		{"empty placeholder", model.ViewBinding{Name: "u", URITemplate: "view://u?h={}", Direction: model.DirectionIn}},
		{"nested", model.ViewBinding{Name: "u", URITemplate: "view://u?h={{HOUR}}", Direction: model.DirectionIn}},
		{"stray brace", model.ViewBinding{Name: "u", URITemplate: "view://u?h=HOUR}", Direction: model.DirectionIn}},
		{"unit not in template", model.ViewBinding{Name: "u", URITemplate: "view://u?h={HOUR}", Direction: model.DirectionIn, Unit: model.UnitMinute}},
		{"window without placeholder", model.ViewBinding{Name: "u", URITemplate: "view://u", Direction: model.DirectionIn, WindowSize: 3}},
		{"negative window", model.ViewBinding{Name: "u", URITemplate: "view://u?h={HOUR}", Direction: model.DirectionIn, WindowSize: -1}},
		{"missing name", model.ViewBinding{URITemplate: "view://u", Direction: model.DirectionIn}},
		{"bad direction", model.ViewBinding{Name: "u", URITemplate: "view://u", Direction: "sideways"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.binding, time.Now())
			if !errors.Is(err, model.ErrResolution) {
				t.Errorf("Resolve err = %v, want ErrResolution", err)
			}
			if verr := Validate(tt.binding); !errors.Is(verr, model.ErrResolution) {
				t.Errorf("Validate err = %v, want ErrResolution", verr)
			}
		})
	}
}

func TestResolveWithOverrides_OverrideWins(t *testing.T) {
	b := model.ViewBinding{
		Name:        "source.users",
		URITemplate: "view://users?hour={HOUR}",
		Direction:   model.DirectionIn,
		WindowSize:  4,
	}
	overrides := map[string]string{"source.users": "view://x?a=1, view://x?a=2"}
	rv, err := ResolveWithOverrides(b, mustTime(t, "2015-05-15T12:00:00Z"), overrides)
	if err != nil {
		t.Fatalf("ResolveWithOverrides: %v", err)
	}
	want := []string{"view://x?a=1", "view://x?a=2"}
	if !reflect.DeepEqual(rv.Addresses, want) || !rv.Overridden {
		t.Errorf("got %+v, want overridden %v", rv, want)
	}

	// Without a matching key the template is used.
	rv, err = ResolveWithOverrides(b, mustTime(t, "2015-05-15T12:00:00Z"), map[string]string{"other": "view://y"})
	if err != nil {
		t.Fatalf("ResolveWithOverrides: %v", err)
	}
	if rv.Overridden || len(rv.Addresses) != 4 {
		t.Errorf("got %+v, want 4 template addresses", rv)
	}
}

func TestOverride_Empty(t *testing.T) {
	if _, err := Override("x", model.DirectionIn, " , "); !errors.Is(err, model.ErrResolution) {
		t.Errorf("Override err = %v, want ErrResolution", err)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	b := model.ViewBinding{
		Name:        "w",
		URITemplate: "view://w?y={YEAR}&m={MONTH}&d={DAY}",
		Direction:   model.DirectionIn,
		WindowSize:  7,
	}
	nominal := mustTime(t, "2016-03-03T00:00:00Z")
	a, err := Resolve(b, nominal)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, _ := Resolve(b, nominal)
		if !reflect.DeepEqual(a, again) {
			t.Fatalf("Resolve not deterministic: %v vs %v", a, again)
		}
	}
	if a.Addresses[0] != "view://w?y=2016&m=2&d=26" {
		t.Errorf("oldest = %q, want leap-year Feb 26", a.Addresses[0])
	}
}

func TestTemplate_Units(t *testing.T) {
	tmpl, err := ParseTemplate("view://a?h={HOUR}&y={YEAR}&h2={HOUR}")
	if err != nil {
		t.Fatalf("ParseTemplate: %v", err)
	}
	if got := tmpl.Units(); !reflect.DeepEqual(got, []model.TimeUnit{model.UnitYear, model.UnitHour}) {
		t.Errorf("Units() = %v", got)
	}
	if tmpl.Finest() != model.UnitHour {
		t.Errorf("Finest() = %v, want hour", tmpl.Finest())
	}
	if tmpl.Uses(model.UnitDay) {
		t.Error("Uses(day) = true")
	}
	c := model.CalendarCoordinate{Year: 2001, Hour: 7}
	if got := tmpl.Expand(c); got != "view://a?h=7&y=2001&h2=7" {
		t.Errorf("Expand = %q", got)
	}
}

func TestSplitAddresses(t *testing.T) {
	got := SplitAddresses("a, b,,c ")
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("SplitAddresses = %v", got)
	}
}
