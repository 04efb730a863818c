// Package resolve expands view binding declarations into concrete,
// time-anchored view addresses.
package resolve

import (
	"strings"
	"time"

	"github.com/me/gokite/internal/timewindow"
	"github.com/me/gokite/pkg/model"
)

// StepUnit returns the unit a binding's window steps by: the explicit Unit
// when set, otherwise the finest placeholder in the template.
func StepUnit(b model.ViewBinding, t *Template) (model.TimeUnit, error) {
	if b.Unit != model.UnitNone {
		if !b.Unit.Valid() {
			return model.UnitNone, model.ResolutionError("binding "+b.Name, "invalid window unit %v", b.Unit)
		}
		if !t.Uses(b.Unit) {
			return model.UnitNone, model.ResolutionError("binding "+b.Name,
				"window unit %v is not a placeholder of %q", b.Unit, t.String())
		}
		return b.Unit, nil
	}
	return t.Finest(), nil
}

// Validate checks a binding definition without resolving it.
func Validate(b model.ViewBinding) error {
	_, _, err := check(b)
	return err
}

func check(b model.ViewBinding) (*Template, model.TimeUnit, error) {
	op := "binding " + b.Name
	if strings.TrimSpace(b.Name) == "" {
		return nil, model.UnitNone, model.ResolutionError("binding", "name is required")
	}
	switch b.Direction {
	case model.DirectionIn, model.DirectionOut:
	default:
		return nil, model.UnitNone, model.ResolutionError(op, "unknown direction %q", b.Direction)
	}
	if b.WindowSize < 0 {
		return nil, model.UnitNone, model.ResolutionError(op, "window size must be >= 1, got %d", b.WindowSize)
	}
	if b.Direction == model.DirectionOut && b.Window() > 1 {
		return nil, model.UnitNone, model.ResolutionError(op, "output bindings cannot be windowed (window %d)", b.Window())
	}
	t, err := ParseTemplate(b.URITemplate)
	if err != nil {
		return nil, model.UnitNone, err
	}
	unit, err := StepUnit(b, t)
	if err != nil {
		return nil, model.UnitNone, err
	}
	if b.Window() > 1 && unit == model.UnitNone {
		return nil, model.UnitNone, model.ResolutionError(op, "windowed binding needs a time placeholder in %q", b.URITemplate)
	}
	return t, unit, nil
}

// Resolve expands b for the nominal time. Addresses are ordered oldest first.
func Resolve(b model.ViewBinding, nominal time.Time) (model.ResolvedView, error) {
	t, unit, err := check(b)
	if err != nil {
		return model.ResolvedView{}, err
	}

	rv := model.ResolvedView{Binding: b.Name, Direction: b.Direction}

	// A template without placeholders names the same view at every time.
	if unit == model.UnitNone {
		rv.Addresses = []string{t.Expand(model.CalendarCoordinate{})}
		return rv, nil
	}

	coords, err := timewindow.Expand(nominal, b.Window(), unit)
	if err != nil {
		return model.ResolvedView{}, err
	}
	rv.Addresses = make([]string, len(coords))
	for i, c := range coords {
		rv.Addresses[i] = t.Expand(c)
	}
	return rv, nil
}

// ResolveWithOverrides resolves b, except that an override registered under
// b.Name replaces template expansion entirely. An override value may list
// several addresses separated by commas, oldest first.
func ResolveWithOverrides(b model.ViewBinding, nominal time.Time, overrides map[string]string) (model.ResolvedView, error) {
	if v, ok := overrides[b.Name]; ok {
		return Override(b.Name, b.Direction, v)
	}
	return Resolve(b, nominal)
}

// Override builds a resolved view from an externally supplied address list.
func Override(name string, dir model.Direction, value string) (model.ResolvedView, error) {
	addrs := SplitAddresses(value)
	if len(addrs) == 0 {
		return model.ResolvedView{}, model.ResolutionError("override "+name, "empty address")
	}
	return model.ResolvedView{
		Binding:    name,
		Direction:  dir,
		Addresses:  addrs,
		Overridden: true,
	}, nil
}

// SplitAddresses splits a comma separated address list, dropping blanks.
func SplitAddresses(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
