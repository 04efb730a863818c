package resolve

import (
	"strconv"
	"strings"

	"github.com/me/gokite/pkg/model"
)

// segment is either literal text or a single placeholder.
type segment struct {
	literal string
	unit    model.TimeUnit // UnitNone for literal segments
}

// Template is a parsed view URI template such as
// "view://users?year={YEAR}&month={MONTH}".
type Template struct {
	raw  string
	segs []segment
}

// ParseTemplate parses a URI template. Placeholders are {YEAR}, {MONTH},
// {DAY}, {HOUR} and {MINUTE}; the ${NAME} spelling is accepted as well.
func ParseTemplate(raw string) (*Template, error) {
	t := &Template{raw: raw}
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			t.segs = append(t.segs, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '$' && i+1 < len(raw) && raw[i+1] == '{':
			// ${NAME}: drop the dollar, the brace is handled next iteration.
			continue
		case c == '{':
			end := strings.IndexByte(raw[i+1:], '}')
			if end < 0 {
				return nil, model.ResolutionError("parse template", "unterminated placeholder at offset %d in %q", i, raw)
			}
			name := raw[i+1 : i+1+end]
			if strings.IndexByte(name, '{') >= 0 {
				return nil, model.ResolutionError("parse template", "nested placeholder at offset %d in %q", i, raw)
			}
			if name == "" {
				return nil, model.ResolutionError("parse template", "empty placeholder at offset %d in %q", i, raw)
			}
			unit, ok := model.UnitForPlaceholder(name)
			if !ok {
				return nil, model.ResolutionError("parse template", "unknown placeholder {%s} in %q", name, raw)
			}
			flush()
			t.segs = append(t.segs, segment{unit: unit})
			i += end + 1
		case c == '}':
			return nil, model.ResolutionError("parse template", "unbalanced '}' at offset %d in %q", i, raw)
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return t, nil
}

// String returns the template as written.
func (t *Template) String() string {
	return t.raw
}

// Uses reports whether the template references unit u.
func (t *Template) Uses(u model.TimeUnit) bool {
	for _, s := range t.segs {
		if s.unit == u && u != model.UnitNone {
			return true
		}
	}
	return false
}

// Units returns the placeholders referenced, coarsest first, without duplicates.
func (t *Template) Units() []model.TimeUnit {
	var units []model.TimeUnit
	for _, u := range model.Units {
		if t.Uses(u) {
			units = append(units, u)
		}
	}
	return units
}

// Finest returns the finest unit referenced, or UnitNone for a template
// without placeholders.
func (t *Template) Finest() model.TimeUnit {
	finest := model.UnitNone
	for _, s := range t.segs {
		if s.unit > finest {
			finest = s.unit
		}
	}
	return finest
}

// Expand substitutes coordinate values without zero padding.
func (t *Template) Expand(c model.CalendarCoordinate) string {
	var b strings.Builder
	b.Grow(len(t.raw))
	for _, s := range t.segs {
		if s.unit == model.UnitNone {
			b.WriteString(s.literal)
			continue
		}
		b.WriteString(strconv.Itoa(c.Value(s.unit)))
	}
	return b.String()
}
