// Package schedule defines when jobs run and which views they read and
// write, and groups schedules into applications.
package schedule

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/me/gokite/internal/resolve"
	"github.com/me/gokite/pkg/model"
)

// Parser accepts standard five-field cron expressions and descriptors such
// as @hourly. Expressions are evaluated in UTC.
var Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Schedule binds a job to a cron frequency and its views.
type Schedule struct {
	Job       string
	Frequency string
	Views     []model.ViewBinding

	cron cron.Schedule
}

// View returns the binding named name.
func (s *Schedule) View(name string) (model.ViewBinding, bool) {
	for _, v := range s.Views {
		if v.Name == name {
			return v, true
		}
	}
	return model.ViewBinding{}, false
}

// Next returns the first firing strictly after t, in UTC.
func (s *Schedule) Next(t time.Time) time.Time {
	return s.cron.Next(t.UTC())
}

// Firings returns every firing in [from, to], oldest first.
func (s *Schedule) Firings(from, to time.Time) []time.Time {
	var out []time.Time
	// cron schedules have minute resolution; step back one second so a
	// firing exactly at from is included.
	for t := s.Next(from.Add(-time.Second)); !t.IsZero() && !t.After(to.UTC()); t = s.Next(t) {
		out = append(out, t)
	}
	return out
}

// Builder assembles a validated Schedule.
type Builder struct {
	s Schedule
}

// NewBuilder starts a schedule for job.
func NewBuilder(job string) *Builder {
	return &Builder{s: Schedule{Job: job}}
}

// Frequency sets the cron expression, e.g. "0 * * * *".
func (b *Builder) Frequency(expr string) *Builder {
	b.s.Frequency = expr
	return b
}

// Input adds an input view read over a trailing window of instances.
func (b *Builder) Input(name, uriTemplate string, window int) *Builder {
	return b.WithView(model.ViewBinding{
		Name:        name,
		URITemplate: uriTemplate,
		Direction:   model.DirectionIn,
		WindowSize:  window,
	})
}

// Output adds an output view.
func (b *Builder) Output(name, uriTemplate string) *Builder {
	return b.WithView(model.ViewBinding{
		Name:        name,
		URITemplate: uriTemplate,
		Direction:   model.DirectionOut,
	})
}

// WithView adds a fully specified binding.
func (b *Builder) WithView(v model.ViewBinding) *Builder {
	b.s.Views = append(b.s.Views, v)
	return b
}

// Build validates and returns the schedule. Binding definition problems,
// such as a windowed output, are reported as BindingError.
func (b *Builder) Build() (*Schedule, error) {
	s := b.s
	op := "schedule " + s.Job
	if s.Job == "" {
		return nil, model.ConfigurationError("schedule", "job is required")
	}
	if s.Frequency == "" {
		return nil, model.ConfigurationError(op, "frequency is required")
	}
	c, err := Parser.Parse(s.Frequency)
	if err != nil {
		return nil, model.ConfigurationError(op, "invalid frequency %q: %v", s.Frequency, err)
	}
	s.cron = c

	seen := make(map[string]bool, len(s.Views))
	for _, v := range s.Views {
		if seen[v.Name] {
			return nil, model.BindingError(op, "view %q declared twice", v.Name)
		}
		seen[v.Name] = true
		if err := resolve.Validate(v); err != nil {
			return nil, &model.Error{Kind: model.ErrBinding, Op: op, Msg: "view " + v.Name, Err: err}
		}
	}
	s.Views = append([]model.ViewBinding(nil), s.Views...)
	return &s, nil
}
