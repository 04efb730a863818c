package schedule

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/me/gokite/internal/config"
	"github.com/me/gokite/internal/job"
	"github.com/me/gokite/pkg/model"
)

// Application is a named set of schedules sharing one set of settings.
type Application struct {
	Name      string
	Settings  map[string]string
	Schedules []*Schedule
}

type appFile struct {
	Name      string         `yaml:"name"`
	Settings  yaml.Node      `yaml:"settings"`
	Schedules []scheduleFile `yaml:"schedules"`
}

type scheduleFile struct {
	Job       string     `yaml:"job"`
	Frequency string     `yaml:"frequency"`
	Views     []viewFile `yaml:"views"`
}

type viewFile struct {
	Name      string `yaml:"name"`
	URI       string `yaml:"uri"`
	Direction string `yaml:"direction"`
	Window    int    `yaml:"window"`
	Unit      string `yaml:"unit"`
}

// LoadFile reads an application definition from a YAML file.
func LoadFile(path string) (*Application, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.ConfigurationError("load application", "%v", err)
	}
	app, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return app, nil
}

// Parse decodes an application definition:
//
//	name: users
//	settings:
//	  engine.local.parallelism: 4
//	schedules:
//	  - job: examples.keep-odd-users
//	    frequency: "0 * * * *"
//	    views:
//	      - {name: source.users, uri: "view://users?hour={HOUR}", direction: in}
func Parse(data []byte) (*Application, error) {
	var f appFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, model.ConfigurationError("parse application", "%v", err)
	}
	settings, err := config.FlattenNode(&f.Settings)
	if err != nil {
		return nil, model.ConfigurationError("parse application", "settings: %v", err)
	}

	app := &Application{Name: f.Name, Settings: settings}
	seen := make(map[string]bool)
	for i, sf := range f.Schedules {
		if seen[sf.Job] {
			return nil, model.ConfigurationError("parse application", "job %q is scheduled twice", sf.Job)
		}
		seen[sf.Job] = true

		b := NewBuilder(sf.Job).Frequency(sf.Frequency)
		for _, vf := range sf.Views {
			dir, err := model.ParseDirection(vf.Direction)
			if err != nil {
				return nil, model.ConfigurationError("parse application", "schedule %d view %q: %v", i, vf.Name, err)
			}
			unit, err := model.ParseTimeUnit(vf.Unit)
			if err != nil {
				return nil, model.ConfigurationError("parse application", "schedule %d view %q: %v", i, vf.Name, err)
			}
			b.WithView(model.ViewBinding{
				Name:        vf.Name,
				URITemplate: vf.URI,
				Direction:   dir,
				WindowSize:  vf.Window,
				Unit:        unit,
			})
		}
		s, err := b.Build()
		if err != nil {
			return nil, err
		}
		app.Schedules = append(app.Schedules, s)
	}
	return app, nil
}

// Schedule returns the schedule of job.
func (a *Application) Schedule(job string) (*Schedule, bool) {
	for _, s := range a.Schedules {
		if s.Job == job {
			return s, true
		}
	}
	return nil, false
}

// Binding implements job.BindingSource.
func (a *Application) Binding(jobName, name string) (model.ViewBinding, bool) {
	s, ok := a.Schedule(jobName)
	if !ok {
		return model.ViewBinding{}, false
	}
	return s.View(name)
}

// Jobs returns the scheduled job names, sorted.
func (a *Application) Jobs() []string {
	names := make([]string, 0, len(a.Schedules))
	for _, s := range a.Schedules {
		names = append(names, s.Job)
	}
	sort.Strings(names)
	return names
}

// Validate checks every schedule against the registered jobs: the job
// exists, each view slot has a binding in the same direction, and each
// binding is consumed by a slot.
func (a *Application) Validate(jobs *job.Registry) error {
	for _, s := range a.Schedules {
		op := "schedule " + s.Job
		m, err := jobs.Describe(s.Job)
		if err != nil {
			return err
		}
		for _, slot := range m.Slots {
			if slot.Kind == model.SlotStreamHandle {
				continue
			}
			v, ok := s.View(slot.BindingName)
			if !ok {
				return model.BindingError(op, "slot %s has no view %q", slot.Field, slot.BindingName)
			}
			if v.Direction != slot.Direction {
				return model.BindingError(op, "view %q is %s but slot %s is %s", v.Name, v.Direction, slot.Field, slot.Direction)
			}
			if slot.Kind == model.SlotSingleView && v.Window() > 1 {
				return model.BindingError(op, "slot %s takes a single view but %q has window %d", slot.Field, v.Name, v.Window())
			}
		}
		for _, v := range s.Views {
			if _, ok := m.Slot(v.Name); !ok {
				return model.BindingError(op, "view %q is not used by the job", v.Name)
			}
		}
	}
	return nil
}
