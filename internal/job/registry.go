package job

import (
	"log/slog"
	"sort"

	"github.com/me/gokite/pkg/model"
)

// Factory constructs a fresh job value, normally a pointer to a struct.
type Factory func() any

// Registry maps job names to their factories.
// Registration happens at startup before concurrent access, so no mutex is needed.
type Registry struct {
	factories map[string]Factory
	logger    *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		logger:    logger.With("component", "job-registry"),
	}
}

// Register adds a job under name. The job's Run method is described
// immediately, so a malformed declaration fails at startup.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" {
		return model.ConfigurationError("register job", "name is required")
	}
	if _, dup := r.factories[name]; dup {
		return model.ConfigurationError("register job", "job %q is already registered", name)
	}
	if _, err := Describe(f()); err != nil {
		return err
	}
	r.factories[name] = f
	r.logger.Debug("job registered", "job", name)
	return nil
}

// MustRegister is Register that panics on error, for init-time wiring.
func (r *Registry) MustRegister(name string, f Factory) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

// New constructs the named job.
func (r *Registry) New(name string) (any, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, model.ConfigurationError("job "+name, "no job registered under this name")
	}
	return f(), nil
}

// Describe returns the slot table of the named job.
func (r *Registry) Describe(name string) (*Method, error) {
	j, err := r.New(name)
	if err != nil {
		return nil, err
	}
	return Describe(j)
}

// Names returns the registered job names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
