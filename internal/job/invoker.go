package job

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/me/gokite/internal/engine"
	"github.com/me/gokite/internal/metrics"
	"github.com/me/gokite/internal/resolve"
	"github.com/me/gokite/pkg/model"
)

// BindingSource supplies the view bindings scheduled for a job.
type BindingSource interface {
	Binding(job, name string) (model.ViewBinding, bool)
}

// StreamSource supplies live streams for stream slots.
type StreamSource interface {
	Stream(name string) (model.Stream, error)
}

// EngineStreams is a StreamSource backed by the streaming handle of the
// shared engine context.
type EngineStreams struct {
	Registry *engine.Registry
	Settings engine.Settings
}

// Stream returns the named stream from the shared streaming handle.
func (s EngineStreams) Stream(name string) (model.Stream, error) {
	reg := s.Registry
	if reg == nil {
		reg = engine.Shared()
	}
	st, err := reg.StreamingContext(s.Settings)
	if err != nil {
		return nil, err
	}
	return st.Stream(name)
}

// Invoker runs registered jobs for a nominal time.
type Invoker struct {
	jobs     *Registry
	bindings BindingSource
	streams  StreamSource
	engine   *engine.Registry
	settings engine.Settings
	logger   *slog.Logger
	metrics  *metrics.Collector
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithBindings sets where scheduled bindings come from.
func WithBindings(b BindingSource) InvokerOption {
	return func(inv *Invoker) { inv.bindings = b }
}

// WithStreamSource sets the fallback source for stream slots.
func WithStreamSource(s StreamSource) InvokerOption {
	return func(inv *Invoker) { inv.streams = s }
}

// WithEngine sets the engine registry handed to jobs.
func WithEngine(r *engine.Registry) InvokerOption {
	return func(inv *Invoker) { inv.engine = r }
}

// WithSettings sets the application settings handed to jobs.
func WithSettings(s engine.Settings) InvokerOption {
	return func(inv *Invoker) { inv.settings = s.Clone() }
}

// WithLogger sets the invoker logger.
func WithLogger(l *slog.Logger) InvokerOption {
	return func(inv *Invoker) {
		if l != nil {
			inv.logger = l
		}
	}
}

// WithMetrics records run outcomes on c.
func WithMetrics(c *metrics.Collector) InvokerOption {
	return func(inv *Invoker) { inv.metrics = c }
}

// NewInvoker creates an invoker over jobs.
func NewInvoker(jobs *Registry, opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		jobs:     jobs,
		settings: engine.Settings{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	inv.logger = inv.logger.With("component", "invoker")
	return inv
}

// RunOption adjusts a single Run call.
type RunOption func(*runOptions)

type runOptions struct {
	streams map[string]model.Stream
}

// WithStreams supplies live streams for stream slots, keyed by binding name.
// They take precedence over the invoker's StreamSource.
func WithStreams(streams map[string]model.Stream) RunOption {
	return func(o *runOptions) { o.streams = streams }
}

// Run executes the named job once for nominal. Every declared slot is bound
// before the job body runs: views are resolved from the scheduled binding,
// unless overrides holds an address list for the binding name. A failure
// inside the job is returned as a JobExecutionError wrapping the cause.
func (inv *Invoker) Run(ctx context.Context, name string, nominal time.Time, overrides map[string]string, opts ...RunOption) error {
	var ro runOptions
	for _, opt := range opts {
		opt(&ro)
	}

	runID := "run_" + uuid.New().String()
	nominal = nominal.UTC()
	logger := inv.logger.With("run_id", runID, "job", name)

	start := time.Now()
	err := inv.run(ctx, name, nominal, overrides, ro, Env{
		RunID:       runID,
		Job:         name,
		NominalTime: nominal,
		Settings:    inv.settings.Clone(),
		Logger:      logger,
		Engine:      inv.engine,
	})
	elapsed := time.Since(start)
	inv.metrics.RecordJob(name, elapsed, err)

	if err != nil {
		logger.Error("job failed", "nominal_time", nominal, "duration", elapsed, "error", err)
		return err
	}
	logger.Info("job finished", "nominal_time", nominal, "duration", elapsed)
	return nil
}

func (inv *Invoker) run(ctx context.Context, name string, nominal time.Time, overrides map[string]string, ro runOptions, env Env) error {
	j, err := inv.jobs.New(name)
	if err != nil {
		return err
	}
	m, err := Describe(j)
	if err != nil {
		return err
	}

	argPtr := reflect.New(m.ArgType)
	args := argPtr.Elem()
	for i, slot := range m.Slots {
		v, err := inv.bind(name, slot, nominal, overrides, ro)
		if err != nil {
			return err
		}
		args.FieldByIndex(m.fields[i]).Set(v)
		env.Logger.Debug("slot bound", "binding", slot.BindingName, "kind", slot.Kind)
	}

	if b, ok := j.(envBinder); ok {
		b.bindEnv(env)
	}

	arg := args
	if m.ArgPtr {
		arg = argPtr
	}
	env.Logger.Info("job started", "nominal_time", nominal, "slots", len(m.Slots))
	if err := call(ctx, j, arg); err != nil {
		return model.JobExecutionError(name, err)
	}
	return nil
}

// bind produces the value for one slot.
func (inv *Invoker) bind(jobName string, slot model.JobParameterSlot, nominal time.Time, overrides map[string]string, ro runOptions) (reflect.Value, error) {
	op := fmt.Sprintf("job %s slot %s", jobName, slot.Field)

	if slot.Kind == model.SlotStreamHandle {
		st, err := inv.stream(slot.BindingName, ro)
		if err != nil {
			return reflect.Value{}, model.BindingError(op, "stream %q: %v", slot.BindingName, err)
		}
		if st == nil {
			return reflect.Value{}, model.BindingError(op, "no live stream for %q", slot.BindingName)
		}
		return reflect.ValueOf(&st).Elem(), nil
	}

	var (
		binding   model.ViewBinding
		scheduled bool
	)
	if inv.bindings != nil {
		binding, scheduled = inv.bindings.Binding(jobName, slot.BindingName)
	}
	override, overridden := overrides[slot.BindingName]

	var (
		rv  model.ResolvedView
		err error
	)
	switch {
	case scheduled && binding.Direction != slot.Direction:
		return reflect.Value{}, model.BindingError(op, "binding %q is %s but the slot is %s",
			slot.BindingName, binding.Direction, slot.Direction)
	case overridden:
		rv, err = resolve.Override(slot.BindingName, slot.Direction, override)
	case scheduled:
		rv, err = resolve.Resolve(binding, nominal)
	default:
		return reflect.Value{}, model.BindingError(op, "no binding or override for %q", slot.BindingName)
	}
	if err != nil {
		return reflect.Value{}, err
	}
	inv.metrics.RecordViews(string(slot.Direction), len(rv.Addresses))

	views := make([]model.View, len(rv.Addresses))
	for i, addr := range rv.Addresses {
		views[i] = model.View{
			Binding:    slot.BindingName,
			URI:        addr,
			Direction:  slot.Direction,
			RecordType: slot.RecordType,
		}
	}

	if slot.Kind == model.SlotViewList {
		return reflect.ValueOf(views), nil
	}
	if len(views) != 1 {
		return reflect.Value{}, model.BindingError(op, "single view slot got %d addresses for %q", len(views), slot.BindingName)
	}
	return reflect.ValueOf(views[0]), nil
}

func (inv *Invoker) stream(name string, ro runOptions) (model.Stream, error) {
	if st, ok := ro.streams[name]; ok {
		return st, nil
	}
	if inv.streams == nil {
		return nil, nil
	}
	return inv.streams.Stream(name)
}

// call invokes j.Run(ctx, arg), turning a panic into an error.
func call(ctx context.Context, j any, arg reflect.Value) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	out := reflect.ValueOf(j).MethodByName("Run").Call([]reflect.Value{reflect.ValueOf(ctx), arg})
	if e, _ := out[0].Interface().(error); e != nil {
		return e
	}
	return nil
}
