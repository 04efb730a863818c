// Package job describes and runs jobs: user types whose Run method declares
// view inputs and outputs through struct tags on its argument.
//
// A job looks like
//
//	type CopyUsers struct{ job.Base }
//
//	type CopyUsersArgs struct {
//		Source model.View `view:"source.users,in" record:"User"`
//		Target model.View `view:"target.users,out" record:"User"`
//	}
//
//	func (j *CopyUsers) Run(ctx context.Context, args CopyUsersArgs) error
//
// Field types pick the slot kind: model.View for one address, []model.View
// for a whole window (oldest first), model.Stream for a live stream input.
package job

import (
	"log/slog"
	"time"

	"github.com/me/gokite/internal/engine"
)

// Env is what a running job knows about its invocation.
type Env struct {
	RunID       string
	Job         string
	NominalTime time.Time
	Settings    engine.Settings
	Logger      *slog.Logger
	// Engine is the registry the job takes its shared context from. Nil
	// means engine.Shared().
	Engine *engine.Registry
}

// Base is embedded by jobs that need their Env or the shared engine.
type Base struct {
	env Env
}

type envBinder interface {
	bindEnv(Env)
}

func (b *Base) bindEnv(env Env) { b.env = env }

// Env returns the invocation environment.
func (b *Base) Env() Env { return b.env }

// Logger returns the run logger, never nil.
func (b *Base) Logger() *slog.Logger {
	if b.env.Logger == nil {
		return slog.Default()
	}
	return b.env.Logger
}

// NominalTime returns the UTC nominal time of the run.
func (b *Base) NominalTime() time.Time { return b.env.NominalTime }

// Settings returns the application settings of the run.
func (b *Base) Settings() engine.Settings { return b.env.Settings }

func (b *Base) registry() *engine.Registry {
	if b.env.Engine != nil {
		return b.env.Engine
	}
	return engine.Shared()
}

// Engine returns the shared execution context for the run's settings.
func (b *Base) Engine() (*engine.Context, error) {
	return b.registry().Context(b.env.Settings)
}

// Streaming returns the shared streaming handle for the run's settings.
func (b *Base) Streaming() (engine.Streaming, error) {
	return b.registry().StreamingContext(b.env.Settings)
}
