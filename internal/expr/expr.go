// Package expr evaluates JavaScript expressions over dataset records.
//
// An expression is either a plain JavaScript expression such as
// `record.user_id % 2 == 1`, or a code block written as `${ ... }` whose
// body returns the result. While it runs, the record is bound to `record`
// and any globals passed to NewEvaluator are bound by name.
package expr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/me/gokite/pkg/model"
)

// Program is a compiled expression. It is safe to share between evaluators.
type Program struct {
	src  string
	prog *goja.Program
}

// String returns the expression source.
func (p *Program) String() string { return p.src }

// Compile parses src. A syntax error is a configuration error naming the
// setting or field the expression came from.
func Compile(name, src string) (*Program, error) {
	code := strings.TrimSpace(src)
	if code == "" {
		return nil, model.ConfigurationError(name, "empty expression")
	}

	var wrapped string
	if strings.HasPrefix(code, "${") && strings.HasSuffix(code, "}") {
		wrapped = fmt.Sprintf("(function() { %s })()", code[2:len(code)-1])
	} else {
		// Parenthesize so object literals are not read as blocks.
		wrapped = "(" + code + ")"
	}

	prog, err := goja.Compile(name, wrapped, false)
	if err != nil {
		return nil, model.ConfigurationError(name, "invalid expression %q: %v", src, err)
	}
	return &Program{src: src, prog: prog}, nil
}

// Evaluator runs programs on a single JavaScript runtime. It is not safe for
// concurrent use; create one per goroutine.
type Evaluator struct {
	vm *goja.Runtime
}

// NewEvaluator creates an evaluator with globals bound by name.
func NewEvaluator(globals map[string]any) (*Evaluator, error) {
	vm := goja.New()
	for name, v := range globals {
		if err := vm.Set(name, v); err != nil {
			return nil, fmt.Errorf("bind %s: %w", name, err)
		}
	}
	return &Evaluator{vm: vm}, nil
}

// run evaluates p with rec bound to `record`. Cancelling ctx interrupts a
// running script.
func (e *Evaluator) run(ctx context.Context, p *Program, rec model.Record) (goja.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.vm.Set("record", map[string]any(rec)); err != nil {
		return nil, fmt.Errorf("bind record: %w", err)
	}

	stop := context.AfterFunc(ctx, func() { e.vm.Interrupt(ctx.Err()) })
	defer func() {
		if !stop() {
			e.vm.ClearInterrupt()
		}
	}()

	val, err := e.vm.RunProgram(p.prog)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			if cause, ok := interrupted.Value().(error); ok {
				return nil, cause
			}
		}
		return nil, fmt.Errorf("expression %q: %w", p.src, err)
	}
	return val, nil
}

// Eval returns the exported value of p for rec.
func (e *Evaluator) Eval(ctx context.Context, p *Program, rec model.Record) (any, error) {
	val, err := e.run(ctx, p, rec)
	if err != nil {
		return nil, err
	}
	if goja.IsUndefined(val) {
		return nil, fmt.Errorf("expression %q returned undefined", p.src)
	}
	return val.Export(), nil
}

// Test reports whether p is truthy for rec.
func (e *Evaluator) Test(ctx context.Context, p *Program, rec model.Record) (bool, error) {
	val, err := e.run(ctx, p, rec)
	if err != nil {
		return false, err
	}
	return val.ToBoolean(), nil
}

// Map evaluates p for rec and returns the resulting object as a record.
func (e *Evaluator) Map(ctx context.Context, p *Program, rec model.Record) (model.Record, error) {
	v, err := e.Eval(ctx, p, rec)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expression %q returned %T, want an object", p.src, v)
	}
	return obj, nil
}
