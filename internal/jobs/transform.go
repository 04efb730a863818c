package jobs

import (
	"context"
	"time"

	"github.com/me/gokite/internal/dataset"
	"github.com/me/gokite/internal/expr"
	"github.com/me/gokite/internal/job"
	"github.com/me/gokite/pkg/model"
)

// Settings read by Transformer.
const (
	SettingTransformFilter = "transform.filter"
	SettingTransformMap    = "transform.map"
)

// Transformer filters and reshapes records with JavaScript expressions.
// transform.filter keeps the records it is truthy for; transform.map
// replaces each kept record with the object it returns. Either may be
// omitted. Every input instance is processed as one parallel partition and
// the results are written to Target in input order.
type Transformer struct {
	job.Base
	store dataset.Store
}

// TransformArgs are Transformer's views.
type TransformArgs struct {
	Source []model.View `view:"transform.source,in"`
	Target model.View   `view:"transform.target,out"`
}

// Run applies the configured expressions to Source and writes Target.
func (j *Transformer) Run(ctx context.Context, args TransformArgs) error {
	settings := j.Settings()
	var filter, mapper *expr.Program
	if src, ok := settings[SettingTransformFilter]; ok {
		p, err := expr.Compile(SettingTransformFilter, src)
		if err != nil {
			return err
		}
		filter = p
	}
	if src, ok := settings[SettingTransformMap]; ok {
		p, err := expr.Compile(SettingTransformMap, src)
		if err != nil {
			return err
		}
		mapper = p
	}

	ec, err := j.Engine()
	if err != nil {
		return err
	}

	globals := map[string]any{
		"nominal":  j.NominalTime().Format(time.RFC3339),
		"settings": map[string]string(settings),
	}
	results := make([][]model.Record, len(args.Source))
	read := make([]int, len(args.Source))
	err = ec.Batch().Parallel(ctx, len(args.Source), func(ctx context.Context, i int) error {
		in, err := j.store.Read(ctx, args.Source[i].URI)
		if err != nil {
			return err
		}
		read[i] = len(in)
		eval, err := expr.NewEvaluator(globals)
		if err != nil {
			return err
		}
		for _, rec := range in {
			if filter != nil {
				keep, err := eval.Test(ctx, filter, rec)
				if err != nil {
					return err
				}
				if !keep {
					continue
				}
			}
			if mapper != nil {
				rec, err = eval.Map(ctx, mapper, rec)
				if err != nil {
					return err
				}
			}
			results[i] = append(results[i], rec)
		}
		return nil
	})
	if err != nil {
		return err
	}

	var out []model.Record
	total := 0
	for i := range results {
		out = append(out, results[i]...)
		total += read[i]
	}
	if err := j.store.Write(ctx, args.Target.URI, out); err != nil {
		return err
	}
	j.Logger().Info("records transformed", "instances", len(args.Source), "target", args.Target.URI, "read", total, "written", len(out))
	return nil
}
