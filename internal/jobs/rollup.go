package jobs

import (
	"context"

	"github.com/me/gokite/internal/dataset"
	"github.com/me/gokite/internal/job"
	"github.com/me/gokite/pkg/model"
)

// WindowRollup counts the records of every instance in a trailing window
// and writes one summary record per instance, oldest first.
type WindowRollup struct {
	job.Base
	store dataset.Store
}

// WindowRollupArgs are WindowRollup's views.
type WindowRollupArgs struct {
	Window  []model.View `view:"rollup.window,in"`
	Summary model.View   `view:"rollup.summary,out" record:"Count"`
}

// Run reads the window instances in parallel and writes the counts.
func (j *WindowRollup) Run(ctx context.Context, args *WindowRollupArgs) error {
	ec, err := j.Engine()
	if err != nil {
		return err
	}

	counts := make([]int, len(args.Window))
	err = ec.Batch().Parallel(ctx, len(args.Window), func(ctx context.Context, i int) error {
		recs, err := j.store.Read(ctx, args.Window[i].URI)
		if err != nil {
			return err
		}
		counts[i] = len(recs)
		return nil
	})
	if err != nil {
		return err
	}

	out := make([]model.Record, len(args.Window))
	total := 0
	for i, v := range args.Window {
		out[i] = model.Record{"view": v.URI, "count": counts[i]}
		total += counts[i]
	}
	if err := j.store.Write(ctx, args.Summary.URI, out); err != nil {
		return err
	}
	j.Logger().Info("window rolled up", "instances", len(args.Window), "records", total)
	return nil
}
