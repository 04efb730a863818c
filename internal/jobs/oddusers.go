package jobs

import (
	"context"
	"fmt"

	"github.com/me/gokite/internal/dataset"
	"github.com/me/gokite/internal/job"
	"github.com/me/gokite/pkg/model"
)

// OddUsers copies the users with an odd user_id from one partition to
// another, filtering in parallel on the shared engine.
type OddUsers struct {
	job.Base
	store dataset.Store
}

// OddUsersArgs are OddUsers' views.
type OddUsersArgs struct {
	Source model.View `view:"source.users,in" record:"User"`
	Target model.View `view:"target.users,out" record:"User"`
}

// chunkSize is the number of records each parallel partition filters.
const chunkSize = 64

// Run filters Source into Target.
func (j *OddUsers) Run(ctx context.Context, args OddUsersArgs) error {
	ec, err := j.Engine()
	if err != nil {
		return err
	}
	in, err := j.store.Read(ctx, args.Source.URI)
	if err != nil {
		return err
	}

	chunks := (len(in) + chunkSize - 1) / chunkSize
	kept := make([][]model.Record, chunks)
	err = ec.Batch().Parallel(ctx, chunks, func(ctx context.Context, c int) error {
		end := min((c+1)*chunkSize, len(in))
		for _, rec := range in[c*chunkSize : end] {
			id, ok := intField(rec, "user_id")
			if !ok {
				return fmt.Errorf("record without integer user_id: %v", rec)
			}
			if id%2 != 0 {
				kept[c] = append(kept[c], rec)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	var out []model.Record
	for _, k := range kept {
		out = append(out, k...)
	}
	if err := j.store.Write(ctx, args.Target.URI, out); err != nil {
		return err
	}
	j.Logger().Info("odd users kept", "source", args.Source.URI, "target", args.Target.URI, "read", len(in), "kept", len(out))
	return nil
}
