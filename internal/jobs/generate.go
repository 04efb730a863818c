package jobs

import (
	"context"
	"fmt"
	"strconv"

	"github.com/me/gokite/internal/dataset"
	"github.com/me/gokite/internal/job"
	"github.com/me/gokite/pkg/model"
)

// SettingGeneratorCount sets how many users Generator writes per run.
const SettingGeneratorCount = "generator.count"

// Generator writes a batch of synthetic users to its output partition.
type Generator struct {
	job.Base
	store dataset.Store
}

// GeneratorArgs are Generator's views.
type GeneratorArgs struct {
	Users model.View `view:"generated.users,out" record:"User"`
}

// Run writes generator.count users (default 10) with ids 0..n-1.
func (g *Generator) Run(ctx context.Context, args GeneratorArgs) error {
	n := 10
	if v, ok := g.Settings()[SettingGeneratorCount]; ok {
		c, err := strconv.Atoi(v)
		if err != nil || c < 0 {
			return model.ConfigurationError(SettingGeneratorCount, "want a non-negative integer, got %q", v)
		}
		n = c
	}

	nominal := g.NominalTime()
	records := make([]model.Record, n)
	for i := range records {
		records[i] = model.Record{
			"user_id":   i,
			"username":  fmt.Sprintf("user-%d", i),
			"timestamp": nominal.UnixMilli(),
		}
	}
	if err := g.store.Write(ctx, args.Users.URI, records); err != nil {
		return err
	}
	g.Logger().Info("users generated", "view", args.Users.URI, "count", n)
	return nil
}
