package jobs

import (
	"context"
	"strconv"
	"time"

	"github.com/me/gokite/internal/dataset"
	"github.com/me/gokite/internal/job"
	"github.com/me/gokite/pkg/model"
)

// SettingSinkBatch caps how many records Sink collects per run.
const SettingSinkBatch = "sink.batch.size"

// Sink drains one micro-batch from a live stream into a view.
type Sink struct {
	job.Base
	store dataset.Store
}

// SinkArgs are Sink's views.
type SinkArgs struct {
	Events model.Stream `view:"event.stream,in" record:"Event"`
	Output model.View   `view:"event.output,out" record:"Event"`
}

// Run collects records until the stream closes, the batch is full or no
// record arrives for one streaming interval, then writes them.
func (s *Sink) Run(ctx context.Context, args SinkArgs) error {
	settings := s.Settings()
	limit := 100
	if v, ok := settings[SettingSinkBatch]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return model.ConfigurationError(SettingSinkBatch, "want a positive integer, got %q", v)
		}
		limit = n
	}
	idle, err := settings.StreamingInterval()
	if err != nil {
		return err
	}

	var batch []model.Record
	timer := time.NewTimer(idle)
	defer timer.Stop()

collect:
	for len(batch) < limit {
		select {
		case rec, ok := <-args.Events.Records():
			if !ok {
				break collect
			}
			batch = append(batch, rec)
			timer.Reset(idle)
		case <-timer.C:
			break collect
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := s.store.Write(ctx, args.Output.URI, batch); err != nil {
		return err
	}
	s.Logger().Info("stream batch written", "stream", args.Events.Name(), "view", args.Output.URI, "records", len(batch))
	return nil
}
