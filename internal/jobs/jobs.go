// Package jobs holds the example jobs shipped with gokite. They read and
// write the dataset store and use the shared engine for parallel work.
package jobs

import (
	"encoding/json"
	"strconv"

	"github.com/me/gokite/internal/dataset"
	"github.com/me/gokite/internal/job"
)

// Job names.
const (
	GenerateUsers = "examples.generate-users"
	KeepOddUsers  = "examples.keep-odd-users"
	Rollup        = "examples.rollup"
	StreamSink    = "examples.stream-sink"
	Transform     = "examples.transform"
)

// Register adds the example jobs to reg, all backed by store.
func Register(reg *job.Registry, store dataset.Store) error {
	for name, f := range map[string]job.Factory{
		GenerateUsers: func() any { return &Generator{store: store} },
		KeepOddUsers:  func() any { return &OddUsers{store: store} },
		Rollup:        func() any { return &WindowRollup{store: store} },
		StreamSink:    func() any { return &Sink{store: store} },
		Transform:     func() any { return &Transformer{store: store} },
	} {
		if err := reg.Register(name, f); err != nil {
			return err
		}
	}
	return nil
}

// intField reads an integer field from a decoded record.
func intField(rec map[string]any, key string) (int, bool) {
	switch v := rec[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), v == float64(int(v))
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	}
	return 0, false
}
