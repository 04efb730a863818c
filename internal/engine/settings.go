package engine

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/me/gokite/pkg/model"
)

// Reserved settings keys.
const (
	KeyStreamingDuration   = "streaming.duration"
	KeyStreamingCheckpoint = "streaming.checkpoint"

	// EnginePrefix marks settings forwarded to the driver.
	EnginePrefix = "engine."
)

// DefaultStreamingInterval is the micro-batch interval when
// streaming.duration is unset.
const DefaultStreamingInterval = time.Second

// Settings is the flat configuration a shared context is created with. It is
// part of the context's identity: two callers share a context only when their
// settings are equal.
type Settings map[string]string

// Clone returns an independent copy.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Equal compares by key and value. A nil map equals an empty one.
func (s Settings) Equal(other Settings) bool {
	if len(s) != len(other) {
		return false
	}
	for k, v := range s {
		ov, ok := other[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// Keys returns the keys in sorted order.
func (s Settings) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Diff lists the keys whose values differ between s and other, sorted.
func (s Settings) Diff(other Settings) []string {
	seen := make(map[string]bool)
	var keys []string
	for k, v := range s {
		if ov, ok := other[k]; !ok || ov != v {
			keys = append(keys, k)
		}
		seen[k] = true
	}
	for k := range other {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// StreamingInterval returns the micro-batch interval from streaming.duration.
func (s Settings) StreamingInterval() (time.Duration, error) {
	v, ok := s[KeyStreamingDuration]
	if !ok {
		return DefaultStreamingInterval, nil
	}
	return ParseInterval(v)
}

// Checkpoint returns the streaming checkpoint location, or "".
func (s Settings) Checkpoint() string {
	return s[KeyStreamingCheckpoint]
}

// ParseInterval parses "<n>ms", "<n>s", "<n>m" or a bare "<n>", which is
// read as minutes. Empty input yields the default interval.
func ParseInterval(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return DefaultStreamingInterval, nil
	}
	num, unit := v, time.Minute
	switch {
	case strings.HasSuffix(v, "ms"):
		num, unit = strings.TrimSuffix(v, "ms"), time.Millisecond
	case strings.HasSuffix(v, "s"):
		num, unit = strings.TrimSuffix(v, "s"), time.Second
	case strings.HasSuffix(v, "m"):
		num = strings.TrimSuffix(v, "m")
	}
	n, err := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
	if err != nil || n <= 0 {
		return 0, model.ConfigurationError("parse "+KeyStreamingDuration, "invalid interval %q", v)
	}
	return time.Duration(n) * unit, nil
}
