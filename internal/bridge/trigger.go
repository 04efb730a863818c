package bridge

import (
	"os"
	"strings"
	"time"

	"github.com/me/gokite/internal/config"
	"github.com/me/gokite/internal/engine"
	"github.com/me/gokite/pkg/model"
)

// Trigger configuration keys.
const (
	KeyNominalTime = "nominal.time"
	BindingPrefix  = "binding."
)

// nominalLayouts are the accepted nominal time spellings, all UTC instants.
var nominalLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z",
}

// Trigger is what the external scheduler hands a single run.
type Trigger struct {
	NominalTime time.Time
	// Overrides are binding name -> address list, replacing template
	// expansion for that binding.
	Overrides map[string]string
	// Settings are every other entry of the trigger configuration.
	Settings engine.Settings
	Source   string
}

// ParseNominalTime parses a nominal time and converts it to UTC.
func ParseNominalTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range nominalLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, model.ConfigurationError("parse "+KeyNominalTime, "%q is not a UTC instant (want e.g. 2015-05-15T12:00Z)", s)
}

// ParseDefines parses repeated "key=value" command-line definitions.
func ParseDefines(defs []string) (map[string]string, error) {
	out := make(map[string]string, len(defs))
	for _, d := range defs {
		k, v, ok := strings.Cut(d, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, model.ConfigurationError("parse define", "%q is not key=value", d)
		}
		out[k] = v
	}
	return out, nil
}

// LoadTrigger reads the trigger configuration named by the
// GOKITE_ACTION_CONF environment variable. defines override file entries.
// The variable has no default: when it is unset the run cannot proceed.
func LoadTrigger(getenv func(string) string, defines map[string]string) (*Trigger, error) {
	path := getenv(config.EnvActionConf)
	if path == "" {
		return nil, model.ConfigurationError("load trigger", "%s is not set; cannot resolve configuration", config.EnvActionConf)
	}
	return ReadTrigger(path, defines)
}

// ReadTrigger reads a YAML trigger configuration file.
func ReadTrigger(path string, defines map[string]string) (*Trigger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.ConfigurationError("load trigger", "%v", err)
	}
	entries, err := config.FlattenYAML(data)
	if err != nil {
		return nil, model.ConfigurationError("load trigger", "%s: %v", path, err)
	}
	for k, v := range defines {
		entries[k] = v
	}
	tr, err := TriggerFromEntries(entries)
	if err != nil {
		return nil, err
	}
	tr.Source = path
	return tr, nil
}

// TriggerFromEntries splits flat configuration entries into the nominal
// time, binding overrides and remaining settings.
func TriggerFromEntries(entries map[string]string) (*Trigger, error) {
	raw, ok := entries[KeyNominalTime]
	if !ok {
		return nil, model.ConfigurationError("load trigger", "%s is required", KeyNominalTime)
	}
	nominal, err := ParseNominalTime(raw)
	if err != nil {
		return nil, err
	}

	tr := &Trigger{
		NominalTime: nominal,
		Overrides:   make(map[string]string),
		Settings:    engine.Settings{},
	}
	for k, v := range entries {
		switch {
		case k == KeyNominalTime:
		case strings.HasPrefix(k, BindingPrefix):
			name := strings.TrimPrefix(k, BindingPrefix)
			if name == "" {
				return nil, model.ConfigurationError("load trigger", "empty binding name in %q", k)
			}
			tr.Overrides[name] = v
		default:
			tr.Settings[k] = v
		}
	}
	return tr, nil
}
