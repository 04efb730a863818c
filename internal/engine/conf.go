package engine

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/me/gokite/internal/config"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Defaults returns the built-in engine configuration.
func Defaults() (map[string]string, error) {
	conf, err := config.FlattenYAML(defaultsYAML)
	if err != nil {
		return nil, fmt.Errorf("engine defaults: %w", err)
	}
	return conf, nil
}

// DriverConf builds the configuration handed to the driver: the defaults,
// overlaid by every settings entry under the engine. prefix.
func DriverConf(s Settings) (map[string]string, error) {
	conf, err := Defaults()
	if err != nil {
		return nil, err
	}
	for k, v := range s {
		if strings.HasPrefix(k, EnginePrefix) {
			conf[k] = v
		}
	}
	return conf, nil
}
