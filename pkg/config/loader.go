package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/codemend/codemend/pkg/errors"
)

// Loader reads configuration from a YAML file.
type Loader struct {
	configPath string
}

// NewLoader builds a loader. An empty path searches the standard
// locations.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Load reads, overlays environment variables, and validates. A missing
// file yields the defaults.
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	if l.configPath == "" {
		l.configPath = findConfigFile()
	}

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, errors.NewError(errors.ErrorTypeConfiguration).
					WithMessage("failed to read config file").
					WithCause(err).
					WithContext("path", l.configPath).
					Build()
			}
		} else if err := yaml.Unmarshal(data, config); err != nil {
			return nil, errors.NewError(errors.ErrorTypeConfiguration).
				WithMessage("failed to parse config file").
				WithCause(err).
				WithContext("path", l.configPath).
				Build()
		}
	}

	config.ApplyEnvironmentOverrides()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ConfigPath reports the file the loader settled on, empty when running on
// defaults.
func (l *Loader) ConfigPath() string {
	return l.configPath
}

func findConfigFile() string {
	for _, path := range GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
