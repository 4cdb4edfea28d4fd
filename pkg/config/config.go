package config

import (
	"bytes"
	"log/slog"
	"os"
	"slices"

	"github.com/pkg/errors"
	"go.yaml.in/yaml/v3"

	"github.com/boristopalov/mindpark/pkg/algorithm"
	"github.com/boristopalov/mindpark/pkg/environment"
)

var ErrInvalidConfig = errors.New("invalid experiment config")

type ExperimentConfig struct {
	Name         string                 `yaml:"name"`
	Directory    string                 `yaml:"directory"`
	Parallel     int                    `yaml:"parallel"`
	Repeats      int                    `yaml:"repeats"`
	Videos       int                    `yaml:"videos"`
	Epochs       int                    `yaml:"epochs"`
	TrainSteps   int64                  `yaml:"train_steps"`
	TestSteps    int64                  `yaml:"test_steps"`
	Seed         uint64                 `yaml:"seed"`
	Environments []string               `yaml:"environments"`
	Algorithms   []algorithm.Definition `yaml:"algorithms"`
	Logging      LogConfig              `yaml:"logging"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // JSON log below Directory, empty to disable
}

// Default returns the configuration used for fields a file leaves out
func Default() *ExperimentConfig {
	return &ExperimentConfig{
		Name:         "experiment",
		Parallel:     1,
		Repeats:      1,
		Epochs:       10,
		TrainSteps:   5000,
		TestSteps:    1000,
		Environments: []string{"Corridor-v0"},
		Algorithms:   []algorithm.Definition{{Type: "random"}},
		Logging:      LogConfig{Level: "info", File: "log.jsonl"},
	}
}

// LoadConfig reads a YAML experiment file on top of the defaults
func LoadConfig(path string) (*ExperimentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Wrapf(ErrInvalidConfig, "%s: %v", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks budgets and that every environment and algorithm type
// is registered
func (c *ExperimentConfig) Validate() error {
	switch {
	case c.Parallel < 1:
		return errors.Wrap(ErrInvalidConfig, "parallel must be positive")
	case c.Repeats < 1:
		return errors.Wrap(ErrInvalidConfig, "repeats must be positive")
	case c.Videos < 0:
		return errors.Wrap(ErrInvalidConfig, "videos must not be negative")
	case c.Epochs < 1:
		return errors.Wrap(ErrInvalidConfig, "epochs must be positive")
	case c.TrainSteps < 1:
		return errors.Wrap(ErrInvalidConfig, "train_steps must be positive")
	case c.TestSteps < 0:
		return errors.Wrap(ErrInvalidConfig, "test_steps must not be negative")
	case len(c.Environments) == 0:
		return errors.Wrap(ErrInvalidConfig, "no environments")
	case len(c.Algorithms) == 0:
		return errors.Wrap(ErrInvalidConfig, "no algorithms")
	}
	known := environment.Names()
	for _, name := range c.Environments {
		if !slices.Contains(known, name) {
			return errors.Wrapf(ErrInvalidConfig, "unknown environment %q", name)
		}
	}
	types := algorithm.Types()
	for _, def := range c.Algorithms {
		if !slices.Contains(types, def.Type) {
			return errors.Wrapf(ErrInvalidConfig, "unknown algorithm %q", def.Type)
		}
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses the configured log level
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, errors.Wrapf(ErrInvalidConfig, "log level %q", l.Level)
	}
	return level, nil
}
