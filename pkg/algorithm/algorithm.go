// Package algorithm builds the policies a job trains and tests.
package algorithm

import (
	"bytes"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.yaml.in/yaml/v3"

	"github.com/boristopalov/mindpark/pkg/core"
)

var (
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
	ErrInvalidConfig    = errors.New("invalid algorithm config")
)

// Definition names an algorithm type and its parameters. It is
// immutable once a job starts.
type Definition struct {
	Type   string         `yaml:"type"`
	Name   string         `yaml:"name,omitempty"`
	Config map[string]any `yaml:"config,omitempty"`
}

// Label returns Name, or Type when no name is set
func (d Definition) Label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Type
}

// Factory instantiates an algorithm for an environment interface
type Factory func(iface core.Interface, rng *rand.Rand, config map[string]any) (core.Algorithm, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

func Register(typ string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[typ] = factory
}

// Types returns the registered algorithm types in order
func Types() []string {
	mu.RLock()
	defer mu.RUnlock()
	types := make([]string, 0, len(registry))
	for typ := range registry {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// New instantiates the algorithm described by def
func New(def Definition, iface core.Interface, rng *rand.Rand) (core.Algorithm, error) {
	mu.RLock()
	factory, ok := registry[def.Type]
	mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownAlgorithm, "new %q", def.Type)
	}
	algo, err := factory(iface, rng, def.Config)
	if err != nil {
		return nil, errors.Wrapf(err, "new %q", def.Type)
	}
	return algo, nil
}

// Decode fills out, which already holds the defaults, from a parameter
// map. Unknown parameters are rejected.
func Decode(config map[string]any, out any) error {
	if len(config) == 0 {
		return nil
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "%v", err)
	}
	return nil
}

// Dump writes def to algorithm.yaml in directory
func Dump(def Definition, directory string) error {
	data, err := yaml.Marshal(def)
	if err != nil {
		return errors.Wrap(err, "encode algorithm")
	}
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return errors.Wrap(err, "create task directory")
	}
	path := filepath.Join(directory, "algorithm.yaml")
	return errors.Wrap(os.WriteFile(path, data, 0o644), "write algorithm")
}

func init() {
	Register("random", NewRandom)
	Register("qlearning", NewQLearning)
}
