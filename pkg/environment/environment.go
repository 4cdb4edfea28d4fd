// Package environment provides the simulation backends jobs run their
// policies against.
package environment

import (
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/boristopalov/mindpark/pkg/core"
)

var (
	ErrUnknownEnvironment = errors.New("unknown environment")
	ErrClosed             = errors.New("environment is closed")
)

// Factory creates a backend from a random source
type Factory func(rng *rand.Rand) core.Environment

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register makes a backend available to Make under name
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = factory
}

// Names returns the registered environment names in order
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type Params struct {
	Seed     uint64
	MaxSteps int
}

type Option func(*Params)

func WithSeed(seed uint64) Option {
	return func(p *Params) {
		p.Seed = seed
	}
}

// WithMaxSteps ends episodes after n steps; zero keeps the backend's
// own limit
func WithMaxSteps(n int) Option {
	return func(p *Params) {
		p.MaxSteps = n
	}
}

func defaultParams() *Params {
	return &Params{
		Seed: uint64(time.Now().UnixNano()),
	}
}

// Make creates the named environment. When directory is set, episodes
// that video approves are recorded below it.
func Make(name string, directory string, video core.VideoFunc, opts ...Option) (core.Environment, error) {
	params := defaultParams()
	for _, opt := range opts {
		opt(params)
	}

	mu.RLock()
	factory, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownEnvironment, "make %q", name)
	}

	env := factory(rand.New(rand.NewPCG(params.Seed, params.Seed>>1|1)))
	if params.MaxSteps > 0 {
		env = &MaxSteps{Environment: env, Limit: params.MaxSteps}
	}
	if directory != "" {
		env = NewRecorder(env, directory, video)
	}
	return env, nil
}

func init() {
	Register("Corridor-v0", func(rng *rand.Rand) core.Environment {
		return &MaxSteps{Environment: NewCorridor(rng, 5), Limit: 20}
	})
	Register("Corridor-v1", func(rng *rand.Rand) core.Environment {
		return &MaxSteps{Environment: NewCorridor(rng, 12), Limit: 60}
	})
	Register("Bandit-v0", func(rng *rand.Rand) core.Environment {
		return NewBandit(rng, []float64{0.1, 0.5, 0.9, 0.3})
	})
}
