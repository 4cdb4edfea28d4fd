package algorithm

import (
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/boristopalov/mindpark/pkg/core"
	"github.com/boristopalov/mindpark/pkg/step"
)

type RandomConfig struct {
	Workers int `yaml:"workers"`
}

// Random acts uniformly at random in training and testing. It is the
// baseline other algorithms are compared against.
type Random struct {
	train []core.Step
	test  core.Step
}

func NewRandom(iface core.Interface, rng *rand.Rand, config map[string]any) (core.Algorithm, error) {
	cfg := RandomConfig{Workers: 1}
	if err := Decode(config, &cfg); err != nil {
		return nil, err
	}
	if cfg.Workers < 1 {
		return nil, errors.Wrap(ErrInvalidConfig, "workers must be positive")
	}
	r := &Random{test: step.NewRandom(iface, rng)}
	for range cfg.Workers {
		r.train = append(r.train, step.NewRandom(iface, rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))))
	}
	return r, nil
}

func (r *Random) TrainPolicies() []core.Step {
	return r.train
}

func (r *Random) TestPolicy() core.Step {
	return r.test
}

func (r *Random) BeginEpoch() error {
	return nil
}

func (r *Random) EndEpoch() error {
	return nil
}
