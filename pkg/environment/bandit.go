package environment

import (
	"math/rand/v2"

	"github.com/boristopalov/mindpark/pkg/core"
)

// Bandit is a multi-armed bandit. Every episode is a single pull whose
// reward is the arm's mean plus gaussian noise.
type Bandit struct {
	rng    *rand.Rand
	means  []float64
	noise  float64
	closed bool
}

func NewBandit(rng *rand.Rand, means []float64) *Bandit {
	return &Bandit{rng: rng, means: means, noise: 0.1}
}

func (b *Bandit) Interface() core.Interface {
	return core.Interface{
		Observations: core.NewBox(1, 1, 1),
		Actions:      core.Discrete{N: len(b.means)},
	}
}

func (b *Bandit) Reset() (core.Observation, error) {
	if b.closed {
		return nil, ErrClosed
	}
	return core.Observation{1}, nil
}

func (b *Bandit) Step(action core.Action) (core.Observation, float64, bool, error) {
	if b.closed {
		return nil, 0, false, ErrClosed
	}
	arm := (core.Discrete{N: len(b.means)}).Index(action)
	reward := b.means[arm] + b.rng.NormFloat64()*b.noise
	return core.Observation{1}, reward, true, nil
}

func (b *Bandit) Close() error {
	if b.closed {
		return ErrClosed
	}
	b.closed = true
	return nil
}
