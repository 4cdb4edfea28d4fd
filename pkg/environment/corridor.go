package environment

import (
	"math/rand/v2"

	"github.com/boristopalov/mindpark/pkg/core"
)

const (
	moveLeft = iota
	moveRight
)

// Corridor is a one-dimensional walk. The agent starts at the left end
// and is rewarded for reaching the right end. Moves slip into the
// opposite direction with a small probability.
type Corridor struct {
	rng      *rand.Rand
	length   int
	position int
	slip     float64
	closed   bool
}

func NewCorridor(rng *rand.Rand, length int) *Corridor {
	return &Corridor{rng: rng, length: max(2, length), slip: 0.1}
}

func (c *Corridor) Interface() core.Interface {
	return core.Interface{
		Observations: core.NewBox(c.length, 0, 1),
		Actions:      core.Discrete{N: 2},
	}
}

func (c *Corridor) Reset() (core.Observation, error) {
	if c.closed {
		return nil, ErrClosed
	}
	c.position = 0
	return c.observe(), nil
}

func (c *Corridor) Step(action core.Action) (core.Observation, float64, bool, error) {
	if c.closed {
		return nil, 0, false, ErrClosed
	}
	move := (core.Discrete{N: 2}).Index(action)
	if c.rng.Float64() < c.slip {
		move = 1 - move
	}
	switch move {
	case moveLeft:
		c.position = max(0, c.position-1)
	case moveRight:
		c.position++
	}
	if c.position >= c.length-1 {
		c.position = c.length - 1
		return c.observe(), 1, true, nil
	}
	return c.observe(), -0.01, false, nil
}

func (c *Corridor) Close() error {
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	return nil
}

func (c *Corridor) observe() core.Observation {
	obs := make(core.Observation, c.length)
	obs[c.position] = 1
	return obs
}
