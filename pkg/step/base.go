// Package step implements the links of a policy chain.
//
// A chain is strictly linear: every step knows the step above it, which
// is closer to the decision, and is called by the step below it, which
// is closer to the environment. Steps receive the interface and random
// source of their chain at construction and the active task with every
// call.
package step

import (
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/boristopalov/mindpark/pkg/core"
)

var (
	// ErrNoAbove is returned when a step delegates but nothing is linked
	// above it
	ErrNoAbove = errors.New("no step above to delegate to")
	// ErrNoDecision is returned when a reward arrives before any
	// observation of the episode
	ErrNoDecision = errors.New("reward received before any observation")
)

// Base holds what every step shares: its interface, the chain's random
// source and the link to the step above.
type Base struct {
	iface core.Interface
	rng   *rand.Rand
	above core.Step
}

func NewBase(iface core.Interface, rng *rand.Rand) Base {
	return Base{iface: iface, rng: rng}
}

func (b *Base) SetAbove(above core.Step) {
	b.above = above
}

func (b *Base) Above() core.Step {
	return b.above
}

func (b *Base) Interface() core.Interface {
	return b.iface
}

func (b *Base) Rand() *rand.Rand {
	return b.rng
}

func (b *Base) BeginEpisode(training bool) error {
	return nil
}

func (b *Base) EndEpisode() error {
	return nil
}

// ObserveAbove delegates the decision for obs to the step above
func (b *Base) ObserveAbove(task *core.Task, obs core.Observation) (core.Action, error) {
	if b.above == nil {
		return nil, ErrNoAbove
	}
	return b.above.Observe(task, obs)
}

// ReceiveAbove forwards a reward to the step above
func (b *Base) ReceiveAbove(task *core.Task, reward float64, final bool) error {
	if b.above == nil {
		return ErrNoAbove
	}
	return b.above.Receive(task, reward, final)
}
