package step

import (
	"math/rand/v2"

	"github.com/boristopalov/mindpark/pkg/core"
	"github.com/boristopalov/mindpark/pkg/schedule"
)

type decision int

const (
	undecided decision = iota
	explored
	exploited
)

// EpsilonGreedy acts randomly with probability epsilon and delegates to
// the step above otherwise.
//
// Rewards of random actions are not forwarded, since the step above did
// not choose them. If the step above is an Experiencer, it is offered
// the transitions of random actions instead.
type EpsilonGreedy struct {
	Base
	experience Experience

	train  schedule.Schedule
	test   float64
	offset int64
	last   decision
}

type EpsilonOption func(*EpsilonGreedy)

// WithDecay anneals the training epsilon from from to to over over steps
func WithDecay(from, to float64, over int64) EpsilonOption {
	return func(g *EpsilonGreedy) {
		g.train = schedule.Decay{From: from, To: to, Over: over}
	}
}

// WithSchedule sets an arbitrary training schedule
func WithSchedule(s schedule.Schedule) EpsilonOption {
	return func(g *EpsilonGreedy) {
		g.train = s
	}
}

// WithTest sets the constant epsilon used while testing
func WithTest(epsilon float64) EpsilonOption {
	return func(g *EpsilonGreedy) {
		g.test = epsilon
	}
}

// WithOffset delays the training schedule by offset steps
func WithOffset(offset int64) EpsilonOption {
	return func(g *EpsilonGreedy) {
		g.offset = offset
	}
}

func NewEpsilonGreedy(iface core.Interface, rng *rand.Rand, opts ...EpsilonOption) *EpsilonGreedy {
	g := &EpsilonGreedy{
		Base:  NewBase(iface, rng),
		train: schedule.Decay{From: 1, To: 0.1, Over: 100},
		test:  0.05,
	}
	g.experience = NewExperience(g.Experience)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Epsilon returns the exploration probability for the task's progress
func (g *EpsilonGreedy) Epsilon(task *core.Task) float64 {
	if !task.Training {
		return g.test
	}
	return g.train.At(max(0, task.Step()-g.offset))
}

func (g *EpsilonGreedy) BeginEpisode(training bool) error {
	g.last = undecided
	g.experience.Reset()
	return nil
}

func (g *EpsilonGreedy) Observe(task *core.Task, obs core.Observation) (core.Action, error) {
	if err := g.experience.Next(obs); err != nil {
		return nil, err
	}
	var action core.Action
	if g.rng.Float64() <= g.Epsilon(task) {
		g.last = explored
		action = g.iface.Actions.Sample(g.rng)
	} else {
		g.last = exploited
		var err error
		action, err = g.ObserveAbove(task, obs)
		if err != nil {
			return nil, err
		}
	}
	g.experience.Act(obs, action)
	return action, nil
}

func (g *EpsilonGreedy) Receive(task *core.Task, reward float64, final bool) error {
	if g.last == undecided {
		return ErrNoDecision
	}
	if err := g.experience.Reward(reward, final); err != nil {
		return err
	}
	if g.last != exploited {
		return nil
	}
	return g.ReceiveAbove(task, reward, final)
}

// Experience offers transitions of random actions to the step above
func (g *EpsilonGreedy) Experience(t core.Transition) error {
	if g.last != explored {
		return nil
	}
	learner, ok := g.above.(core.Experiencer)
	if !ok {
		return nil
	}
	return learner.Experience(t)
}

// Explored reports whether the last decision was random
func (g *EpsilonGreedy) Explored() bool {
	return g.last == explored
}
