package step

import (
	"github.com/boristopalov/mindpark/pkg/core"
)

// Sequential composes steps into a single step. The first step receives
// what the chain receives; each step delegates to the one added after
// it, and the last step delegates to whatever is linked above the chain.
// A Sequential can itself be added to another Sequential.
type Sequential struct {
	steps []core.Step
	above core.Step
}

func NewSequential(steps ...core.Step) *Sequential {
	s := &Sequential{}
	for _, step := range steps {
		s.Add(step)
	}
	return s
}

// Add appends a step to the top of the chain
func (s *Sequential) Add(step core.Step) *Sequential {
	if n := len(s.steps); n > 0 {
		s.steps[n-1].SetAbove(step)
	}
	step.SetAbove(s.above)
	s.steps = append(s.steps, step)
	return s
}

func (s *Sequential) Steps() []core.Step {
	return s.steps
}

func (s *Sequential) SetAbove(above core.Step) {
	s.above = above
	if n := len(s.steps); n > 0 {
		s.steps[n-1].SetAbove(above)
	}
}

func (s *Sequential) Observe(task *core.Task, obs core.Observation) (core.Action, error) {
	if len(s.steps) == 0 {
		if s.above == nil {
			return nil, ErrNoAbove
		}
		return s.above.Observe(task, obs)
	}
	return s.steps[0].Observe(task, obs)
}

func (s *Sequential) Receive(task *core.Task, reward float64, final bool) error {
	if len(s.steps) == 0 {
		if s.above == nil {
			return ErrNoAbove
		}
		return s.above.Receive(task, reward, final)
	}
	return s.steps[0].Receive(task, reward, final)
}

func (s *Sequential) BeginEpisode(training bool) error {
	for _, step := range s.steps {
		if err := step.BeginEpisode(training); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequential) EndEpisode() error {
	for _, step := range s.steps {
		if err := step.EndEpisode(); err != nil {
			return err
		}
	}
	return nil
}

// Experience forwards a transition to the first step if it learns from
// transitions
func (s *Sequential) Experience(t core.Transition) error {
	if len(s.steps) == 0 {
		return nil
	}
	if learner, ok := s.steps[0].(core.Experiencer); ok {
		return learner.Experience(t)
	}
	return nil
}
