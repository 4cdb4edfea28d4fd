package step

import (
	"github.com/boristopalov/mindpark/pkg/core"
)

// Experience turns the observe/receive call sequence of a step into
// transitions. A transition is emitted once its successor observation is
// known, or immediately when the episode ends.
type Experience struct {
	emit func(core.Transition) error

	obs      core.Observation
	action   core.Action
	reward   float64
	pending  bool
	rewarded bool
}

func NewExperience(emit func(core.Transition) error) Experience {
	return Experience{emit: emit}
}

// Reset drops any transition of the previous episode
func (e *Experience) Reset() {
	e.obs, e.action = nil, nil
	e.pending, e.rewarded = false, false
}

// Next completes the pending transition with its successor observation
func (e *Experience) Next(obs core.Observation) error {
	if !e.pending || !e.rewarded {
		return nil
	}
	e.pending = false
	return e.emit(core.Transition{
		Observation: e.obs,
		Action:      e.action,
		Reward:      e.reward,
		Next:        obs,
	})
}

// Act records the decision taken for obs
func (e *Experience) Act(obs core.Observation, action core.Action) {
	e.obs, e.action = obs, action
	e.reward = 0
	e.pending, e.rewarded = true, false
}

// Reward records the reward of the last decision and emits the final
// transition of the episode
func (e *Experience) Reward(reward float64, final bool) error {
	if !e.pending {
		return nil
	}
	e.reward += reward
	e.rewarded = true
	if !final {
		return nil
	}
	e.pending = false
	return e.emit(core.Transition{
		Observation: e.obs,
		Action:      e.action,
		Reward:      e.reward,
		Next:        make(core.Observation, len(e.obs)),
		Final:       true,
	})
}
