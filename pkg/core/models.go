package core

import (
	"sync/atomic"
)

// Observation is a flat vector produced by an environment
type Observation []float64

// Action is a flat vector consumed by an environment. Discrete actions
// are one-hot encoded.
type Action []float64

// Transition is one step of experience offered to upstream learners
type Transition struct {
	Observation Observation
	Action      Action
	Reward      float64
	Next        Observation // zero vector when Final is set
	Final       bool
}

// Interface describes what flows through a step: the observations it
// receives from below and the actions it returns.
type Interface struct {
	Observations Space
	Actions      Space
}

// Task is the budget and progress of one phase (training or testing).
//
// Step and Episode are advanced concurrently by every chain the
// simulator runs, so they are atomic. Epoch is only advanced by the
// simulator between runs.
type Task struct {
	Name      string
	Epochs    int
	Steps     int64  // steps per epoch
	Directory string // empty when no disk output is requested
	Training  bool

	step    atomic.Int64
	episode atomic.Int64
	epoch   atomic.Int64
}

// NewTask creates a task with zeroed progress counters
func NewTask(name string, epochs int, steps int64, directory string, training bool) *Task {
	return &Task{
		Name:      name,
		Epochs:    epochs,
		Steps:     steps,
		Directory: directory,
		Training:  training,
	}
}

// Step returns the number of environment ticks taken so far
func (t *Task) Step() int64 {
	return t.step.Load()
}

// Episode returns the number of episodes started so far
func (t *Task) Episode() int64 {
	return t.episode.Load()
}

// Epoch returns the number of completed epochs
func (t *Task) Epoch() int {
	return int(t.epoch.Load())
}

// Budget returns the step count at which the current epoch ends
func (t *Task) Budget() int64 {
	return t.Steps * (t.epoch.Load() + 1)
}

// Exhausted reports whether the current epoch's step budget is used up
func (t *Task) Exhausted() bool {
	return t.Step() >= t.Budget()
}

// Advance records one environment tick and returns the new step count
func (t *Task) Advance() int64 {
	return t.step.Add(1)
}

// BeginEpisode records the start of an episode and returns its index
func (t *Task) BeginEpisode() int64 {
	return t.episode.Add(1) - 1
}

// NextEpoch marks the current epoch as completed
func (t *Task) NextEpoch() {
	t.epoch.Add(1)
}
