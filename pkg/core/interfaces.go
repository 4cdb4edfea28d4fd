package core

// Step is one link of a policy chain. Observations and rewards flow from
// below (the environment side) towards above (the decision side); each
// step either answers an observation itself or delegates it to the step
// above.
type Step interface {
	// Observe receives an observation from below and returns the action
	// to take
	Observe(task *Task, obs Observation) (Action, error)
	// Receive receives the reward for the last action and whether the
	// episode ended with it
	Receive(task *Task, reward float64, final bool) error
	// BeginEpisode resets per-episode state
	BeginEpisode(training bool) error
	// EndEpisode is called after the final reward of an episode
	EndEpisode() error
	// SetAbove links the step that decisions are delegated to
	SetAbove(above Step)
}

// Experiencer is implemented by steps that learn from transitions,
// including transitions they did not choose the action for.
type Experiencer interface {
	Experience(t Transition) error
}

// VideoFunc decides, once per episode, whether the episode is recorded
type VideoFunc func(episode int64) bool

// Environment is a stateful simulation backend
type Environment interface {
	// Interface returns the observation and action spaces
	Interface() Interface
	// Reset starts a new episode and returns its first observation
	Reset() (Observation, error)
	// Step applies an action
	Step(action Action) (obs Observation, reward float64, done bool, err error)
	// Close releases the backend; it must be called exactly once
	Close() error
}

// Algorithm owns the live policies of one job
type Algorithm interface {
	// TrainPolicies returns one policy per parallel training environment
	TrainPolicies() []Step
	// TestPolicy returns the policy evaluated during testing
	TestPolicy() Step
	BeginEpoch() error
	EndEpoch() error
}
