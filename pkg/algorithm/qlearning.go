package algorithm

import (
	"math/rand/v2"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/boristopalov/mindpark/pkg/core"
	"github.com/boristopalov/mindpark/pkg/memory"
	"github.com/boristopalov/mindpark/pkg/step"
)

type QLearningConfig struct {
	Workers       int     `yaml:"workers"`
	LearningRate  float64 `yaml:"learning_rate"`
	Discount      float64 `yaml:"discount"`
	EpsilonFrom   float64 `yaml:"epsilon_from"`
	EpsilonTo     float64 `yaml:"epsilon_to"`
	EpsilonOver   int64   `yaml:"epsilon_over"`
	EpsilonTest   float64 `yaml:"epsilon_test"`
	EpsilonOffset int64   `yaml:"epsilon_offset"`
	Window        int     `yaml:"window"`
	ReplaySize    int     `yaml:"replay_size"`
	ReplayBatch   int     `yaml:"replay_batch"`
}

func defaultQLearningConfig() QLearningConfig {
	return QLearningConfig{
		Workers:      2,
		LearningRate: 0.1,
		Discount:     0.95,
		EpsilonFrom:  1,
		EpsilonTo:    0.1,
		EpsilonOver:  1000,
		EpsilonTest:  0.05,
		ReplaySize:   10000,
	}
}

func (c QLearningConfig) validate() error {
	switch {
	case c.Workers < 1:
		return errors.Wrap(ErrInvalidConfig, "workers must be positive")
	case c.LearningRate <= 0:
		return errors.Wrap(ErrInvalidConfig, "learning_rate must be positive")
	case c.Discount < 0 || c.Discount > 1:
		return errors.Wrap(ErrInvalidConfig, "discount must be within [0, 1]")
	case c.ReplaySize < 1:
		return errors.Wrap(ErrInvalidConfig, "replay_size must be positive")
	}
	return nil
}

// QLearning learns a linear action-value function shared by all of its
// policies. Training policies explore epsilon-greedily; the learner
// above the exploration step also learns from the random transitions it
// is offered.
type QLearning struct {
	config QLearningConfig
	q      *linearQ
	replay *memory.Memory
	rng    *rand.Rand
	train  []core.Step
	test   core.Step
}

func NewQLearning(iface core.Interface, rng *rand.Rand, config map[string]any) (core.Algorithm, error) {
	cfg := defaultQLearningConfig()
	if err := Decode(config, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	actions, ok := iface.Actions.(core.Discrete)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidConfig, "qlearning needs discrete actions, got %v", iface.Actions)
	}

	q := &QLearning{
		config: cfg,
		q:      newLinearQ(iface.Observations.Size(), actions.N),
		replay: memory.NewMemory(cfg.ReplaySize),
		rng:    rng,
	}
	for range cfg.Workers {
		workerRng := rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))
		q.train = append(q.train, q.policy(iface, workerRng, step.WithDecay(cfg.EpsilonFrom, cfg.EpsilonTo, cfg.EpsilonOver),
			step.WithTest(cfg.EpsilonTest), step.WithOffset(cfg.EpsilonOffset)))
	}
	q.test = q.policy(iface, rng, step.WithTest(cfg.EpsilonTest))
	return q, nil
}

func (q *QLearning) policy(iface core.Interface, rng *rand.Rand, opts ...step.EpsilonOption) core.Step {
	chain := step.NewSequential()
	if q.config.Window > 1 {
		chain.Add(step.NewMaximum(iface, rng, q.config.Window))
	}
	chain.Add(step.NewEpsilonGreedy(iface, rng, opts...))
	chain.Add(newLearner(iface, rng, q))
	return chain
}

func (q *QLearning) TrainPolicies() []core.Step {
	return q.train
}

func (q *QLearning) TestPolicy() core.Step {
	return q.test
}

func (q *QLearning) BeginEpoch() error {
	return nil
}

// EndEpoch replays a batch of stored transitions
func (q *QLearning) EndEpoch() error {
	if q.config.ReplayBatch <= 0 {
		return nil
	}
	for _, t := range q.replay.Sample(q.rng, q.config.ReplayBatch) {
		q.learn(t)
	}
	return nil
}

func (q *QLearning) learn(t core.Transition) {
	target := t.Reward
	if !t.Final {
		target += q.config.Discount * floats.Max(q.q.values(t.Next))
	}
	q.q.update(t.Observation, floats.MaxIdx(t.Action), target, q.config.LearningRate)
}

// learner acts greedily with respect to the shared Q function and learns
// from its own transitions and from those offered from below.
type learner struct {
	step.Base
	parent     *QLearning
	experience step.Experience
	training   bool
}

func newLearner(iface core.Interface, rng *rand.Rand, parent *QLearning) *learner {
	l := &learner{Base: step.NewBase(iface, rng), parent: parent}
	l.experience = step.NewExperience(l.learn)
	return l
}

func (l *learner) BeginEpisode(training bool) error {
	l.training = training
	l.experience.Reset()
	return nil
}

func (l *learner) Observe(task *core.Task, obs core.Observation) (core.Action, error) {
	if err := l.experience.Next(obs); err != nil {
		return nil, err
	}
	values := l.parent.q.values(obs)
	action := make(core.Action, len(values))
	action[floats.MaxIdx(values)] = 1
	l.experience.Act(obs, action)
	return action, nil
}

func (l *learner) Receive(task *core.Task, reward float64, final bool) error {
	return l.experience.Reward(reward, final)
}

// Experience learns from a transition whose action was chosen below.
// The learner did not see that tick, so its own pending transition has
// no known successor and is dropped.
func (l *learner) Experience(t core.Transition) error {
	l.experience.Reset()
	return l.learn(t)
}

func (l *learner) learn(t core.Transition) error {
	if !l.training {
		return nil
	}
	l.parent.replay.Store(t)
	l.parent.learn(t)
	return nil
}

// linearQ estimates action values as one weight vector and bias per
// action.
type linearQ struct {
	mu      sync.RWMutex
	weights [][]float64
	bias    []float64
}

func newLinearQ(inputs, actions int) *linearQ {
	q := &linearQ{
		weights: make([][]float64, actions),
		bias:    make([]float64, actions),
	}
	for i := range q.weights {
		q.weights[i] = make([]float64, inputs)
	}
	return q
}

func (q *linearQ) values(obs core.Observation) []float64 {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]float64, len(q.weights))
	for a, w := range q.weights {
		out[a] = floats.Dot(w, obs) + q.bias[a]
	}
	return out
}

func (q *linearQ) update(obs core.Observation, action int, target, rate float64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delta := target - (floats.Dot(q.weights[action], obs) + q.bias[action])
	floats.AddScaled(q.weights[action], rate*delta, obs)
	q.bias[action] += rate * delta
}
