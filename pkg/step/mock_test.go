package step

import (
	"math/rand/v2"

	"github.com/boristopalov/mindpark/pkg/core"
)

// mockStep records every call it receives and answers observations
// with a fixed action
type mockStep struct {
	Base
	action      core.Action
	observed    []core.Observation
	rewards     []float64
	finals      []bool
	experienced []core.Transition
	begun       int
	ended       int
}

func newMockStep(action core.Action) *mockStep {
	return &mockStep{Base: NewBase(testInterface(), testRand()), action: action}
}

func (m *mockStep) Observe(task *core.Task, obs core.Observation) (core.Action, error) {
	m.observed = append(m.observed, obs)
	return m.action, nil
}

func (m *mockStep) Receive(task *core.Task, reward float64, final bool) error {
	m.rewards = append(m.rewards, reward)
	m.finals = append(m.finals, final)
	return nil
}

func (m *mockStep) BeginEpisode(training bool) error {
	m.begun++
	return nil
}

func (m *mockStep) EndEpisode() error {
	m.ended++
	return nil
}

func (m *mockStep) Experience(t core.Transition) error {
	m.experienced = append(m.experienced, t)
	return nil
}

// plainStep records observations but does not learn from transitions
type plainStep struct {
	Base
	observed int
}

func (p *plainStep) Observe(task *core.Task, obs core.Observation) (core.Action, error) {
	p.observed++
	return core.Action{0, 1}, nil
}

func (p *plainStep) Receive(task *core.Task, reward float64, final bool) error {
	return nil
}

func testInterface() core.Interface {
	return core.Interface{
		Observations: core.NewBox(1, -10, 10),
		Actions:      core.Discrete{N: 2},
	}
}

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func trainingTask() *core.Task {
	return core.NewTask("train", 1, 1000, "", true)
}

func testingTask() *core.Task {
	return core.NewTask("test", 1, 1000, "", false)
}
