package environment

import (
	"github.com/boristopalov/mindpark/pkg/core"
)

// MaxSteps cuts episodes of the wrapped environment off after Limit
// ticks by reporting the Limit-th tick as final. A Limit of zero or less
// leaves episodes uncut.
type MaxSteps struct {
	core.Environment
	Limit int

	ticks int
}

func (m *MaxSteps) Reset() (core.Observation, error) {
	m.ticks = 0
	return m.Environment.Reset()
}

// Step forwards the action and marks the tick final once the episode
// reaches its limit. Failed ticks do not count.
func (m *MaxSteps) Step(action core.Action) (core.Observation, float64, bool, error) {
	obs, reward, done, err := m.Environment.Step(action)
	if err != nil {
		return obs, reward, done, err
	}
	m.ticks++
	return obs, reward, done || (m.Limit > 0 && m.ticks >= m.Limit), nil
}
