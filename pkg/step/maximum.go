package step

import (
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/boristopalov/mindpark/pkg/core"
)

// Maximum passes on the element-wise maximum of the last window
// observations of the episode.
type Maximum struct {
	Base
	window int
	buffer [][]float64
	offset int
}

func NewMaximum(iface core.Interface, rng *rand.Rand, window int) *Maximum {
	m := &Maximum{
		Base:   NewBase(iface, rng),
		window: max(1, window),
	}
	if iface.Observations != nil {
		m.allocate(iface.Observations.Size())
	}
	return m
}

func (m *Maximum) allocate(size int) {
	m.buffer = make([][]float64, m.window)
	for i := range m.buffer {
		m.buffer[i] = make([]float64, size)
	}
}

func (m *Maximum) BeginEpisode(training bool) error {
	m.offset = 0
	return nil
}

func (m *Maximum) Observe(task *core.Task, obs core.Observation) (core.Action, error) {
	if m.buffer == nil {
		m.allocate(len(obs))
	}
	if len(obs) != len(m.buffer[0]) {
		return nil, errors.Errorf("maximum: observation size %d, want %d", len(obs), len(m.buffer[0]))
	}
	copy(m.buffer[m.offset%m.window], obs)
	m.offset++

	filled := min(m.offset, m.window)
	out := make(core.Observation, len(obs))
	copy(out, m.buffer[0])
	for _, row := range m.buffer[1:filled] {
		for i, x := range row {
			out[i] = max(out[i], x)
		}
	}
	return m.ObserveAbove(task, out)
}

func (m *Maximum) Receive(task *core.Task, reward float64, final bool) error {
	return m.ReceiveAbove(task, reward, final)
}
