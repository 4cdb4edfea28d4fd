package memory

import (
	"math/rand/v2"
	"sync"

	"github.com/boristopalov/mindpark/pkg/core"
)

// Memory is a bounded replay memory of transitions. Once full, the
// oldest transitions are overwritten.
type Memory struct {
	transitions []core.Transition
	capacity    int
	next        int
	mu          sync.RWMutex
}

func NewMemory(capacity int) *Memory {
	return &Memory{
		transitions: make([]core.Transition, 0, max(1, capacity)),
		capacity:    max(1, capacity),
	}
}

// Len returns the number of stored transitions
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.transitions)
}

// All returns a copy of all stored transitions, oldest first
func (m *Memory) All() []core.Transition {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.Transition, 0, len(m.transitions))
	if len(m.transitions) == m.capacity {
		out = append(out, m.transitions[m.next:]...)
		out = append(out, m.transitions[:m.next]...)
		return out
	}
	return append(out, m.transitions...)
}

func (m *Memory) Store(t core.Transition) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.transitions) < m.capacity {
		m.transitions = append(m.transitions, t)
		return
	}
	m.transitions[m.next] = t
	m.next = (m.next + 1) % m.capacity
}

// Sample draws n transitions uniformly with replacement. It returns nil
// when the memory is empty.
func (m *Memory) Sample(rng *rand.Rand, n int) []core.Transition {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.transitions) == 0 {
		return nil
	}
	out := make([]core.Transition, n)
	for i := range out {
		out[i] = m.transitions[rng.IntN(len(m.transitions))]
	}
	return out
}
