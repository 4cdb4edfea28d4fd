package step

import (
	"math/rand/v2"
	"sync"

	"github.com/boristopalov/mindpark/pkg/core"
)

// Scoreboard collects episode returns from concurrently running chains
type Scoreboard struct {
	mu      sync.Mutex
	returns []float64
}

func NewScoreboard() *Scoreboard {
	return &Scoreboard{}
}

func (b *Scoreboard) Add(ret float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.returns = append(b.returns, ret)
}

// Returns returns a copy of the collected returns
func (b *Scoreboard) Returns() []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]float64, len(b.returns))
	copy(out, b.returns)
	return out
}

func (b *Scoreboard) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.returns = b.returns[:0]
}

// Score sums the rewards of each episode into a scoreboard and is
// otherwise transparent.
type Score struct {
	Base
	board  *Scoreboard
	ret    float64
	active bool
}

func NewScore(iface core.Interface, rng *rand.Rand, board *Scoreboard) *Score {
	return &Score{Base: NewBase(iface, rng), board: board}
}

func (s *Score) BeginEpisode(training bool) error {
	s.ret = 0
	s.active = true
	return nil
}

func (s *Score) Observe(task *core.Task, obs core.Observation) (core.Action, error) {
	return s.ObserveAbove(task, obs)
}

func (s *Score) Receive(task *core.Task, reward float64, final bool) error {
	s.ret += reward
	return s.ReceiveAbove(task, reward, final)
}

func (s *Score) EndEpisode() error {
	if s.active {
		s.board.Add(s.ret)
		s.active = false
	}
	return nil
}
