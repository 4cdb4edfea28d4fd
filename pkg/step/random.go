package step

import (
	"math/rand/v2"

	"github.com/boristopalov/mindpark/pkg/core"
)

// Random samples uniformly from the action space and never delegates
type Random struct {
	Base
}

func NewRandom(iface core.Interface, rng *rand.Rand) *Random {
	return &Random{Base: NewBase(iface, rng)}
}

func (r *Random) Observe(task *core.Task, obs core.Observation) (core.Action, error) {
	return r.iface.Actions.Sample(r.rng), nil
}

func (r *Random) Receive(task *core.Task, reward float64, final bool) error {
	return nil
}
