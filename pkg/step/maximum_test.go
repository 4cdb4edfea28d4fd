package step

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/boristopalov/mindpark/pkg/core"
)

func TestMaximumRunningWindow(t *testing.T) {
	above := newMockStep(core.Action{1, 0})
	m := NewMaximum(testInterface(), testRand(), 2)
	m.SetAbove(above)
	task := trainingTask()

	m.BeginEpisode(true)
	for _, x := range []float64{1, 5, 3} {
		if _, err := m.Observe(task, core.Observation{x}); err != nil {
			t.Fatalf("Observe(%v): %v", x, err)
		}
	}
	want := []core.Observation{{1}, {5}, {5}}
	if diff := cmp.Diff(want, above.observed); diff != "" {
		t.Errorf("aggregated observations mismatch (-want +got):\n%s", diff)
	}

	m.BeginEpisode(true)
	if _, err := m.Observe(task, core.Observation{2}); err != nil {
		t.Fatal(err)
	}
	if got := above.observed[len(above.observed)-1]; got[0] != 2 {
		t.Errorf("first observation after episode reset = %v, want [2]", got)
	}
}

func TestMaximumElementWise(t *testing.T) {
	iface := core.Interface{Observations: core.NewBox(3, 0, 10), Actions: core.Discrete{N: 2}}
	above := newMockStep(core.Action{1, 0})
	m := NewMaximum(iface, testRand(), 3)
	m.SetAbove(above)
	task := trainingTask()

	m.BeginEpisode(true)
	inputs := []core.Observation{{1, 9, 0}, {4, 2, 0}, {0, 0, 7}, {0, 1, 0}}
	for _, obs := range inputs {
		if _, err := m.Observe(task, obs); err != nil {
			t.Fatal(err)
		}
	}
	want := []core.Observation{{1, 9, 0}, {4, 9, 0}, {4, 9, 7}, {4, 2, 7}}
	if diff := cmp.Diff(want, above.observed); diff != "" {
		t.Errorf("aggregated observations mismatch (-want +got):\n%s", diff)
	}
}

func TestMaximumPassesRewards(t *testing.T) {
	above := newMockStep(core.Action{1, 0})
	m := NewMaximum(testInterface(), testRand(), 2)
	m.SetAbove(above)

	m.BeginEpisode(true)
	m.Observe(trainingTask(), core.Observation{1})
	if err := m.Receive(trainingTask(), 3, true); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{3}, above.rewards); diff != "" {
		t.Errorf("rewards mismatch (-want +got):\n%s", diff)
	}
}

func TestMaximumRejectsWrongSize(t *testing.T) {
	m := NewMaximum(testInterface(), testRand(), 2)
	m.SetAbove(newMockStep(core.Action{1, 0}))
	m.BeginEpisode(true)
	if _, err := m.Observe(trainingTask(), core.Observation{1, 2}); err == nil {
		t.Error("expected an error for an observation of the wrong size")
	}
}
