package simulator

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync/atomic"
	"testing"

	"github.com/boristopalov/mindpark/pkg/core"
	"github.com/boristopalov/mindpark/pkg/step"
)

// mockEnv ends every episode after length steps and pays 1 per step
type mockEnv struct {
	length  int
	failAt  int
	panicAt int
	steps   int
	resets  atomic.Int64
	closes  atomic.Int64
	stepErr error
}

func (m *mockEnv) Interface() core.Interface {
	return core.Interface{Observations: core.NewBox(1, 0, 1), Actions: core.Discrete{N: 2}}
}

func (m *mockEnv) Reset() (core.Observation, error) {
	m.resets.Add(1)
	m.steps = 0
	return core.Observation{0}, nil
}

func (m *mockEnv) Step(action core.Action) (core.Observation, float64, bool, error) {
	m.steps++
	if m.panicAt > 0 && m.steps == m.panicAt {
		panic("physics exploded")
	}
	if m.failAt > 0 && m.steps == m.failAt {
		return nil, 0, false, m.stepErr
	}
	return core.Observation{float64(m.steps)}, 1, m.steps >= m.length, nil
}

func (m *mockEnv) Close() error {
	m.closes.Add(1)
	return nil
}

func scoredChain(env core.Environment, board *step.Scoreboard, seed uint64) core.Step {
	rng := rand.New(rand.NewPCG(seed, seed))
	iface := env.Interface()
	return step.NewSequential(step.NewScore(iface, rng, board), step.NewRandom(iface, rng))
}

func TestRun(t *testing.T) {
	board := step.NewScoreboard()
	envs := []core.Environment{&mockEnv{length: 4}, &mockEnv{length: 4}}
	chains := []core.Step{scoredChain(envs[0], board, 1), scoredChain(envs[1], board, 2)}
	task := core.NewTask("train", 2, 40, "", true)

	sim, err := New(task, chains, envs, board)
	if err != nil {
		t.Fatal(err)
	}
	score, err := sim.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !score.Valid() || score.Mean != 4 {
		t.Errorf("score = %+v, want mean 4", score)
	}
	if task.Step() < 40 {
		t.Errorf("task step = %d, want at least 40", task.Step())
	}
	if task.Epoch() != 1 {
		t.Errorf("task epoch = %d, want 1", task.Epoch())
	}
	if int64(score.Episodes) != task.Episode() {
		t.Errorf("scored %d episodes, task counted %d", score.Episodes, task.Episode())
	}

	before := task.Step()
	if _, err := sim.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if task.Step() < 80 || task.Step() <= before {
		t.Errorf("second epoch ended at step %d, want at least 80", task.Step())
	}
}

func TestRunEmptyBudget(t *testing.T) {
	board := step.NewScoreboard()
	env := &mockEnv{length: 3}
	task := core.NewTask("test", 1, 0, "", false)
	sim, err := New(task, []core.Step{scoredChain(env, board, 1)}, []core.Environment{env}, board)
	if err != nil {
		t.Fatal(err)
	}
	score, err := sim.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if score.Valid() {
		t.Errorf("score = %+v, want no score", score)
	}
	if score.String() != "none" {
		t.Errorf("score.String() = %q, want none", score.String())
	}
	if env.resets.Load() != 0 {
		t.Errorf("environment was reset %d times, want 0", env.resets.Load())
	}
}

func TestRunEnvironmentError(t *testing.T) {
	boom := errors.New("boom")
	board := step.NewScoreboard()
	env := &mockEnv{length: 10, failAt: 2, stepErr: boom}
	task := core.NewTask("train", 1, 100, "", true)
	sim, err := New(task, []core.Step{scoredChain(env, board, 1)}, []core.Environment{env}, board)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sim.Run(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Run() = %v, want boom", err)
	}
	if task.Epoch() != 0 {
		t.Errorf("failed run advanced the epoch to %d", task.Epoch())
	}
}

func TestRunRecoversPanic(t *testing.T) {
	board := step.NewScoreboard()
	envs := []core.Environment{&mockEnv{length: 4}, &mockEnv{length: 10, panicAt: 3}}
	chains := []core.Step{scoredChain(envs[0], board, 1), scoredChain(envs[1], board, 2)}
	task := core.NewTask("train", 1, 1000, "", true)
	sim, err := New(task, chains, envs, board)
	if err != nil {
		t.Fatal(err)
	}

	_, err = sim.Run(context.Background())
	var perr core.PanicError
	if !errors.As(err, &perr) {
		t.Fatalf("Run() = %v, want PanicError", err)
	}
	if perr.Value != "physics exploded" {
		t.Errorf("panic value = %v", perr.Value)
	}
	if len(perr.Stack) == 0 {
		t.Error("panic stack is empty")
	}
	if task.Epoch() != 0 {
		t.Errorf("task epoch = %d after a failed run, want 0", task.Epoch())
	}
}

func TestNewMismatch(t *testing.T) {
	board := step.NewScoreboard()
	if _, err := New(core.NewTask("t", 1, 1, "", true), nil, []core.Environment{&mockEnv{}}, board); err == nil {
		t.Error("expected an error for mismatched chains and environments")
	}
}
