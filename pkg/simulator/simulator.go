// Package simulator rolls out episodes of policy chains against their
// environments until a task's epoch budget is used up.
package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/boristopalov/mindpark/pkg/core"
	"github.com/boristopalov/mindpark/pkg/step"
)

// Score is the average return of the episodes completed in one run
type Score struct {
	Mean     float64
	Episodes int
}

// Valid reports whether any episode completed
func (s Score) Valid() bool {
	return s.Episodes > 0
}

func (s Score) String() string {
	if !s.Valid() {
		return "none"
	}
	return fmt.Sprintf("%.2f", s.Mean)
}

// Simulator runs N (chain, environment) pairs sharing one task. Each
// pair runs in its own goroutine; chains and environments are never
// shared between pairs.
type Simulator struct {
	task   *core.Task
	chains []core.Step
	envs   []core.Environment
	board  *step.Scoreboard
	logger *slog.Logger
}

type Option func(*Simulator)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) {
		s.logger = logger
	}
}

// New pairs chains[i] with envs[i]. The chains are expected to record
// their episode returns on board.
func New(task *core.Task, chains []core.Step, envs []core.Environment, board *step.Scoreboard, opts ...Option) (*Simulator, error) {
	if len(chains) != len(envs) {
		return nil, errors.Errorf("simulator: %d chains for %d environments", len(chains), len(envs))
	}
	s := &Simulator{
		task:   task,
		chains: chains,
		envs:   envs,
		board:  board,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run plays episodes until the task's current epoch is exhausted and
// advances the task to the next epoch. Episodes in progress when the
// budget runs out are played to the end. The score is invalid when no
// episode was played.
func (s *Simulator) Run(ctx context.Context) (Score, error) {
	s.board.Reset()
	g, ctx := errgroup.WithContext(ctx)
	for i := range s.chains {
		g.Go(func() error {
			return s.worker(ctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return Score{}, err
	}
	s.task.NextEpoch()

	returns := s.board.Returns()
	if len(returns) == 0 {
		return Score{}, nil
	}
	return Score{Mean: stat.Mean(returns, nil), Episodes: len(returns)}, nil
}

// worker plays episodes on pair i. A panic in the chain or the
// environment becomes the worker's error.
func (s *Simulator) worker(ctx context.Context, i int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = core.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	for !s.task.Exhausted() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.episode(s.chains[i], s.envs[i]); err != nil {
			return errors.Wrapf(err, "%s environment %d", s.task.Name, i)
		}
	}
	return nil
}

func (s *Simulator) episode(chain core.Step, env core.Environment) error {
	obs, err := env.Reset()
	if err != nil {
		return errors.Wrap(err, "reset")
	}
	index := s.task.BeginEpisode()
	if err := chain.BeginEpisode(s.task.Training); err != nil {
		return errors.Wrap(err, "begin episode")
	}
	steps := 0
	for {
		action, err := chain.Observe(s.task, obs)
		if err != nil {
			return errors.Wrap(err, "observe")
		}
		next, reward, done, err := env.Step(action)
		if err != nil {
			return errors.Wrap(err, "step")
		}
		if err := chain.Receive(s.task, reward, done); err != nil {
			return errors.Wrap(err, "receive")
		}
		s.task.Advance()
		steps++
		if done {
			break
		}
		obs = next
	}
	if err := chain.EndEpisode(); err != nil {
		return errors.Wrap(err, "end episode")
	}
	s.logger.Debug("episode finished",
		"task", s.task.Name,
		"episode", index,
		"steps", steps)
	return nil
}
