// Package experiment schedules the jobs of an experiment configuration
// onto a bounded pool of workers.
package experiment

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/boristopalov/mindpark/pkg/config"
	"github.com/boristopalov/mindpark/pkg/core"
	"github.com/boristopalov/mindpark/pkg/job"
	"github.com/boristopalov/mindpark/pkg/messaging"
)

// ErrJobsFailed is returned by Run when at least one job failed
var ErrJobsFailed = errors.New("jobs failed")

type Status struct {
	Running   bool
	StartTime time.Time
	EndTime   time.Time
	Errors    []error
}

type Experiment struct {
	config    *config.ExperimentConfig
	directory string
	out       io.Writer
	logger    *slog.Logger
	scores    *messaging.Feed
	jobs      []*job.Job
	mu        sync.RWMutex
	status    Status
}

type Option func(*Experiment)

func WithOutput(w io.Writer) Option {
	return func(e *Experiment) {
		e.out = w
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Experiment) {
		e.logger = logger
	}
}

// WithDirectory overrides the run directory, which is otherwise created
// below the configured directory
func WithDirectory(dir string) Option {
	return func(e *Experiment) {
		e.directory = dir
	}
}

// New builds one job per environment, algorithm and repetition
func New(cfg *config.ExperimentConfig, opts ...Option) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Experiment{
		config: cfg,
		out:    os.Stdout,
		logger: slog.Default(),
		scores: messaging.NewFeed(),
	}
	e.directory = RunDirectory(cfg)
	for _, opt := range opts {
		opt(e)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	for _, env := range cfg.Environments {
		for _, def := range cfg.Algorithms {
			for rep := range cfg.Repeats {
				var dir string
				if e.directory != "" {
					dir = filepath.Join(e.directory, fmt.Sprintf("%s-%s-%d", env, def.Label(), rep))
				}
				train := core.NewTask("train", cfg.Epochs, cfg.TrainSteps, dir, true)
				test := core.NewTask("test", cfg.Epochs, cfg.TestSteps, dir, false)
				j := job.New(train, test, env, def,
					job.WithPrefix(fmt.Sprintf("[%s %s %d]", env, def.Label(), rep)),
					job.WithVideos(cfg.Videos),
					job.WithSeed(seed+uint64(len(e.jobs))),
					job.WithOutput(e.out),
					job.WithLogger(e.logger),
					job.WithScores(e.scores))
				e.jobs = append(e.jobs, j)
			}
		}
	}
	return e, nil
}

// RunDirectory returns a fresh directory name below the configured
// directory, or "" when none is configured
func RunDirectory(cfg *config.ExperimentConfig) string {
	if cfg.Directory == "" {
		return ""
	}
	stamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(cfg.Directory, fmt.Sprintf("%s-%s-%s", stamp, cfg.Name, uuid.New().String()[:8]))
}

func (e *Experiment) Jobs() []*job.Job {
	return e.jobs
}

// Directory returns the run directory, or "" when nothing is written
func (e *Experiment) Directory() string {
	return e.directory
}

func (e *Experiment) GetStatus() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	status := e.status
	status.Errors = append([]error(nil), e.status.Errors...)
	return status
}

// Run executes every job, at most Parallel at a time. A failing job does
// not affect the others; Run reports ErrJobsFailed once all are done.
func (e *Experiment) Run(ctx context.Context) error {
	e.mu.Lock()
	e.status.Running = true
	e.status.StartTime = time.Now()
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.status.Running = false
		e.status.EndTime = time.Now()
		e.mu.Unlock()
	}()

	done, err := e.collectScores()
	if err != nil {
		return err
	}

	lock := &sync.Mutex{}
	g := new(errgroup.Group)
	g.SetLimit(e.config.Parallel)
	for _, j := range e.jobs {
		g.Go(func() error {
			if err := j.Run(ctx, lock); err != nil {
				e.mu.Lock()
				e.status.Errors = append(e.status.Errors, errors.Wrapf(err, "job %s", j.ID()))
				e.mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()
	if err := done(); err != nil {
		e.logger.Warn("failed to write scores", "error", err)
	}

	failed := len(e.GetStatus().Errors)
	e.logger.Info("experiment finished", "jobs", len(e.jobs), "failed", failed)
	if failed > 0 {
		return errors.Wrapf(ErrJobsFailed, "%d of %d", failed, len(e.jobs))
	}
	return nil
}

// collectScores writes published epoch scores to scores.csv until the
// returned function is called
func (e *Experiment) collectScores() (func() error, error) {
	if e.directory == "" {
		return func() error { return nil }, nil
	}
	if err := os.MkdirAll(e.directory, 0o755); err != nil {
		return nil, errors.Wrap(err, "create experiment directory")
	}
	f, err := os.Create(filepath.Join(e.directory, "scores.csv"))
	if err != nil {
		return nil, errors.Wrap(err, "create scores file")
	}
	scores, cancel := e.scores.Subscribe(1024)

	w := csv.NewWriter(f)
	w.Write([]string{"job", "environment", "algorithm", "epoch", "train_step", "score", "episodes"})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for score := range scores {
			w.Write([]string{
				score.Job,
				score.Environment,
				score.Algorithm,
				strconv.Itoa(score.Epoch),
				strconv.FormatInt(score.TrainStep, 10),
				strconv.FormatFloat(score.Score, 'f', 4, 64),
				strconv.Itoa(score.Episodes),
			})
		}
	}()

	return func() error {
		cancel()
		<-finished
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}, nil
}
