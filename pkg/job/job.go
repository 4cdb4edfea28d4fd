// Package job drives one algorithm on one environment through
// alternating testing and training epochs.
package job

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/boristopalov/mindpark/pkg/algorithm"
	"github.com/boristopalov/mindpark/pkg/core"
	"github.com/boristopalov/mindpark/pkg/environment"
	"github.com/boristopalov/mindpark/pkg/messaging"
	"github.com/boristopalov/mindpark/pkg/simulator"
	"github.com/boristopalov/mindpark/pkg/step"
)

// EnvironmentFactory creates an environment by name
type EnvironmentFactory func(name, directory string, video core.VideoFunc) (core.Environment, error)

// AlgorithmFactory instantiates an algorithm definition
type AlgorithmFactory func(def algorithm.Definition, iface core.Interface, rng *rand.Rand) (core.Algorithm, error)

type Params struct {
	ID             string
	Prefix         string
	Videos         int
	Seed           uint64
	Output         io.Writer
	Logger         *slog.Logger
	Scores         messaging.Publisher
	NewEnvironment EnvironmentFactory
	NewAlgorithm   AlgorithmFactory
}

type Option func(*Params)

func WithID(id string) Option {
	return func(p *Params) {
		p.ID = id
	}
}

// WithPrefix sets the string every console line of the job starts with
func WithPrefix(prefix string) Option {
	return func(p *Params) {
		p.Prefix = prefix
	}
}

// WithVideos sets how many testing episodes are recorded per epoch
func WithVideos(n int) Option {
	return func(p *Params) {
		p.Videos = n
	}
}

func WithSeed(seed uint64) Option {
	return func(p *Params) {
		p.Seed = seed
	}
}

func WithOutput(w io.Writer) Option {
	return func(p *Params) {
		p.Output = w
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Params) {
		p.Logger = logger
	}
}

// WithScores publishes an EpochScore after every testing phase
func WithScores(scores messaging.Publisher) Option {
	return func(p *Params) {
		p.Scores = scores
	}
}

func WithEnvironmentFactory(f EnvironmentFactory) Option {
	return func(p *Params) {
		p.NewEnvironment = f
	}
}

func WithAlgorithmFactory(f AlgorithmFactory) Option {
	return func(p *Params) {
		p.NewAlgorithm = f
	}
}

func defaultParams() *Params {
	id := uuid.New().String()
	return &Params{
		ID:           id,
		Prefix:       id[:8],
		Seed:         uint64(time.Now().UnixNano()),
		Output:       os.Stdout,
		Logger:       slog.Default(),
		NewAlgorithm: algorithm.New,
	}
}

// Job owns a training and a testing task, the algorithm it builds from
// its definition and every environment it creates. A job can be built
// ahead of time and run later; the algorithm and environments only
// exist during Run.
type Job struct {
	params  *Params
	train   *core.Task
	test    *core.Task
	envName string
	algoDef algorithm.Definition
	epochs  int
	logger  *slog.Logger
	rng     *rand.Rand

	active          atomic.Pointer[core.Task]
	remainingVideos atomic.Int64
	envs            []core.Environment
}

func New(train, test *core.Task, envName string, def algorithm.Definition, opts ...Option) *Job {
	params := defaultParams()
	for _, opt := range opts {
		opt(params)
	}
	j := &Job{
		params:  params,
		train:   train,
		test:    test,
		envName: envName,
		algoDef: def,
		epochs:  max(train.Epochs, test.Epochs),
		logger:  params.Logger.With("job", params.ID),
		rng:     rand.New(rand.NewPCG(params.Seed, params.Seed^0x9e3779b97f4a7c15)),
	}
	if j.params.NewEnvironment == nil {
		j.params.NewEnvironment = func(name, directory string, video core.VideoFunc) (core.Environment, error) {
			return environment.Make(name, directory, video, environment.WithSeed(j.rng.Uint64()))
		}
	}
	j.active.Store(train)
	return j
}

func (j *Job) ID() string {
	return j.params.ID
}

// Directory returns where the job writes its artifacts, or "" when it
// writes none
func (j *Job) Directory() string {
	return j.train.Directory
}

// Run executes the job. lock serializes the job's start banner and error
// summary with those of concurrently running jobs and is held for
// nothing else.
//
// A failure stops the job: it is appended to errors.txt in the job
// directory, summarized on the console and returned. Panics are
// returned as core.PanicError. Every environment the job created is closed
// before Run returns.
func (j *Job) Run(ctx context.Context, lock sync.Locker) (err error) {
	lock.Lock()
	fmt.Fprintf(j.params.Output, "%s === Start job ===\n", j.params.Prefix)
	lock.Unlock()

	if dir := j.Directory(); dir != "" {
		if err := algorithm.Dump(j.algoDef, dir); err != nil {
			j.logger.Warn("failed to dump algorithm", "error", err)
		}
	}

	defer j.closeEnvironments()
	if err = j.run(ctx); err != nil {
		j.report(lock, err)
	}
	return err
}

func (j *Job) run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = core.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	testEnv, err := j.createEnvironment(j.Directory())
	if err != nil {
		return err
	}
	algo, err := j.params.NewAlgorithm(j.algoDef, testEnv.Interface(), j.rng)
	if err != nil {
		return errors.Wrap(err, "create algorithm")
	}
	training, err := j.createTraining(algo)
	if err != nil {
		return err
	}
	testing, err := j.createTesting(algo, testEnv)
	if err != nil {
		return err
	}

	j.logger.Info("job started",
		"environment", j.envName,
		"algorithm", j.algoDef.Label(),
		"epochs", j.epochs)
	for epoch := range j.epochs {
		if err := j.epoch(ctx, epoch, algo, training, testing); err != nil {
			return err
		}
	}
	j.logger.Info("job finished", "train_step", j.train.Step())
	return nil
}

func (j *Job) epoch(ctx context.Context, epoch int, algo core.Algorithm, training, testing *simulator.Simulator) error {
	j.remainingVideos.Store(int64(j.params.Videos))
	if err := algo.BeginEpoch(); err != nil {
		return errors.Wrap(err, "begin epoch")
	}

	j.active.Store(j.test)
	score, err := testing.Run(ctx)
	if err != nil {
		return err
	}
	j.printScore(epoch, score)
	j.publish(epoch, score)

	j.active.Store(j.train)
	if _, err := training.Run(ctx); err != nil {
		return err
	}
	return errors.Wrap(algo.EndEpoch(), "end epoch")
}

func (j *Job) createTraining(algo core.Algorithm) (*simulator.Simulator, error) {
	board := step.NewScoreboard()
	var chains []core.Step
	var envs []core.Environment
	for _, policy := range algo.TrainPolicies() {
		env, err := j.createEnvironment("")
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
		chains = append(chains, j.prependScore(policy, env.Interface(), board))
	}
	return simulator.New(j.train, chains, envs, board, simulator.WithLogger(j.logger))
}

func (j *Job) createTesting(algo core.Algorithm, env core.Environment) (*simulator.Simulator, error) {
	board := step.NewScoreboard()
	chains := []core.Step{j.prependScore(algo.TestPolicy(), env.Interface(), board)}
	return simulator.New(j.test, chains, []core.Environment{env}, board, simulator.WithLogger(j.logger))
}

func (j *Job) createEnvironment(directory string) (core.Environment, error) {
	env, err := j.params.NewEnvironment(j.envName, directory, j.VideoCallback)
	if err != nil {
		return nil, errors.Wrap(err, "create environment")
	}
	j.envs = append(j.envs, env)
	return env, nil
}

func (j *Job) prependScore(policy core.Step, iface core.Interface, board *step.Scoreboard) core.Step {
	return step.NewSequential(step.NewScore(iface, j.rng, board), policy)
}

func (j *Job) closeEnvironments() {
	for _, env := range j.envs {
		if err := env.Close(); err != nil {
			j.logger.Warn("failed to close environment", "error", err)
		}
	}
	j.envs = nil
}

// VideoCallback decides whether the testing environment records its
// next episode. At most Videos episodes are recorded per epoch, and
// never while training.
func (j *Job) VideoCallback(episode int64) bool {
	if j.active.Load() == j.train {
		return false
	}
	for {
		remaining := j.remainingVideos.Load()
		if remaining <= 0 {
			return false
		}
		if j.remainingVideos.CompareAndSwap(remaining, remaining-1) {
			return true
		}
	}
}

func (j *Job) printScore(epoch int, score simulator.Score) {
	if epoch == 0 {
		fmt.Fprintf(j.params.Output, "%s Before training average score %s\n", j.params.Prefix, score)
		return
	}
	fmt.Fprintf(j.params.Output, "%s Epoch %d train step %d average score %s\n",
		j.params.Prefix, epoch, j.train.Step(), score)
}

func (j *Job) publish(epoch int, score simulator.Score) {
	if j.params.Scores == nil {
		return
	}
	err := j.params.Scores.Publish(messaging.EpochScore{
		Job:         j.params.ID,
		Environment: j.envName,
		Algorithm:   j.algoDef.Label(),
		Epoch:       epoch,
		TrainStep:   j.train.Step(),
		Score:       score.Mean,
		Episodes:    score.Episodes,
		Time:        time.Now(),
	})
	if err != nil {
		j.logger.Warn("failed to publish score", "error", err)
	}
}

func (j *Job) report(lock sync.Locker, err error) {
	message := fmt.Sprintf("%s (%s)", err, Kind(err))
	j.logger.Error("job failed", "error", err)

	if dir := j.Directory(); dir != "" {
		if werr := appendError(filepath.Join(dir, "errors.txt"), message, err); werr != nil {
			j.logger.Error("failed to write error log", "error", werr)
		}
	}

	lock.Lock()
	defer lock.Unlock()
	fmt.Fprintln(j.params.Output, j.params.Prefix, message)
}

func appendError(path, message string, err error) error {
	if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
		return mkErr
	}
	f, ferr := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if ferr != nil {
		return ferr
	}
	if _, werr := fmt.Fprintf(f, "%s:\n%+v\n\n", message, err); werr != nil {
		f.Close()
		return werr
	}
	return f.Close()
}
