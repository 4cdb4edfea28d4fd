package environment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/boristopalov/mindpark/pkg/core"
)

// Frame is one recorded tick of an episode
type Frame struct {
	Observation core.Observation `json:"observation"`
	Action      core.Action      `json:"action,omitempty"`
	Reward      float64          `json:"reward"`
	Done        bool             `json:"done"`
}

// Recorder writes approved episodes as JSON lines below
// <directory>/videos. The video callback is consulted once per episode,
// when it is reset. Backends without rendering are recorded as their
// trajectories.
type Recorder struct {
	core.Environment
	directory string
	video     core.VideoFunc

	episode int64
	file    *os.File
	encoder *json.Encoder
}

func NewRecorder(env core.Environment, directory string, video core.VideoFunc) *Recorder {
	return &Recorder{Environment: env, directory: directory, video: video}
}

// Recording reports whether the current episode is being recorded
func (r *Recorder) Recording() bool {
	return r.file != nil
}

func (r *Recorder) Reset() (core.Observation, error) {
	if err := r.finish(); err != nil {
		return nil, err
	}
	obs, err := r.Environment.Reset()
	if err != nil {
		return nil, err
	}
	episode := r.episode
	r.episode++
	if r.video == nil || !r.video(episode) {
		return obs, nil
	}
	if err := r.start(episode); err != nil {
		return nil, err
	}
	return obs, r.write(Frame{Observation: obs})
}

func (r *Recorder) Step(action core.Action) (core.Observation, float64, bool, error) {
	obs, reward, done, err := r.Environment.Step(action)
	if err != nil || r.file == nil {
		return obs, reward, done, err
	}
	if err := r.write(Frame{Observation: obs, Action: action, Reward: reward, Done: done}); err != nil {
		return nil, 0, false, err
	}
	if done {
		return obs, reward, done, r.finish()
	}
	return obs, reward, done, nil
}

func (r *Recorder) Close() error {
	ferr := r.finish()
	if err := r.Environment.Close(); err != nil {
		return err
	}
	return ferr
}

func (r *Recorder) start(episode int64) error {
	dir := filepath.Join(r.directory, "videos")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create video directory")
	}
	path := filepath.Join(dir, fmt.Sprintf("episode-%06d.jsonl", episode))
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create video file")
	}
	r.file = f
	r.encoder = json.NewEncoder(f)
	return nil
}

func (r *Recorder) write(frame Frame) error {
	return errors.Wrap(r.encoder.Encode(frame), "write video frame")
}

func (r *Recorder) finish() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file, r.encoder = nil, nil
	return errors.Wrap(err, "close video file")
}
