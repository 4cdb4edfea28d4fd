package environment

import (
	"bufio"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/boristopalov/mindpark/pkg/core"
)

func TestNames(t *testing.T) {
	want := []string{"Bandit-v0", "Corridor-v0", "Corridor-v1"}
	if diff := cmp.Diff(want, Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestMakeUnknown(t *testing.T) {
	_, err := Make("Pong-v0", "", nil)
	if !errors.Is(err, ErrUnknownEnvironment) {
		t.Errorf("Make(unknown) = %v, want ErrUnknownEnvironment", err)
	}
}

func TestCorridorReachesGoal(t *testing.T) {
	env := NewCorridor(rand.New(rand.NewPCG(1, 1)), 4)
	env.slip = 0
	obs, err := env.Reset()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(core.Observation{1, 0, 0, 0}, obs); diff != "" {
		t.Errorf("initial observation mismatch (-want +got):\n%s", diff)
	}
	right := core.Action{0, 1}
	var total float64
	for i := range 3 {
		_, reward, done, err := env.Step(right)
		if err != nil {
			t.Fatal(err)
		}
		total += reward
		if done != (i == 2) {
			t.Fatalf("step %d: done = %v", i, done)
		}
	}
	if total < 0.97 || total > 0.99 {
		t.Errorf("episode return = %v, want 0.98", total)
	}
}

func TestMaxSteps(t *testing.T) {
	env, err := Make("Corridor-v0", "", nil, WithMaxSteps(3), WithSeed(7))
	if err != nil {
		t.Fatal(err)
	}
	defer env.Close()
	if _, err := env.Reset(); err != nil {
		t.Fatal(err)
	}
	left := core.Action{1, 0}
	for i := range 3 {
		_, _, done, err := env.Step(left)
		if err != nil {
			t.Fatal(err)
		}
		if done != (i == 2) {
			t.Errorf("step %d: done = %v, want %v", i, done, i == 2)
		}
	}
}

// flakyEnv never ends an episode on its own and fails every failEvery-th
// tick
type flakyEnv struct {
	core.Environment
	ticks     int
	failEvery int
}

func (f *flakyEnv) Reset() (core.Observation, error) {
	return core.Observation{0}, nil
}

func (f *flakyEnv) Step(action core.Action) (core.Observation, float64, bool, error) {
	f.ticks++
	if f.failEvery > 0 && f.ticks%f.failEvery == 0 {
		return nil, 0, false, errors.New("backend hiccup")
	}
	return core.Observation{0}, 0, false, nil
}

func TestMaxStepsLimits(t *testing.T) {
	t.Run("failed ticks do not count", func(t *testing.T) {
		env := &MaxSteps{Environment: &flakyEnv{failEvery: 2}, Limit: 2}
		var done []bool
		for range 4 {
			_, _, d, err := env.Step(core.Action{1})
			if err != nil {
				continue
			}
			done = append(done, d)
		}
		if diff := cmp.Diff([]bool{false, true}, done); diff != "" {
			t.Errorf("done flags mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("no limit", func(t *testing.T) {
		env := &MaxSteps{Environment: &flakyEnv{}}
		for i := range 100 {
			if _, _, done, _ := env.Step(core.Action{1}); done {
				t.Fatalf("episode cut at tick %d without a limit", i)
			}
		}
	})

	t.Run("reset restarts the count", func(t *testing.T) {
		env := &MaxSteps{Environment: &flakyEnv{}, Limit: 2}
		env.Step(core.Action{1})
		env.Reset()
		if _, _, done, _ := env.Step(core.Action{1}); done {
			t.Error("first tick after Reset reported final")
		}
	})
}

func TestClosed(t *testing.T) {
	env, err := Make("Bandit-v0", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := env.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := env.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close = %v, want ErrClosed", err)
	}
	if _, err := env.Reset(); !errors.Is(err, ErrClosed) {
		t.Errorf("Reset after Close = %v, want ErrClosed", err)
	}
}

func TestRecorder(t *testing.T) {
	dir := t.TempDir()
	var asked []int64
	video := func(episode int64) bool {
		asked = append(asked, episode)
		return episode == 1
	}
	env, err := Make("Bandit-v0", dir, video, WithSeed(3))
	if err != nil {
		t.Fatal(err)
	}
	for range 3 {
		if _, err := env.Reset(); err != nil {
			t.Fatal(err)
		}
		if _, _, _, err := env.Step(core.Action{0, 0, 1, 0}); err != nil {
			t.Fatal(err)
		}
	}
	if err := env.Close(); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]int64{0, 1, 2}, asked); diff != "" {
		t.Errorf("video callback calls mismatch (-want +got):\n%s", diff)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "videos"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "episode-000001.jsonl" {
		t.Fatalf("recorded files = %v, want [episode-000001.jsonl]", entries)
	}
	f, err := os.Open(filepath.Join(dir, "videos", entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	lines := 0
	for scanner := bufio.NewScanner(f); scanner.Scan(); {
		lines++
	}
	if lines != 2 {
		t.Errorf("recorded %d frames, want 2", lines)
	}
}
