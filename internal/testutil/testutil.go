// Package testutil provides shared test infrastructure for the racelog
// packages: float assertions and a builder for synthetic trace logs.
package testutil

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// Step describes one step record. Zero values are written as-is, except
// Status which defaults to in_progress and TrackLength which defaults to
// 100.
type Step struct {
	Episode     int
	Step        int
	X, Y        float64
	Heading     float64
	Steering    float64
	Speed       float64
	Action      int
	Reward      float64
	Done        bool
	OffTrack    bool
	Progress    float64
	Waypoint    int
	TrackLength float64
	Time        float64
	Status      string
}

// Line renders the step as a SIM_TRACE_LOG record.
func (s Step) Line() string {
	status := s.Status
	if status == "" {
		status = "in_progress"
	}
	trackLength := s.TrackLength
	if trackLength == 0 {
		trackLength = 100
	}
	return fmt.Sprintf("SIM_TRACE_LOG:%d,%d,%g,%g,%g,%g,%g,%d,%g,%t,%t,%g,%d,%g,%g,%s,",
		s.Episode, s.Step, s.X, s.Y, s.Heading, s.Steering, s.Speed, s.Action, s.Reward,
		s.Done, !s.OffTrack, s.Progress, s.Waypoint, trackLength, s.Time, status)
}

// Straight returns the steps of one episode driving along the x axis at
// 1 m per step, 0.1 s per step, gaining 10% progress per step. The last
// step is done and, when complete is set, lap_complete.
func Straight(episode, steps int, complete bool) []Step {
	out := make([]Step, steps)
	for i := range out {
		out[i] = Step{
			Episode:  episode,
			Step:     i + 1,
			X:        float64(i),
			Speed:    1,
			Action:   i % 2,
			Reward:   1,
			Progress: float64(i+1) * 10,
			Time:     float64(i) * 0.1,
		}
	}
	last := &out[steps-1]
	last.Done = true
	if complete {
		last.Status = "lap_complete"
		last.Progress = 100
	} else {
		last.Status = "off_track"
		last.OffTrack = true
	}
	return out
}

// LogBuilder accumulates trace log lines.
type LogBuilder struct {
	lines []string
}

// Line appends a raw line.
func (b *LogBuilder) Line(line string) *LogBuilder {
	b.lines = append(b.lines, line)
	return b
}

// Steps appends step records in the given order.
func (b *LogBuilder) Steps(steps ...Step) *LogBuilder {
	for _, s := range steps {
		b.lines = append(b.lines, s.Line())
	}
	return b
}

// Header appends a typical training header: hyperparameters, run
// parameters, model name and a two-entry action space.
func (b *LogBuilder) Header(episodesPerIteration int) *LogBuilder {
	return b.
		Line(`  "batch_size": 64,`).
		Line(`  "discount_factor": 0.99,`).
		Line(`  "lr": 0.0003,`).
		Line(`  "loss_type": "huber",`).
		Line(fmt.Sprintf(`  "num_episodes_between_training": %d,`, episodesPerIteration)).
		Line(`  "num_epochs": 10,`).
		Line(` * /WORLD_NAME: reInvent2019_track`).
		Line(` * /RACE_TYPE: TIME_TRIAL`).
		Line(` * /JOB_TYPE: TRAINING`).
		Line(`Successfully downloaded model metadata from s3 key my-model/model/model_metadata.json to local ./custom_files/agent/model_metadata.json.`).
		Line(`Action space from file: [{'index': 0, 'speed': 1.0, 'steering_angle': -30.0}, {'index': 1, 'speed': 2.0, 'steering_angle': 30.0}]`)
}

// String returns the log text.
func (b *LogBuilder) String() string {
	return strings.Join(b.lines, "\n") + "\n"
}

// WriteFile writes the log into a test temp dir and returns its path.
func (b *LogBuilder) WriteFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}
