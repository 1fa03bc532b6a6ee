package racelog

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racelog/racelog/internal/testutil"
)

func parseString(t *testing.T, text string) *Log {
	t.Helper()
	log, err := Parse(strings.NewReader(text), LoadOptions{})
	require.NoError(t, err)
	return log
}

func requireContiguous(t *testing.T, ep *Episode) {
	t.Helper()
	for i, e := range ep.Events {
		require.Equal(t, ep.ID, e.Episode, "episode %d position %d", ep.ID, i)
		require.Equal(t, i+1, e.Step, "episode %d position %d", ep.ID, i)
	}
}

func TestParse_SingleCompleteEpisode(t *testing.T) {
	// GIVEN a log with one 3-step episode ending in lap completion
	var b testutil.LogBuilder
	b.Steps(testutil.Straight(0, 3, true)...)

	// WHEN parsed
	log := parseString(t, b.String())

	// THEN exactly one complete episode is produced
	require.Len(t, log.Episodes, 1)
	ep := log.Episodes[0]
	assert.Equal(t, 3, ep.StepCount)
	assert.True(t, ep.LapComplete)
	assert.Equal(t, 100.0, ep.PercentComplete)
	requireContiguous(t, ep)
}

func TestParse_InterleavedWorkers(t *testing.T) {
	// GIVEN step lines of episodes 0 and 1 from two workers, out of step order
	a := testutil.Straight(0, 4, false)
	b := testutil.Straight(1, 3, true)
	var lb testutil.LogBuilder
	lb.Steps(a[0], b[0], a[2], b[1], a[1], b[2], a[3])

	// WHEN parsed
	log := parseString(t, lb.String())

	// THEN both episodes come out contiguous and ascending
	require.Len(t, log.Episodes, 2)
	assert.Equal(t, 0, log.Episodes[0].ID)
	assert.Equal(t, 4, log.Episodes[0].StepCount)
	assert.Equal(t, 1, log.Episodes[1].ID)
	assert.Equal(t, 3, log.Episodes[1].StepCount)
	for _, ep := range log.Episodes {
		requireContiguous(t, ep)
	}
}

func TestParse_EvaluationCountMismatchIsFatal(t *testing.T) {
	// GIVEN an evaluation block declaring 5 evaluations but listing 4
	var b testutil.LogBuilder
	b.Steps(testutil.Straight(0, 3, true)...).
		Line("Evaluation episode reward: 1.0").
		Line("Evaluation episode reward: 2.0").
		Line("Evaluation episode reward: 3.0").
		Line("Evaluation episode reward: 4.0").
		Line("Number of evaluations: 5 Evaluation progresses: [100.0, 20.0, 30.0, 40.0]")

	// WHEN parsed
	log, err := Parse(strings.NewReader(b.String()), LoadOptions{})

	// THEN the parse fails without a partial result and names the line
	require.Error(t, err)
	assert.Nil(t, log)
	assert.True(t, errors.Is(err, ErrMalformed))
	assert.Contains(t, err.Error(), "line 8")
}

func TestParse_MalformedActionSpaceIsFatal(t *testing.T) {
	var b testutil.LogBuilder
	b.Line(`Action space from file: [{'index': 3, 'speed': 1.0, 'steering_angle': 0.0}]`).
		Steps(testutil.Straight(0, 2, true)...)

	_, err := Parse(strings.NewReader(b.String()), LoadOptions{})

	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestParse_DesyncIsFatal(t *testing.T) {
	// GIVEN episode 0 missing its first step, with more pending than the bound
	var b testutil.LogBuilder
	b.Steps(testutil.Straight(0, 6, true)[1:]...)

	// WHEN parsed with a small orphan bound
	_, err := Parse(strings.NewReader(b.String()), LoadOptions{Assembler: AssemblerConfig{MaxOrphans: 4}})

	// THEN desynchronization aborts the parse
	assert.True(t, errors.Is(err, ErrDesync))
}

func TestParse_TolerantOfNoise(t *testing.T) {
	// GIVEN unrecognised lines, a truncated step record and a duplicate
	steps := testutil.Straight(0, 3, true)
	var b testutil.LogBuilder
	b.Line("some reward function output").
		Steps(steps[0]).
		Line("SIM_TRACE_LOG:0,2,1.0").
		Steps(steps[1], steps[1]).
		Line("another debug line").
		Line("and one more").
		Steps(steps[2])

	// WHEN parsed
	log := parseString(t, b.String())

	// THEN the episode is intact and debug text rides on the next step
	require.Len(t, log.Episodes, 1)
	ep := log.Episodes[0]
	assert.Equal(t, 3, ep.StepCount)
	assert.Equal(t, "some reward function output\n", ep.Events[0].Debug)
	assert.Empty(t, ep.Events[1].Debug)
	assert.Equal(t, "another debug line\nand one more\n", ep.Events[2].Debug)
}

func TestParse_DiscardsTrailingEpisode(t *testing.T) {
	var b testutil.LogBuilder
	b.Steps(testutil.Straight(0, 3, true)...).
		Steps(testutil.Straight(1, 5, false)[:4]...)

	log := parseString(t, b.String())

	require.Len(t, log.Episodes, 1)
	assert.Equal(t, 0, log.Episodes[0].ID)
}

func TestParse_EmptyInput(t *testing.T) {
	log := parseString(t, "")
	assert.Empty(t, log.Episodes)
	assert.Empty(t, log.Evaluations)
	assert.Equal(t, EpisodeStats{}, log.Meta.Stats)
}

func TestParse_HeaderIterationsAndEvaluations(t *testing.T) {
	// GIVEN a training log with 2 episodes per iteration and an evaluation
	// after the first iteration
	var b testutil.LogBuilder
	b.Header(2).
		Steps(testutil.Straight(0, 3, true)...).
		Steps(testutil.Straight(1, 3, false)...).
		Line("Evaluation episode reward: 10.5").
		Line("Evaluation episode reward: 3.0").
		Line("Number of evaluations: 2 Evaluation progresses: [100.0, 45.0]").
		Steps(testutil.Straight(2, 3, true)...).
		Steps(testutil.Straight(3, 3, true)...).
		Steps(testutil.Straight(4, 3, false)...)

	// WHEN parsed
	log := parseString(t, b.String())

	// THEN meta is filled and episodes are numbered into iterations
	assert.Equal(t, "my-model", log.Meta.ModelName)
	assert.Equal(t, "reInvent2019_track", log.Meta.WorldName)
	assert.Equal(t, "TIME_TRIAL", log.Meta.RaceType)
	assert.Equal(t, "TRAINING", log.Meta.JobType)
	assert.Equal(t, 64, log.Meta.Hyperparameters.BatchSize)
	assert.Equal(t, 2, log.Meta.Hyperparameters.EpisodesPerIteration)
	assert.Len(t, log.Meta.ActionSpace, 2)

	require.Len(t, log.Episodes, 5)
	var iterations []int
	for _, ep := range log.Episodes {
		iterations = append(iterations, ep.Iteration)
	}
	assert.Equal(t, []int{0, 0, 1, 1, 2}, iterations)

	require.Len(t, log.Evaluations, 1)
	phase := log.Evaluations[0]
	assert.Equal(t, 1, phase.Iteration)
	assert.Equal(t, []float64{10.5, 3.0}, phase.Rewards)
	assert.Equal(t, []float64{100, 45}, phase.Progresses)

	stats := log.Meta.Stats
	assert.Equal(t, 5, stats.EpisodeCount)
	assert.Equal(t, 3, stats.SuccessCount)
	assert.Equal(t, 3, stats.IterationCount)
	assert.InDelta(t, 60, stats.SuccessPercent, 1e-9)
}

type recordingProgress struct {
	calls       int
	done, total int64
}

func (p *recordingProgress) Report(done, total int64) {
	p.calls++
	p.done, p.total = done, total
}

func TestLoadFile_IsIdempotent(t *testing.T) {
	// GIVEN a log file on disk
	var b testutil.LogBuilder
	b.Header(1)
	for i := 0; i < 4; i++ {
		b.Steps(testutil.Straight(i, 5+i, i%2 == 0)...)
	}
	path := b.WriteFile(t, "training.log")

	// WHEN loaded twice
	first, err := LoadFile(path, LoadOptions{})
	require.NoError(t, err)
	second, err := LoadFile(path, LoadOptions{})
	require.NoError(t, err)

	// THEN both loads agree in every field
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("re-parse differs (-first +second):\n%s", diff)
	}
	assert.Len(t, first.Episodes, 4)
}

func TestLoadFile_ReportsProgress(t *testing.T) {
	var b testutil.LogBuilder
	b.Steps(testutil.Straight(0, 3, true)...)
	path := b.WriteFile(t, "training.log")
	info, err := os.Stat(path)
	require.NoError(t, err)

	progress := &recordingProgress{}
	_, err = LoadFile(path, LoadOptions{Progress: progress})
	require.NoError(t, err)

	assert.Positive(t, progress.calls)
	assert.Equal(t, info.Size(), progress.done)
	assert.Equal(t, info.Size(), progress.total)
}

func TestLoadFiles_MergesWorkersByEpisode(t *testing.T) {
	// GIVEN two worker files, each numbering its episodes from 0
	var w1, w2 testutil.LogBuilder
	w1.Steps(testutil.Straight(0, 3, true)...).Steps(testutil.Straight(1, 4, true)...)
	w2.Steps(testutil.Straight(0, 5, false)...).Steps(testutil.Straight(1, 6, true)...)
	p1 := w1.WriteFile(t, "worker-0.log")
	p2 := w2.WriteFile(t, "worker-1.log")

	// WHEN loaded together
	log, err := LoadFiles([]string{p1, p2}, LoadOptions{})
	require.NoError(t, err)

	// THEN episodes are ordered by index, ties in file order
	var counts []int
	for _, ep := range log.Episodes {
		counts = append(counts, ep.StepCount)
		requireContiguous(t, ep)
	}
	assert.Equal(t, []int{3, 5, 4, 6}, counts)
	assert.Equal(t, []string{p1, p2}, log.Sources)
}

func TestLoadFile_ErrorNamesFile(t *testing.T) {
	var b testutil.LogBuilder
	b.Line("Number of evaluations: 2 Evaluation progresses: [1.0]")
	path := b.WriteFile(t, "broken.log")

	log, err := LoadFile(path, LoadOptions{})

	require.Error(t, err)
	assert.Nil(t, log)
	assert.Contains(t, err.Error(), "parsing "+path+" line 1")
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile("/nonexistent/racelog/training.log", LoadOptions{})
	assert.Error(t, err)
}
