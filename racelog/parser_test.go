package racelog

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racelog/racelog/racelog/geometry"
)

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		want LineKind
	}{
		{"SIM_TRACE_LOG:0,1,2.5,0.7,90,0,1,0,1,False,True,0.5,2,17.7,10.0,in_progress", LineStep},
		{"  SIM_TRACE_LOG:0,1,2.5,0.7,90,0,1,0,1,False,True,0.5,2,17.7,10.0,in_progress", LineStep},
		{"[ERROR] sent SIGTERM to sim SIM_TRACE_LOG:3,7,2.5,0.7,90,0,1,0,1,False,True,0.5,2,17.7,10.0,in_progress", LineStep},
		{`  "batch_size": 64,`, LineHyperparameter},
		{`  "lr": 0.0003,`, LineHyperparameter},
		{` * /WORLD_NAME: reInvent2019_track`, LineRunParameter},
		{` * /JOB_TYPE: EVALUATION`, LineRunParameter},
		{`Successfully loaded model metadata from local file ./models/fast/model/model_metadata.json`, LineModelName},
		{`[s3] Successfully downloaded model metadata from s3 key fast/model/model_metadata.json to local x`, LineModelName},
		{`Successfully downloaded yaml file from s3 key fast/training_params.yaml to local x`, LineModelName},
		{`Action space from file: [{'index': 0, 'speed': 1.0, 'steering_angle': 0.0}]`, LineActionSpace},
		{`Object locations: [(1.0, 2.0)]`, LineObjectLocations},
		{`Evaluation episode reward: 12.5`, LineEvaluationReward},
		{`Number of evaluations: 2 Evaluation progresses: [100.0, 55.2]`, LineEvaluationProgress},
		{`reward function says hello`, LineDebug},
		{``, LineDebug},
		{`sent SIGTERM to process 42`, LineDebug},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ClassifyLine(tc.line), "line %q", tc.line)
	}
}

func TestParseStep_DecodesAllFields(t *testing.T) {
	// GIVEN a step record with one trailing column a newer simulator adds
	line := "SIM_TRACE_LOG:12,34,2.5,-0.75,91.5,-15,2.2,3,0.8,False,True,17.25,40,23.12,1554.92,off_track,extra"

	// WHEN parsed
	e, err := ParseStep(line)

	// THEN every positional field lands in its Event field
	require.NoError(t, err)
	want := &Event{
		Episode: 12, Step: 34, X: 2.5, Y: -0.75, Heading: 91.5, SteeringAngle: -15,
		Speed: 2.2, Action: 3, Reward: 0.8, Done: false, AllWheelsOnTrack: true,
		Progress: 17.25, ClosestWaypoint: 40, TrackLength: 23.12, Time: 1554.92,
		Status: StatusOffTrack,
	}
	if diff := cmp.Diff(want, e); diff != "" {
		t.Errorf("ParseStep mismatch (-want +got):\n%s", diff)
	}
}

func TestParseStep_EmbeddedAfterSigterm(t *testing.T) {
	// GIVEN a forced-termination notice with a step record after it
	line := "Job failed, sent SIGTERM to simulation SIM_TRACE_LOG:3,7,1,2,0,0,1,1,0.5,True,True,9,2,17.7,10.5,crashed"

	// WHEN parsed
	e, err := ParseStep(line)

	// THEN the prefix is ignored
	require.NoError(t, err)
	assert.Equal(t, 3, e.Episode)
	assert.Equal(t, 7, e.Step)
	assert.True(t, e.Done)
	assert.Equal(t, StatusCrashed, e.Status)
}

func TestParseStep_WholeFloatIntegers(t *testing.T) {
	e, err := ParseStep("SIM_TRACE_LOG:1.0,2.0,0,0,0,0,1,4.0,0,False,True,0,7.0,10,0,in_progress")
	require.NoError(t, err)
	assert.Equal(t, 1, e.Episode)
	assert.Equal(t, 2, e.Step)
	assert.Equal(t, 4, e.Action)
	assert.Equal(t, 7, e.ClosestWaypoint)
}

func TestParseStep_Rejects(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"no marker", "0,1,2,3"},
		{"truncated record", "SIM_TRACE_LOG:0,1,2.5,0.7,90"},
		{"bad float", "SIM_TRACE_LOG:0,1,abc,0.7,90,0,1,0,1,False,True,0.5,2,17.7,10.0,in_progress"},
		{"fractional step", "SIM_TRACE_LOG:0,1.5,0,0.7,90,0,1,0,1,False,True,0.5,2,17.7,10.0,in_progress"},
		{"bad bool", "SIM_TRACE_LOG:0,1,0,0.7,90,0,1,0,1,maybe,True,0.5,2,17.7,10.0,in_progress"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseStep(tc.line)
			assert.Error(t, err)
		})
	}
}

func TestParseEvaluationProgresses(t *testing.T) {
	got, err := ParseEvaluationProgresses("Number of evaluations: 3 Evaluation progresses: [100.0, 42.5, 7]")
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 42.5, 7}, got)

	got, err = ParseEvaluationProgresses("Number of evaluations: 0 Evaluation progresses: []")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseEvaluationProgresses_CountMismatchIsMalformed(t *testing.T) {
	// GIVEN a declared count of 5 with only 4 values
	line := "Number of evaluations: 5 Evaluation progresses: [100.0, 20.0, 30.0, 40.0]"

	// WHEN parsed
	_, err := ParseEvaluationProgresses(line)

	// THEN the structural cross-check fails
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestParseEvaluationReward(t *testing.T) {
	r, err := ParseEvaluationReward("Evaluation episode reward: -3.25")
	require.NoError(t, err)
	assert.Equal(t, -3.25, r)

	_, err = ParseEvaluationReward("Evaluation episode reward: nan-ish")
	assert.Error(t, err)
}

func TestParseHeaderLine_BuildsMeta(t *testing.T) {
	// GIVEN the header block of a training log
	lines := []string{
		`  "batch_size": 64,`,
		`  "beta_entropy": 0.01,`,
		`  "discount_factor": 0.999,`,
		`  "loss_type": "huber",`,
		`  "lr": 0.0003,`,
		`  "num_episodes_between_training": 20,`,
		`  "num_epochs": 10,`,
		`  "exploration_type": "categorical",`,
		`  "stack_size": 1,`,
		`  "term_cond_max_episodes": 100000,`,
		`  "term_cond_avg_score": 350.0`,
		` * /WORLD_NAME: reInvent2019_track`,
		` * /RACE_TYPE: OBJECT_AVOIDANCE`,
		` * /JOB_TYPE: TRAINING`,
		`[s3] Successfully downloaded model metadata from s3 key fast-model/model/model_metadata.json to local ./x.json.`,
		`Successfully loaded model metadata from local file ./other/model/model_metadata.json`,
		`Object locations: [(1.5, -2.0), (3, 4.25)]`,
	}

	// WHEN each line is applied
	var meta LogMeta
	for _, line := range lines {
		require.NoError(t, ParseHeaderLine(ClassifyLine(line), line, &meta), line)
	}

	// THEN every field is populated and the first model name wins
	want := LogMeta{
		ModelName: "fast-model",
		WorldName: "reInvent2019_track",
		RaceType:  "OBJECT_AVOIDANCE",
		JobType:   "TRAINING",
		Hyperparameters: Hyperparameters{
			BatchSize: 64, BetaEntropy: 0.01, DiscountFactor: 0.999, LossType: "huber",
			LearningRate: 0.0003, EpisodesPerIteration: 20, Epochs: 10,
			ExplorationType: "categorical", StackSize: 1, TermCondMaxEpisodes: 100000,
			TermCondAvgScore: 350,
		},
		ObjectLocations: []geometry.Point{{X: 1.5, Y: -2}, {X: 3, Y: 4.25}},
	}
	if diff := cmp.Diff(want, meta); diff != "" {
		t.Errorf("meta mismatch (-want +got):\n%s", diff)
	}
}

func TestParseHeaderLine_ModelNameVariants(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{`Successfully loaded model metadata from local file ./models/alpha/model/model_metadata.json`, "alpha"},
		{`Successfully loaded model metadata from local file /tmp/beta/model_metadata.json`, "beta"},
		{`Successfully downloaded model metadata from s3 key gamma/model/model_metadata.json to local x`, "gamma"},
		{`[s3] Successfully downloaded model metadata from s3 key delta/model/model_metadata.json to local x`, "delta"},
		{`Successfully downloaded yaml file from s3 key epsilon/training_params.yaml to local x`, "epsilon"},
	}
	for _, tc := range tests {
		var meta LogMeta
		require.NoError(t, ParseHeaderLine(LineModelName, tc.line, &meta))
		assert.Equal(t, tc.want, meta.ModelName, tc.line)
	}
}

func TestParseHeaderLine_BadHyperparameterReportsError(t *testing.T) {
	var meta LogMeta
	err := ParseHeaderLine(LineHyperparameter, `"batch_size": lots,`, &meta)
	assert.Error(t, err)
	assert.Zero(t, meta.Hyperparameters.BatchSize)
}

func TestParseActionSpace(t *testing.T) {
	actions, err := ParseActionSpace(`Action space from file: [{'index': 0, 'speed': 1.5, 'steering_angle': -30.0}, {'index': 1, 'speed': 3.0, 'steering_angle': 0.0}]`)
	require.NoError(t, err)
	assert.Equal(t, []Action{{Index: 0, Speed: 1.5, SteeringAngle: -30}, {Index: 1, Speed: 3, SteeringAngle: 0}}, actions)
}

func TestParseActionSpace_Malformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"not json", `Action space from file: [{'index': 0, 'speed': }]`},
		{"index out of order", `Action space from file: [{'index': 1, 'speed': 1.0, 'steering_angle': 0.0}]`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseActionSpace(tc.line)
			assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
		})
	}
}
