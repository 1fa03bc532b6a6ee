package racelog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func episodesWithIterations(iterations ...int) []*Episode {
	out := make([]*Episode, len(iterations))
	for i, it := range iterations {
		out[i] = &Episode{ID: i, Iteration: it}
	}
	return out
}

func quarters(episodes []*Episode) []int {
	out := make([]int, len(episodes))
	for i, e := range episodes {
		out[i] = e.Quarter
	}
	return out
}

func TestAssignQuarters_ByPosition(t *testing.T) {
	eps := episodesWithIterations(0, 0, 0, 0, 0, 0, 0, 0)
	AssignQuarters(eps, QuartersByPosition)
	assert.Equal(t, []int{1, 1, 2, 2, 3, 3, 4, 4}, quarters(eps))
}

func TestAssignQuarters_ByIteration(t *testing.T) {
	// GIVEN 8 iterations of uneven size starting at iteration 2
	eps := episodesWithIterations(2, 2, 2, 3, 4, 5, 6, 7, 8, 9, 9)

	// WHEN assigned by iteration
	AssignQuarters(eps, QuartersByIteration)

	// THEN two iterations fall in each quarter regardless of episode count
	assert.Equal(t, []int{1, 1, 1, 1, 2, 2, 3, 3, 4, 4, 4}, quarters(eps))
}

func TestAssignQuarters_AutoFallsBackToPosition(t *testing.T) {
	// GIVEN only two iterations
	eps := episodesWithIterations(0, 0, 0, 0, 1, 1, 1, 1)

	// WHEN assigned automatically
	AssignQuarters(eps, QuartersAuto)

	// THEN ordinal position decides, so all four quarters are used
	assert.Equal(t, []int{1, 1, 2, 2, 3, 3, 4, 4}, quarters(eps))
}

func TestAssignQuarters_AutoUsesIterations(t *testing.T) {
	eps := episodesWithIterations(0, 1, 2, 3, 3, 3, 3, 3)
	AssignQuarters(eps, QuartersAuto)
	assert.Equal(t, []int{1, 2, 3, 4, 4, 4, 4, 4}, quarters(eps))
}

func TestAssignQuarters_Empty(t *testing.T) {
	assert.NotPanics(t, func() { AssignQuarters(nil, QuartersAuto) })
}

func TestFilter(t *testing.T) {
	eps := []*Episode{
		{ID: 0, Quarter: 1, PercentComplete: 30},
		{ID: 1, Quarter: 1, PercentComplete: 100, LapComplete: true},
		{ID: 2, Quarter: 2, PercentComplete: 60},
		{ID: 3, Quarter: 2, PercentComplete: 100, LapComplete: true},
	}
	ids := func(eps []*Episode) []int {
		var out []int
		for _, e := range eps {
			out = append(out, e.ID)
		}
		return out
	}

	tests := []struct {
		name   string
		filter EpisodeFilter
		want   []int
	}{
		{"zero value selects all", EpisodeFilter{}, []int{0, 1, 2, 3}},
		{"quarter", EpisodeFilter{Quarter: 2}, []int{2, 3}},
		{"complete only", EpisodeFilter{CompleteOnly: true}, []int{1, 3}},
		{"min percent", EpisodeFilter{MinPercent: 50}, []int{1, 2, 3}},
		{"ids", EpisodeFilter{IDs: []int{3, 0}}, []int{0, 3}},
		{"combined", EpisodeFilter{Quarter: 1, CompleteOnly: true}, []int{1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(Filter(eps, tc.filter)))
		})
	}
}

func TestEvaluationPhase(t *testing.T) {
	p := &EvaluationPhase{Rewards: []float64{10, 20}, Progresses: []float64{100, 50, 100}}
	assert.Equal(t, 15.0, p.AverageReward())
	assert.InDelta(t, 83.333, p.AverageProgress(), 1e-3)
	assert.Equal(t, 2, p.Completions())

	empty := &EvaluationPhase{}
	assert.Zero(t, empty.AverageReward())
	assert.Zero(t, empty.AverageProgress())
}

func TestParseQuarterMode(t *testing.T) {
	for _, m := range []QuarterMode{QuartersAuto, QuartersByIteration, QuartersByPosition} {
		got, err := ParseQuarterMode(m.String())
		assert.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := ParseQuarterMode("")
	assert.NoError(t, err)
	assert.Equal(t, QuartersAuto, got)

	_, err = ParseQuarterMode("halves")
	assert.Error(t, err)
}
