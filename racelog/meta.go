package racelog

import "github.com/racelog/racelog/racelog/geometry"

// Hyperparameters are the training settings echoed at the start of a
// training log.
type Hyperparameters struct {
	BatchSize            int     `json:"batch_size" yaml:"batch_size"`
	BetaEntropy          float64 `json:"beta_entropy" yaml:"beta_entropy"`
	DiscountFactor       float64 `json:"discount_factor" yaml:"discount_factor"`
	LossType             string  `json:"loss_type" yaml:"loss_type"`
	LearningRate         float64 `json:"learning_rate" yaml:"learning_rate"`
	EpisodesPerIteration int     `json:"episodes_per_iteration" yaml:"episodes_per_iteration"`
	Epochs               int     `json:"epochs" yaml:"epochs"`
	ExplorationType      string  `json:"exploration_type,omitempty" yaml:"exploration_type,omitempty"`
	StackSize            int     `json:"stack_size,omitempty" yaml:"stack_size,omitempty"`
	TermCondMaxEpisodes  int     `json:"term_cond_max_episodes,omitempty" yaml:"term_cond_max_episodes,omitempty"`
	TermCondAvgScore     float64 `json:"term_cond_avg_score,omitempty" yaml:"term_cond_avg_score,omitempty"`
}

// Action is one entry of a discrete action space.
type Action struct {
	Index         int     `json:"index" yaml:"index"`
	Speed         float64 `json:"speed" yaml:"speed"`
	SteeringAngle float64 `json:"steering_angle" yaml:"steering_angle"`
}

// EpisodeStats aggregates a whole run's episodes.
type EpisodeStats struct {
	EpisodeCount           int     `json:"episode_count" yaml:"episode_count"`
	IterationCount         int     `json:"iteration_count" yaml:"iteration_count"`
	SuccessCount           int     `json:"success_count" yaml:"success_count"`
	SuccessPercent         float64 `json:"success_percent" yaml:"success_percent"`
	AveragePercentComplete float64 `json:"average_percent_complete" yaml:"average_percent_complete"`
	BestLapTime            float64 `json:"best_lap_time" yaml:"best_lap_time"`
	AverageLapTime         float64 `json:"average_lap_time" yaml:"average_lap_time"`
	BestLapSteps           int     `json:"best_lap_steps" yaml:"best_lap_steps"`
	AverageLapSteps        float64 `json:"average_lap_steps" yaml:"average_lap_steps"`
	BestReward             float64 `json:"best_reward" yaml:"best_reward"`
	AverageReward          float64 `json:"average_reward" yaml:"average_reward"`
}

// LogMeta is everything about a log that is worth keeping without its
// episodes. It is small enough to cache next to the source file.
type LogMeta struct {
	ModelName       string           `json:"model_name" yaml:"model_name"`
	WorldName       string           `json:"world_name" yaml:"world_name"`
	RaceType        string           `json:"race_type" yaml:"race_type"`
	JobType         string           `json:"job_type" yaml:"job_type"`
	Hyperparameters Hyperparameters  `json:"hyperparameters" yaml:"hyperparameters"`
	ActionSpace     []Action         `json:"action_space" yaml:"action_space"`
	ObjectLocations []geometry.Point `json:"object_locations,omitempty" yaml:"object_locations,omitempty"`
	Stats           EpisodeStats     `json:"episode_stats" yaml:"episode_stats"`
}

// Summarize computes aggregate statistics over episodes.
// Safe for nil or empty input (returns zero-value fields).
func Summarize(episodes []*Episode) EpisodeStats {
	var s EpisodeStats
	if len(episodes) == 0 {
		return s
	}
	s.EpisodeCount = len(episodes)

	iterations := make(map[int]bool)
	totalPercent, totalReward := 0.0, 0.0
	totalLapTime, totalLapSteps := 0.0, 0
	for i, e := range episodes {
		iterations[e.Iteration] = true
		totalPercent += e.PercentComplete
		totalReward += e.TotalReward
		if i == 0 || e.TotalReward > s.BestReward {
			s.BestReward = e.TotalReward
		}
		if !e.LapComplete {
			continue
		}
		s.SuccessCount++
		totalLapTime += e.TimeTaken
		totalLapSteps += e.StepCount
		if s.SuccessCount == 1 || e.TimeTaken < s.BestLapTime {
			s.BestLapTime = e.TimeTaken
		}
		if s.SuccessCount == 1 || e.StepCount < s.BestLapSteps {
			s.BestLapSteps = e.StepCount
		}
	}

	n := float64(len(episodes))
	s.IterationCount = len(iterations)
	s.SuccessPercent = float64(s.SuccessCount) / n * 100
	s.AveragePercentComplete = totalPercent / n
	s.AverageReward = totalReward / n
	if s.SuccessCount > 0 {
		s.AverageLapTime = totalLapTime / float64(s.SuccessCount)
		s.AverageLapSteps = float64(totalLapSteps) / float64(s.SuccessCount)
	}
	return s
}
