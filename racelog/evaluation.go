package racelog

// EvaluationPhase holds the results of one held-out evaluation run, which
// the training job performs between training iterations.
type EvaluationPhase struct {
	// Iteration is the number of training iterations finished before the
	// evaluation started.
	Iteration  int
	Rewards    []float64
	Progresses []float64
}

// AverageProgress returns the mean progress, or 0 for an empty phase.
func (p *EvaluationPhase) AverageProgress() float64 {
	return mean(p.Progresses)
}

// AverageReward returns the mean reward, or 0 for an empty phase.
func (p *EvaluationPhase) AverageReward() float64 {
	return mean(p.Rewards)
}

// Completions counts evaluation laps that reached 100% progress.
func (p *EvaluationPhase) Completions() int {
	n := 0
	for _, v := range p.Progresses {
		if v >= 100 {
			n++
		}
	}
	return n
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
