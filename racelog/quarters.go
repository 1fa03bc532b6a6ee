package racelog

import "fmt"

// QuarterMode selects how AssignQuarters partitions a run.
type QuarterMode int

const (
	// QuartersAuto partitions by iteration when the run has at least four
	// iterations, otherwise by position.
	QuartersAuto QuarterMode = iota
	QuartersByIteration
	QuartersByPosition
)

var quarterModeNames = map[QuarterMode]string{
	QuartersAuto:        "auto",
	QuartersByIteration: "iteration",
	QuartersByPosition:  "position",
}

func (m QuarterMode) String() string {
	if s, ok := quarterModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("QuarterMode(%d)", int(m))
}

// ParseQuarterMode accepts "auto", "iteration" or "position". The empty
// string is auto.
func ParseQuarterMode(s string) (QuarterMode, error) {
	if s == "" {
		return QuartersAuto, nil
	}
	for m, name := range quarterModeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown quarter mode %q", s)
}

// AssignQuarters tags every episode with the training quarter (1-4) it
// falls in. Episodes must be in chronological order.
func AssignQuarters(episodes []*Episode, mode QuarterMode) {
	if len(episodes) == 0 {
		return
	}
	minIt, maxIt := episodes[0].Iteration, episodes[0].Iteration
	for _, e := range episodes {
		minIt = min(minIt, e.Iteration)
		maxIt = max(maxIt, e.Iteration)
	}
	iterations := maxIt - minIt + 1

	if mode == QuartersAuto {
		mode = QuartersByPosition
		if iterations >= 4 {
			mode = QuartersByIteration
		}
	}

	for i, e := range episodes {
		switch mode {
		case QuartersByIteration:
			e.SetQuarter(1 + (e.Iteration-minIt)*4/iterations)
		default:
			e.SetQuarter(1 + i*4/len(episodes))
		}
	}
}
