package analyze

import (
	"fmt"

	"github.com/racelog/racelog/racelog"
)

// Measure is a per-step quantity a statistic analysis maps.
type Measure int

const (
	MeasureTrackSpeed Measure = iota
	MeasureProgressSpeed
	MeasureSlide
	MeasureReward
	MeasureActionSpeed
)

var measures = []struct {
	name  string
	value func(e *racelog.Event) float64
}{
	MeasureTrackSpeed:    {"track-speed", func(e *racelog.Event) float64 { return e.TrackSpeed }},
	MeasureProgressSpeed: {"progress-speed", func(e *racelog.Event) float64 { return e.ProgressSpeed }},
	MeasureSlide:         {"slide", func(e *racelog.Event) float64 { return e.Slide }},
	MeasureReward:        {"reward", func(e *racelog.Event) float64 { return e.Reward }},
	MeasureActionSpeed:   {"action-speed", func(e *racelog.Event) float64 { return e.Speed }},
}

func (m Measure) valid() bool {
	return m >= 0 && int(m) < len(measures)
}

func (m Measure) String() string {
	if !m.valid() {
		return fmt.Sprintf("Measure(%d)", int(m))
	}
	return measures[m].name
}

// Value reads the measure from one event.
func (m Measure) Value(e *racelog.Event) float64 {
	return measures[m].value(e)
}

// ParseMeasure accepts the names printed by String.
func ParseMeasure(s string) (Measure, error) {
	for i, m := range measures {
		if m.name == s {
			return Measure(i), nil
		}
	}
	return 0, fmt.Errorf("unknown measure %q", s)
}
