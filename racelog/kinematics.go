package racelog

import (
	"math"

	"github.com/racelog/racelog/racelog/geometry"
)

const (
	// trackSpeedWindow includes the current event.
	trackSpeedWindow = 6
	// progressSpeedWindow counts only events before the current one.
	progressSpeedWindow = 5
	// minBearingProgress is the progress gain (percent) below which
	// position rounding in the log makes a fresh bearing meaningless.
	minBearingProgress = 0.05
	// slideSettlingSteps are ignored by MaxSlide while the car gets going.
	slideSettlingSteps = 6
)

// setTrackSpeed derives speed over the ground from a trailing window,
// padded with the first event so the value is defined from step one.
func setTrackSpeed(events []*Event) {
	if len(events) < 2 {
		return
	}
	window := make([]*Event, trackSpeedWindow)
	for i := range window {
		window[i] = events[0]
	}
	for _, e := range events {
		window = append(window[1:], e)
		oldest := window[0]
		if dt := e.Time - oldest.Time; dt > 0 {
			e.TrackSpeed = geometry.Distance(oldest.Point(), e.Point()) / dt
		}
	}
}

// setProgressSpeed derives the rate of progress along the track, in m/s,
// from the events preceding each one.
func setProgressSpeed(events []*Event) {
	if len(events) < 2 {
		return
	}
	window := make([]*Event, progressSpeedWindow)
	for i := range window {
		window[i] = events[0]
	}
	for _, e := range events {
		oldest := window[0]
		if dt := e.Time - oldest.Time; dt > 0 {
			e.ProgressSpeed = (e.Progress - oldest.Progress) / 100 * e.TrackLength / dt
		}
		window = append(window[1:], e)
	}
}

// setTrueBearingAndSlide derives the actual direction of travel and how far
// it differs from the heading. It returns the largest slide after the
// settling steps.
func setTrueBearingAndSlide(events []*Event) float64 {
	first := events[0]
	first.TrueBearing = first.Heading
	first.Slide = 0

	maxSlide := 0.0
	prev := first
	for _, e := range events[1:] {
		gain := e.Progress - prev.Progress
		if e.Progress == prev.Progress || gain < minBearingProgress {
			// duplicate record, or movement below the rounding noise
			e.TrueBearing = prev.TrueBearing
		} else {
			e.TrueBearing = geometry.Bearing(prev.Point(), e.Point())
		}
		e.Slide = geometry.Turn(e.Heading, e.TrueBearing)
		if e.Step > slideSettlingSteps {
			maxSlide = math.Max(maxSlide, math.Abs(e.Slide))
		}
		prev = e
	}
	return maxSlide
}

func setCumulativeValues(events []*Event) {
	first := events[0]
	reward, distance := 0.0, 0.0
	prev := first
	for _, e := range events {
		reward += e.Reward
		distance += geometry.Distance(prev.Point(), e.Point())
		e.RewardTotal = reward
		e.Distance = distance
		e.TimeElapsed = e.Time - first.Time
		prev = e
	}
}

// percentComplete reads completion from the end of the episode. The final
// record of an unfinished episode is unreliable, so the one before it is
// used instead.
func percentComplete(events []*Event) (bool, float64) {
	last := events[len(events)-1]
	if last.LapComplete() {
		return true, 100
	}
	if len(events) < 2 {
		return false, last.Progress
	}
	return false, events[len(events)-2].Progress
}

// predictLapValue extrapolates a value linearly to a full lap.
func predictLapValue(value, percent float64) float64 {
	if percent <= 0 {
		return 0
	}
	return 100 / percent * value
}

func repeatedActionPercent(events []*Event) float64 {
	if len(events) < 2 {
		return 0
	}
	repeats := 0
	for i := 1; i < len(events); i++ {
		if events[i].Action == events[i-1].Action {
			repeats++
		}
	}
	return float64(repeats) / float64(len(events)-1) * 100
}
