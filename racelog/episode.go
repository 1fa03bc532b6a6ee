package racelog

// Episode is one attempt at a lap: the ordered events of one episode index
// plus summary values computed once, at construction.
//
// Episodes are read-only after NewEpisode apart from the quarter, which is
// assigned later by AssignQuarters over the whole collection.
type Episode struct {
	ID        int
	Iteration int
	Quarter   int
	Events    []*Event

	LapComplete           bool
	PercentComplete       float64
	StepCount             int
	TimeTaken             float64
	PredictedLapTime      float64
	TotalReward           float64
	AverageReward         float64
	PredictedLapReward    float64
	TotalDistance         float64
	ActionFrequency       map[int]int
	PeakTrackSpeed        float64
	PeakProgressSpeed     float64
	MaxSlide              float64
	RepeatedActionPercent float64
	Status                string
}

// NewEpisode takes ownership of a complete, step-ordered event sequence and
// derives the per-event kinematics and the episode summary. events must not
// be empty.
func NewEpisode(events []*Event, iteration int) *Episode {
	ep := &Episode{
		ID:              events[0].Episode,
		Iteration:       iteration,
		Events:          events,
		StepCount:       len(events),
		ActionFrequency: make(map[int]int),
	}

	setTrackSpeed(events)
	setProgressSpeed(events)
	ep.MaxSlide = setTrueBearingAndSlide(events)
	setCumulativeValues(events)

	first, last := events[0], events[len(events)-1]
	ep.Status = last.Status
	ep.TimeTaken = last.Time - first.Time
	ep.TotalDistance = last.Distance
	ep.TotalReward = last.RewardTotal
	ep.AverageReward = ep.TotalReward / float64(len(events))
	ep.LapComplete, ep.PercentComplete = percentComplete(events)
	ep.PredictedLapTime = predictLapValue(ep.TimeTaken, ep.PercentComplete)
	ep.PredictedLapReward = predictLapValue(ep.TotalReward, ep.PercentComplete)

	for _, e := range events {
		ep.ActionFrequency[e.Action]++
		if e.TrackSpeed > ep.PeakTrackSpeed {
			ep.PeakTrackSpeed = e.TrackSpeed
		}
		if e.ProgressSpeed > ep.PeakProgressSpeed {
			ep.PeakProgressSpeed = e.ProgressSpeed
		}
	}
	if ep.LapComplete {
		ep.RepeatedActionPercent = repeatedActionPercent(events)
	}
	return ep
}

// SetQuarter records the training quarter (1-4) of the episode.
func (ep *Episode) SetQuarter(q int) {
	ep.Quarter = q
}

// Event returns the event for a step number, or nil.
func (ep *Episode) Event(step int) *Event {
	i := step - 1
	if i >= 0 && i < len(ep.Events) && ep.Events[i].Step == step {
		return ep.Events[i]
	}
	for _, e := range ep.Events {
		if e.Step == step {
			return e
		}
	}
	return nil
}

// ClosestEvent returns the last event at or before the given elapsed time.
func (ep *Episode) ClosestEvent(elapsed float64) *Event {
	best := ep.Events[0]
	for _, e := range ep.Events {
		if e.TimeElapsed > elapsed {
			break
		}
		best = e
	}
	return best
}
