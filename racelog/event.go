package racelog

import "github.com/racelog/racelog/racelog/geometry"

// Episode status strings written in the final column of a step record.
const (
	StatusInProgress  = "in_progress"
	StatusLapComplete = "lap_complete"
	StatusOffTrack    = "off_track"
	StatusCrashed     = "crashed"
	StatusReversed    = "reversed"
	StatusImmobilized = "immobilized"
	StatusPrepare     = "prepare"
)

// Event is one simulated time-step of one episode.
//
// The raw fields are filled by the parser. The derived fields stay zero until
// the owning Episode has seen its complete ordered event sequence.
type Event struct {
	Episode          int
	Step             int
	X                float64
	Y                float64
	Heading          float64
	SteeringAngle    float64
	Speed            float64
	Action           int
	Reward           float64
	Done             bool
	AllWheelsOnTrack bool
	Progress         float64
	ClosestWaypoint  int
	TrackLength      float64
	Time             float64
	Status           string
	Debug            string

	// Derived by NewEpisode
	TrackSpeed    float64
	ProgressSpeed float64
	TrueBearing   float64
	Slide         float64
	RewardTotal   float64
	Distance      float64
	TimeElapsed   float64
}

// Point returns the event position.
func (e *Event) Point() geometry.Point {
	return geometry.Point{X: e.X, Y: e.Y}
}

// LapComplete reports whether this step finished the lap.
func (e *Event) LapComplete() bool {
	return e.Status == StatusLapComplete
}

// OffTrack reports whether the car had left the track at this step.
func (e *Event) OffTrack() bool {
	return e.Status == StatusOffTrack || !e.AllWheelsOnTrack
}
