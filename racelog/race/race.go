// Package race replays episodes side by side against a shared clock.
package race

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/racelog/racelog/racelog"
	"github.com/racelog/racelog/racelog/geometry"
)

// ErrRunning is returned by Start while a replay is already in progress.
var ErrRunning = errors.New("race already running")

// Car is the state of one episode at a moment of the replay.
type Car struct {
	Episode  int // episode ID
	Step     int
	Position geometry.Point
	Heading  float64
	Finished bool
	Status   string
}

// Frame is one tick of the replay.
type Frame struct {
	Elapsed float64 // seconds since the start of every episode
	Cars    []Car
	// Done is set once every car has finished.
	Done bool
}

// Replayer steps a fixed set of episodes forward in time. The episodes are
// only read, so the same slice may be shared with analyzers.
type Replayer struct {
	episodes []*racelog.Episode

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewReplayer creates a Replayer over episodes.
func NewReplayer(episodes []*racelog.Episode) *Replayer {
	return &Replayer{episodes: episodes}
}

// Duration is the elapsed time at which the slowest episode ends.
func (r *Replayer) Duration() float64 {
	longest := 0.0
	for _, ep := range r.episodes {
		longest = max(longest, lastElapsed(ep))
	}
	return longest
}

// PositionsAt returns every car at elapsed time t. A car that has ended
// stays at its last position.
func (r *Replayer) PositionsAt(t float64) Frame {
	f := Frame{Elapsed: t, Cars: make([]Car, 0, len(r.episodes)), Done: true}
	for _, ep := range r.episodes {
		if len(ep.Events) == 0 {
			continue
		}
		e := ep.ClosestEvent(t)
		finished := t >= lastElapsed(ep)
		f.Cars = append(f.Cars, Car{
			Episode:  ep.ID,
			Step:     e.Step,
			Position: e.Point(),
			Heading:  e.Heading,
			Finished: finished,
			Status:   e.Status,
		})
		f.Done = f.Done && finished
	}
	return f
}

// Start calls fn with a frame now and then once per interval, advancing the
// replay clock by interval times speedup each time. It returns at once; the
// replay ends when every car has finished, Stop is called or ctx is
// cancelled. fn runs on the replay goroutine.
func (r *Replayer) Start(ctx context.Context, interval time.Duration, speedup float64, fn func(Frame)) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", interval)
	}
	if !(speedup > 0) {
		return fmt.Errorf("speedup must be positive, got %v", speedup)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	r.running = true
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.run(ctx, interval, interval.Seconds()*speedup, fn, r.done)
	return nil
}

func (r *Replayer) run(ctx context.Context, interval time.Duration, step float64, fn func(Frame), done chan struct{}) {
	defer func() {
		r.mu.Lock()
		r.running = false
		r.cancel()
		r.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for tick := 0; ; tick++ {
		f := r.PositionsAt(float64(tick) * step)
		fn(f)
		if f.Done {
			logrus.Debugf("race finished at %.2fs", f.Elapsed)
			return
		}
		if ctx.Err() != nil {
			logrus.Debugf("race stopped at %.2fs", f.Elapsed)
			return
		}
		select {
		case <-ctx.Done():
			logrus.Debugf("race stopped at %.2fs", f.Elapsed)
			return
		case <-ticker.C:
		}
	}
}

// Stop ends the replay. It does not wait for the goroutine; use Wait.
func (r *Replayer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		r.cancel()
	}
}

// Wait blocks until the current replay, if any, has ended.
func (r *Replayer) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Running reports whether a replay is in progress.
func (r *Replayer) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func lastElapsed(ep *racelog.Episode) float64 {
	if len(ep.Events) == 0 {
		return 0
	}
	return ep.Events[len(ep.Events)-1].TimeElapsed
}
