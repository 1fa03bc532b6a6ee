package racelog

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// DefaultMaxOrphans bounds the out-of-order buffer. Well-formed logs from
// a handful of workers never park more than a few records at once.
const DefaultMaxOrphans = 16

// AssemblerConfig tunes the Assembler.
type AssemblerConfig struct {
	// MaxOrphans is the largest number of out-of-order events held at once.
	// Zero means DefaultMaxOrphans.
	MaxOrphans int
	// FirstEpisode is the episode index the log is expected to start at.
	FirstEpisode int
}

// Assembler regroups step events, which several simulation workers may
// interleave, into episodes whose events are contiguous and step-ascending.
//
// Events that arrive ahead of the one expected next are parked in an orphan
// buffer and spliced in once the gap before them fills.
type Assembler struct {
	maxOrphans int

	current     []*Event // episode in progress
	nextEpisode int      // episode index the empty slot expects
	orphans     []*Event
	closed      [][]*Event
}

// NewAssembler creates an Assembler with an empty in-progress episode.
func NewAssembler(cfg AssemblerConfig) *Assembler {
	maxOrphans := cfg.MaxOrphans
	if maxOrphans <= 0 {
		maxOrphans = DefaultMaxOrphans
	}
	return &Assembler{
		maxOrphans:  maxOrphans,
		nextEpisode: cfg.FirstEpisode,
	}
}

// Add feeds one parsed step event. It returns ErrDesync when the orphan
// buffer would exceed its bound.
func (a *Assembler) Add(e *Event) error {
	switch {
	case a.expects(e):
		a.appendAndSweep(e)
		return nil
	case a.isDuplicate(e):
		logrus.Warnf("dropping duplicate step record: episode %d step %d", e.Episode, e.Step)
		return nil
	}

	if len(a.orphans) >= a.maxOrphans {
		// A finished episode waiting on a lost step is closed with a gap
		// rather than stalling everything behind it.
		if !a.closeWithGap() {
			return fmt.Errorf("%w: more than %d out-of-order step records pending (episode %d step %d, expecting episode %d step %d)",
				ErrDesync, a.maxOrphans, e.Episode, e.Step, a.expectedEpisode(), a.tailStep()+1)
		}
		if a.expects(e) {
			a.appendAndSweep(e)
			return nil
		}
		if len(a.orphans) >= a.maxOrphans {
			return fmt.Errorf("%w: more than %d out-of-order step records pending (episode %d step %d)",
				ErrDesync, a.maxOrphans, e.Episode, e.Step)
		}
	}
	a.orphans = append(a.orphans, e)
	return nil
}

// Finish returns the closed episodes in closing order. The episode still in
// progress has no completion signal and is assumed truncated, so it is
// discarded along with any orphans.
func (a *Assembler) Finish() [][]*Event {
	if len(a.current) > 0 {
		logrus.Debugf("discarding trailing episode %d with %d steps", a.currentEpisode(), len(a.current))
	}
	if len(a.orphans) > 0 {
		logrus.Debugf("discarding %d unmatched step records", len(a.orphans))
	}
	closed := a.closed
	a.closed = nil
	a.current = nil
	a.orphans = nil
	return closed
}

// Completed reports how many episodes have closed so far.
func (a *Assembler) Completed() int {
	return len(a.closed)
}

// Pending reports how many out-of-order events are parked.
func (a *Assembler) Pending() int {
	return len(a.orphans)
}

func (a *Assembler) currentEpisode() int {
	return a.current[0].Episode
}

func (a *Assembler) expectedEpisode() int {
	if len(a.current) == 0 {
		return a.nextEpisode
	}
	return a.currentEpisode()
}

func (a *Assembler) tailStep() int {
	if len(a.current) == 0 {
		return 0
	}
	return a.current[len(a.current)-1].Step
}

func (a *Assembler) expects(e *Event) bool {
	return e.Episode == a.expectedEpisode() && e.Step == a.tailStep()+1
}

func (a *Assembler) isDuplicate(e *Event) bool {
	return len(a.current) > 0 && e.Episode == a.currentEpisode() && e.Step <= a.tailStep()
}

func (a *Assembler) appendAndSweep(e *Event) {
	a.append(e)
	a.sweep()
}

func (a *Assembler) sweep() {
	// Fixed point: one splice can unblock a chain of others. Each pass
	// removes at least one orphan or stops, so the loop is bounded by the
	// buffer size.
	for len(a.orphans) > 0 {
		i := a.findExpectedOrphan()
		if i < 0 {
			break
		}
		o := a.orphans[i]
		a.orphans = append(a.orphans[:i], a.orphans[i+1:]...)
		a.append(o)
	}
}

func (a *Assembler) findExpectedOrphan() int {
	for i, o := range a.orphans {
		if a.expects(o) {
			return i
		}
	}
	return -1
}

func (a *Assembler) append(e *Event) {
	a.current = append(a.current, e)
	if e.Done {
		a.close()
	}
}

// close moves the in-progress episode to the closed list. Orphans left
// behind for it are spliced in step order, leaving a gap.
func (a *Assembler) close() {
	if len(a.current) == 0 {
		return
	}
	episode := a.currentEpisode()

	var stale, keep []*Event
	for _, o := range a.orphans {
		if o.Episode == episode {
			stale = append(stale, o)
		} else {
			keep = append(keep, o)
		}
	}
	if len(stale) > 0 {
		sort.Slice(stale, func(i, j int) bool { return stale[i].Step < stale[j].Step })
		for _, o := range stale {
			if o.Step > a.tailStep() {
				a.current = append(a.current, o)
			}
		}
		a.orphans = keep
	}

	checkContiguous(a.current)
	a.closed = append(a.closed, a.current)
	a.current = nil
	a.nextEpisode = episode + 1
}

// closeWithGap closes the current episode when its completion record is
// already parked, accepting the missing steps as lost.
func (a *Assembler) closeWithGap() bool {
	if len(a.current) == 0 {
		return false
	}
	episode := a.currentEpisode()
	for _, o := range a.orphans {
		if o.Episode == episode && o.Done {
			logrus.Warnf("episode %d: giving up on step %d, closing with a gap", episode, a.tailStep()+1)
			a.close()
			a.sweep()
			return true
		}
	}
	return false
}

// checkContiguous warns when a closed episode does not run 1, 2, 3, ...
func checkContiguous(events []*Event) {
	for i, e := range events {
		if e.Step != i+1 {
			logrus.Warnf("episode %d has a step gap: position %d holds step %d", e.Episode, i+1, e.Step)
			return
		}
	}
}
