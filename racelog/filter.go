package racelog

// EpisodeFilter selects episodes for an analysis. The zero value selects
// everything.
type EpisodeFilter struct {
	Quarter      int // 0 for all quarters
	CompleteOnly bool
	MinPercent   float64
	IDs          []int
}

// Matches reports whether ep passes the filter.
func (f EpisodeFilter) Matches(ep *Episode) bool {
	if f.Quarter != 0 && ep.Quarter != f.Quarter {
		return false
	}
	if f.CompleteOnly && !ep.LapComplete {
		return false
	}
	if ep.PercentComplete < f.MinPercent {
		return false
	}
	if len(f.IDs) > 0 {
		for _, id := range f.IDs {
			if id == ep.ID {
				return true
			}
		}
		return false
	}
	return true
}

// Filter returns the episodes that pass f, in their original order.
func Filter(episodes []*Episode, f EpisodeFilter) []*Episode {
	out := make([]*Episode, 0, len(episodes))
	for _, ep := range episodes {
		if f.Matches(ep) {
			out = append(out, ep)
		}
	}
	return out
}
