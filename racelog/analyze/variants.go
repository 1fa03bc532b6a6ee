package analyze

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/racelog/racelog/racelog"
	"github.com/racelog/racelog/racelog/grid"
)

// visitsAnalyzer maps every position of every episode.
type visitsAnalyzer struct {
	settings
	visits *grid.VisitorMap
}

func (a *visitsAnalyzer) Name() string { return KindVisits.String() }

func (a *visitsAnalyzer) Recalculate(episodes []*racelog.Episode, p racelog.Progress) error {
	m, err := grid.NewVisitorMap(a.bounds(episodes), a.cfg.Granularity)
	if err != nil {
		return fmt.Errorf("%s: %w", a.Name(), err)
	}
	m.SetAllowRepeats(a.cfg.AllowRepeats)
	for i, ep := range episodes {
		for _, e := range ep.Events {
			m.Visit(e.X, e.Y, i)
		}
		report(p, i+1, len(episodes))
	}
	a.visits = m
	return nil
}

func (a *visitsAnalyzer) Render(s grid.Surface) error {
	if a.visits != nil {
		a.visits.Draw(s, a.cfg.Brightness, a.cfg.Palette, a.cfg.Cache)
	}
	return nil
}

func (a *visitsAnalyzer) HandleInput(in Input) Effect {
	return a.handleCommon(in)
}

// Visits exposes the grid built by the last Recalculate.
func (a *visitsAnalyzer) Visits() *grid.VisitorMap {
	return a.visits
}

// statisticAnalyzer maps a per-step measure. A companion visitor map hides
// cells too sparse to trust.
type statisticAnalyzer struct {
	settings
	heat   *grid.HeatMap
	visits *grid.VisitorMap
}

func (a *statisticAnalyzer) Name() string {
	return fmt.Sprintf("%s %s of %s", KindStatistic, a.cfg.Method, a.cfg.Measure)
}

func (a *statisticAnalyzer) Recalculate(episodes []*racelog.Episode, p racelog.Progress) error {
	if !a.cfg.Measure.valid() {
		return fmt.Errorf("%s: invalid measure %d", KindStatistic, int(a.cfg.Measure))
	}
	b := a.bounds(episodes)
	heat, err := grid.NewHeatMap(b, a.cfg.Granularity, a.cfg.AllowRepeats)
	if err != nil {
		return fmt.Errorf("%s: %w", KindStatistic, err)
	}
	visits, err := grid.NewVisitorMap(b, a.cfg.Granularity)
	if err != nil {
		return fmt.Errorf("%s: %w", KindStatistic, err)
	}
	visits.SetAllowRepeats(a.cfg.AllowRepeats)

	for i, ep := range episodes {
		for _, e := range ep.Events {
			heat.Visit(e.X, e.Y, i, a.cfg.Measure.Value(e))
			visits.Visit(e.X, e.Y, i)
		}
		report(p, i+1, len(episodes))
	}
	a.heat, a.visits = heat, visits
	return nil
}

func (a *statisticAnalyzer) Render(s grid.Surface) error {
	if a.heat == nil {
		return nil
	}
	return a.heat.DrawStatistic(s, a.cfg.Brightness, a.cfg.Palette, a.cfg.Cache, grid.StatisticOptions{
		Method: a.cfg.Method,
		Visits: a.visits,
	})
}

func (a *statisticAnalyzer) HandleInput(in Input) Effect {
	switch in.Kind {
	case InputMeasure:
		if !in.Measure.valid() || in.Measure == a.cfg.Measure {
			return EffectNone
		}
		a.cfg.Measure = in.Measure
		return EffectRecalculate
	case InputMethod:
		m, err := grid.ParseMethod(in.Method)
		if err != nil || m == a.cfg.Method {
			return EffectNone
		}
		// samples are kept per cell, so a new reduction only needs a redraw
		a.cfg.Method = m
		return EffectRedraw
	}
	return a.handleCommon(in)
}

// Heat exposes the grid built by the last Recalculate.
func (a *statisticAnalyzer) Heat() *grid.HeatMap {
	return a.heat
}

// speedZonesAnalyzer splits positions into fast, medium and slow visitor
// maps by track speed and overlays them.
type speedZonesAnalyzer struct {
	settings
	zones      []*grid.VisitorMap // fast, medium, slow
	thresholds [2]float64
}

func (a *speedZonesAnalyzer) Name() string { return KindSpeedZones.String() }

func (a *speedZonesAnalyzer) Recalculate(episodes []*racelog.Episode, p racelog.Progress) error {
	b := a.bounds(episodes)
	zones := make([]*grid.VisitorMap, len(zoneColours))
	for i := range zones {
		m, err := grid.NewVisitorMap(b, a.cfg.Granularity)
		if err != nil {
			return fmt.Errorf("%s: %w", a.Name(), err)
		}
		m.SetAllowRepeats(a.cfg.AllowRepeats)
		zones[i] = m
	}

	a.thresholds = a.cfg.SpeedZones
	if a.thresholds == [2]float64{} {
		a.thresholds = speedTertiles(episodes)
	}
	low, high := a.thresholds[0], a.thresholds[1]

	for i, ep := range episodes {
		for _, e := range ep.Events {
			zone := 1
			switch {
			case e.TrackSpeed >= high:
				zone = 0
			case e.TrackSpeed < low:
				zone = 2
			}
			zones[zone].Visit(e.X, e.Y, i)
		}
		report(p, i+1, len(episodes))
	}
	a.zones = zones
	return nil
}

func (a *speedZonesAnalyzer) Render(s grid.Surface) error {
	if a.zones == nil {
		return nil
	}
	busiest := 0
	for _, z := range a.zones {
		busiest = max(busiest, z.Max())
	}
	threshold := int(a.cfg.Brightness.Threshold(busiest))
	return grid.DrawOverlay(s, a.zones, zoneColours, threshold)
}

func (a *speedZonesAnalyzer) HandleInput(in Input) Effect {
	if in.Kind == InputPalette {
		// zones use fixed colours
		return EffectNone
	}
	return a.handleCommon(in)
}

// Thresholds returns the low/medium and medium/high split used by the last
// Recalculate.
func (a *speedZonesAnalyzer) Thresholds() [2]float64 {
	return a.thresholds
}

// speedTertiles splits the observed track speeds into three equal bands.
func speedTertiles(episodes []*racelog.Episode) [2]float64 {
	var speeds []float64
	for _, ep := range episodes {
		for _, e := range ep.Events {
			speeds = append(speeds, e.TrackSpeed)
		}
	}
	if len(speeds) == 0 {
		return [2]float64{}
	}
	sort.Float64s(speeds)
	return [2]float64{
		stat.Quantile(1.0/3, stat.Empirical, speeds, nil),
		stat.Quantile(2.0/3, stat.Empirical, speeds, nil),
	}
}
