// Package analyze turns episodes into rendered grids. Each analysis kind is
// one Analyzer variant; all of them rebuild their grids from scratch on
// Recalculate and paint them on Render.
package analyze

import (
	"fmt"
	"image/color"

	"github.com/racelog/racelog/racelog"
	"github.com/racelog/racelog/racelog/geometry"
	"github.com/racelog/racelog/racelog/grid"
	"github.com/racelog/racelog/racelog/palette"
)

// Kind selects an Analyzer variant.
type Kind int

const (
	// KindVisits maps where the cars went.
	KindVisits Kind = iota
	// KindStatistic maps a per-step measure, reduced per cell.
	KindStatistic
	// KindSpeedZones shows which of three speed bands dominates each cell.
	KindSpeedZones
)

var kindNames = map[Kind]string{
	KindVisits:     "visits",
	KindStatistic:  "statistic",
	KindSpeedZones: "speed-zones",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind accepts the names printed by String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown analysis %q", s)
}

// Analyzer is the capability shared by every analysis kind.
type Analyzer interface {
	Name() string
	// Recalculate rebuilds the grids from episodes.
	Recalculate(episodes []*racelog.Episode, p racelog.Progress) error
	// Render paints the current grids. It does nothing before the first
	// Recalculate.
	Render(s grid.Surface) error
	// HandleInput applies a setting change and reports what must happen
	// for it to show.
	HandleInput(in Input) Effect
}

// Config holds the settings shared by all analyzers.
type Config struct {
	// Bounds of the grids. The zero value means fit the episodes' positions,
	// grown by Margin.
	Bounds      grid.Bounds
	Margin      float64
	Granularity float64
	Brightness  grid.Brightness
	Palette     palette.Palette
	// Cache is the session's palette cache; nil interpolates every colour.
	Cache        *palette.Cache
	AllowRepeats bool

	// KindStatistic
	Measure Measure
	Method  grid.Method

	// KindSpeedZones: track speeds splitting low/medium and medium/high.
	// Zero means the tertiles of the data.
	SpeedZones [2]float64
}

// DefaultConfig returns settings suitable for a typical track.
func DefaultConfig() Config {
	p, _ := palette.Named(palette.Multicolor)
	return Config{
		Margin:      0.5,
		Granularity: 0.1,
		Brightness:  grid.Normal,
		Palette:     p,
		Measure:     MeasureTrackSpeed,
		Method:      grid.Mean,
	}
}

// New returns the analyzer for kind.
func New(kind Kind, cfg Config) (Analyzer, error) {
	if !(cfg.Granularity > 0) {
		return nil, fmt.Errorf("granularity must be positive, got %v", cfg.Granularity)
	}
	if cfg.Palette.Name == "" {
		cfg.Palette = DefaultConfig().Palette
	}
	base := settings{cfg: cfg}
	switch kind {
	case KindVisits:
		return &visitsAnalyzer{settings: base}, nil
	case KindStatistic:
		return &statisticAnalyzer{settings: base}, nil
	case KindSpeedZones:
		return &speedZonesAnalyzer{settings: base}, nil
	}
	return nil, fmt.Errorf("unknown analysis kind %d", int(kind))
}

// settings is embedded by every variant.
type settings struct {
	cfg Config
}

// Config returns the current settings.
func (s *settings) Config() Config {
	return s.cfg
}

// bounds returns the configured bounds or fits the episodes.
func (s *settings) bounds(episodes []*racelog.Episode) grid.Bounds {
	if s.cfg.Bounds != (grid.Bounds{}) {
		return s.cfg.Bounds
	}
	var points []geometry.Point
	for _, ep := range episodes {
		for _, e := range ep.Events {
			points = append(points, e.Point())
		}
	}
	return grid.BoundsOf(points, s.cfg.Margin)
}

// handleCommon applies the inputs every variant understands.
func (s *settings) handleCommon(in Input) Effect {
	switch in.Kind {
	case InputBrighter:
		s.cfg.Brightness = s.cfg.Brightness.Brighten()
		return EffectRedraw
	case InputDimmer:
		s.cfg.Brightness = s.cfg.Brightness.Dim()
		return EffectRedraw
	case InputPalette:
		p, err := palette.Named(in.Palette)
		if err != nil || p.Name == s.cfg.Palette.Name {
			return EffectNone
		}
		s.cfg.Palette = p
		return EffectRedraw
	case InputGranularity:
		if !(in.Granularity > 0) || in.Granularity == s.cfg.Granularity {
			return EffectNone
		}
		s.cfg.Granularity = in.Granularity
		return EffectRecalculate
	case InputAllowRepeats:
		if in.AllowRepeats == s.cfg.AllowRepeats {
			return EffectNone
		}
		s.cfg.AllowRepeats = in.AllowRepeats
		return EffectRecalculate
	}
	return EffectNone
}

func report(p racelog.Progress, done, total int) {
	if p != nil {
		p.Report(int64(done), int64(total))
	}
}

// Zone colours, fastest first.
var zoneColours = []color.Color{
	color.RGBA{G: 200, A: 255},
	color.RGBA{R: 230, G: 200, A: 255},
	color.RGBA{R: 220, A: 255},
}
