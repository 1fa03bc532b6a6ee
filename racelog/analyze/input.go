package analyze

// InputKind names a setting change.
type InputKind int

const (
	InputBrighter InputKind = iota
	InputDimmer
	InputPalette
	InputGranularity
	InputAllowRepeats
	InputMeasure
	InputMethod
)

// Input is a setting change. Only the field matching Kind is read.
type Input struct {
	Kind         InputKind
	Palette      string
	Granularity  float64
	AllowRepeats bool
	Measure      Measure
	Method       string
}

// Effect tells the caller what an input requires.
type Effect int

const (
	// EffectNone: nothing changed.
	EffectNone Effect = iota
	// EffectRedraw: call Render again.
	EffectRedraw
	// EffectRecalculate: call Recalculate, then Render.
	EffectRecalculate
)

func (e Effect) String() string {
	switch e {
	case EffectRedraw:
		return "redraw"
	case EffectRecalculate:
		return "recalculate"
	}
	return "none"
}
