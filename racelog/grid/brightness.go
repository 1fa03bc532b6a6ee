package grid

import (
	"fmt"
	"math"
	"strings"
)

// Brightness trades how many faint cells are shown against how quickly
// colours saturate.
type Brightness int

const (
	MuchFainter Brightness = iota
	Normal
	Brighter
	MuchBrighter
)

type brightnessLevel struct {
	name string
	// threshold is the fraction of the busiest cell's count below which a
	// cell is not drawn.
	threshold float64
	// scale is the fraction of the busiest count at which colour saturates.
	scale float64
}

var brightnessLevels = []brightnessLevel{
	MuchFainter:  {"much-fainter", 0.30, 1.0},
	Normal:       {"normal", 0.20, 0.75},
	Brighter:     {"brighter", 0.10, 0.5},
	MuchBrighter: {"much-brighter", 0.05, 0.35},
}

// ParseBrightness accepts the names printed by String.
func ParseBrightness(s string) (Brightness, error) {
	for b, level := range brightnessLevels {
		if strings.EqualFold(s, level.name) {
			return Brightness(b), nil
		}
	}
	return Normal, fmt.Errorf("unknown brightness %q", s)
}

func (b Brightness) String() string {
	if b < MuchFainter || b > MuchBrighter {
		return fmt.Sprintf("Brightness(%d)", int(b))
	}
	return brightnessLevels[b].name
}

// Threshold returns the smallest count drawn, given the count of the
// busiest cell.
func (b Brightness) Threshold(busiest int) float64 {
	return b.level().threshold * float64(busiest)
}

// Intensity maps a cell count onto [0, 1], given the count of the busiest
// cell. The curve is quadratic so sparse cells stay dim.
func (b Brightness) Intensity(count, busiest int) float64 {
	if busiest <= 0 {
		return 0
	}
	full := b.level().scale * float64(busiest)
	return math.Min(1, float64(count)*float64(count)/(full*full))
}

// Brighten steps one level brighter, stopping at MuchBrighter.
func (b Brightness) Brighten() Brightness {
	return min(MuchBrighter, b+1)
}

// Dim steps one level fainter, stopping at MuchFainter.
func (b Brightness) Dim() Brightness {
	return max(MuchFainter, b-1)
}

func (b Brightness) level() brightnessLevel {
	if b < MuchFainter || b > MuchBrighter {
		b = Normal
	}
	return brightnessLevels[b]
}
