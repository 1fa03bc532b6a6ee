// Package palette maps intensities in [0, 1] to colours for grid
// rendering. Palettes are immutable values; the precomputed lookup tables
// live in a Cache that the caller creates and owns for the length of one
// analysis session.
package palette

import (
	"fmt"
	"image/color"
	"math"
	"sort"
)

// Palette is a named colour gradient.
type Palette struct {
	Name  string
	stops []stop
}

type stop struct {
	at float64
	c  color.RGBA
}

// Names of the built-in palettes.
const (
	Multicolor = "multicolor"
	Fire       = "fire"
	Ice        = "ice"
	Grey       = "grey"
	RedGreen   = "red-green"
)

var builtins = map[string][]stop{
	Multicolor: hueSweep(0.66, 0, 9),
	Fire: {
		{0, color.RGBA{R: 64, A: 255}},
		{0.4, color.RGBA{R: 220, G: 40, A: 255}},
		{0.75, color.RGBA{R: 255, G: 165, A: 255}},
		{1, color.RGBA{R: 255, G: 255, B: 200, A: 255}},
	},
	Ice: {
		{0, color.RGBA{B: 80, A: 255}},
		{0.5, color.RGBA{G: 120, B: 220, A: 255}},
		{1, color.RGBA{R: 220, G: 255, B: 255, A: 255}},
	},
	Grey: {
		{0, color.RGBA{R: 40, G: 40, B: 40, A: 255}},
		{1, color.RGBA{R: 255, G: 255, B: 255, A: 255}},
	},
	RedGreen: {
		{0, color.RGBA{R: 220, A: 255}},
		{0.5, color.RGBA{R: 230, G: 220, A: 255}},
		{1, color.RGBA{G: 200, A: 255}},
	},
}

// Named returns a built-in palette.
func Named(name string) (Palette, error) {
	stops, ok := builtins[name]
	if !ok {
		return Palette{}, fmt.Errorf("unknown palette %q (have %v)", name, Names())
	}
	return Palette{Name: name, stops: stops}, nil
}

// Names lists the built-in palettes in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// At interpolates the gradient at f, clamped into [0, 1].
func (p Palette) At(f float64) color.RGBA {
	if len(p.stops) == 0 {
		return color.RGBA{A: 255}
	}
	f = clamp01(f)
	if f <= p.stops[0].at {
		return p.stops[0].c
	}
	for i := 1; i < len(p.stops); i++ {
		hi := p.stops[i]
		if f <= hi.at {
			lo := p.stops[i-1]
			return lerp(lo.c, hi.c, (f-lo.at)/(hi.at-lo.at))
		}
	}
	return p.stops[len(p.stops)-1].c
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

func clamp01(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// hueSweep spaces n stops evenly between two hues at fixed saturation and
// lightness.
func hueSweep(from, to float64, n int) []stop {
	stops := make([]stop, n)
	for i := range stops {
		t := float64(i) / float64(n-1)
		r, g, b := hslToRGB(from+(to-from)*t, 0.85, 0.5)
		stops[i] = stop{at: t, c: color.RGBA{R: r, G: g, B: b, A: 255}}
	}
	return stops
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(math.Round(rf * 255)), uint8(math.Round(gf * 255)), uint8(math.Round(bf * 255))
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
