package grid

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/racelog/racelog/racelog/palette"
)

// HeatMap collects sampled values per cell.
type HeatMap struct {
	layout
	allowRepeats bool
	samples      [][][]float64
	last         [][]int
}

// NewHeatMap creates an empty heat map over b with square cells of side
// granularity.
func NewHeatMap(b Bounds, granularity float64, allowRepeats bool) (*HeatMap, error) {
	l, err := newLayout(b, granularity)
	if err != nil {
		return nil, err
	}
	nx, ny := l.Size()
	samples := make([][][]float64, nx)
	for i := range samples {
		samples[i] = make([][]float64, ny)
	}
	return &HeatMap{layout: l, allowRepeats: allowRepeats, samples: samples, last: newVisitorMatrix(nx, ny)}, nil
}

// Visit records value for visitor at (x, y).
func (h *HeatMap) Visit(x, y float64, visitor int, value float64) {
	ix, iy := h.Index(x, y)
	if !h.allowRepeats && h.last[ix][iy] == visitor {
		return
	}
	h.last[ix][iy] = visitor
	h.samples[ix][iy] = append(h.samples[ix][iy], value)
}

// Samples returns the values recorded in a cell, in visit order. The
// slice must not be modified.
func (h *HeatMap) Samples(ix, iy int) []float64 {
	return h.samples[ix][iy]
}

// Method reduces a cell's samples to one value.
type Method struct {
	kind       methodKind
	percentile float64
}

type methodKind int

const (
	methodMean methodKind = iota
	methodMedian
	methodMin
	methodMax
	methodCount
	methodPercentile
)

var (
	Mean    = Method{kind: methodMean}
	Median  = Method{kind: methodMedian}
	Minimum = Method{kind: methodMin}
	Maximum = Method{kind: methodMax}
	Count   = Method{kind: methodCount}
)

// Percentile returns the method selecting the p-th percentile, 0 < p <= 100.
func Percentile(p float64) (Method, error) {
	if !(p > 0 && p <= 100) {
		return Method{}, fmt.Errorf("percentile %v out of range (0, 100]", p)
	}
	return Method{kind: methodPercentile, percentile: p}, nil
}

// ParseMethod accepts mean, median, min, max, count and pN (e.g. p90).
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(s) {
	case "mean":
		return Mean, nil
	case "median":
		return Median, nil
	case "min":
		return Minimum, nil
	case "max":
		return Maximum, nil
	case "count":
		return Count, nil
	}
	if rest, ok := strings.CutPrefix(strings.ToLower(s), "p"); ok {
		p, err := strconv.ParseFloat(rest, 64)
		if err == nil {
			return Percentile(p)
		}
	}
	return Method{}, fmt.Errorf("unknown statistic %q", s)
}

func (m Method) String() string {
	switch m.kind {
	case methodMedian:
		return "median"
	case methodMin:
		return "min"
	case methodMax:
		return "max"
	case methodCount:
		return "count"
	case methodPercentile:
		return "p" + strconv.FormatFloat(m.percentile, 'f', -1, 64)
	}
	return "mean"
}

// reduce returns NaN for an empty cell.
func (m Method) reduce(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	switch m.kind {
	case methodMin:
		return floats.Min(values)
	case methodMax:
		return floats.Max(values)
	case methodCount:
		return float64(len(values))
	case methodMedian, methodPercentile:
		p := 0.5
		if m.kind == methodPercentile {
			p = m.percentile / 100
		}
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		return stat.Quantile(p, stat.Empirical, sorted, nil)
	}
	return stat.Mean(values, nil)
}

// Statistic reduces every cell with method. Empty cells are NaN.
func (h *HeatMap) Statistic(method Method) [][]float64 {
	out := make([][]float64, len(h.samples))
	for ix, col := range h.samples {
		out[ix] = make([]float64, len(col))
		for iy, values := range col {
			out[ix][iy] = method.reduce(values)
		}
	}
	return out
}

// StatisticOptions tune DrawStatistic.
type StatisticOptions struct {
	Method Method
	// Visits, when set, hides cells the companion map would not draw at
	// the given brightness. It must share bounds and granularity.
	Visits *VisitorMap
	// ForcedMin and ForcedMax fix the colour scale; otherwise it spans the
	// drawn cells.
	ForcedMin, ForcedMax *float64
}

// DrawStatistic paints each non-empty cell coloured by its statistic,
// rescaled linearly onto the palette.
func (h *HeatMap) DrawStatistic(s Surface, b Brightness, p palette.Palette, c *palette.Cache, opts StatisticOptions) error {
	if opts.Visits != nil && !h.sameShape(&opts.Visits.layout) {
		return errMismatch("companion visitor map does not match heat map")
	}
	values := h.Statistic(opts.Method)

	gate := func(ix, iy int) bool { return true }
	if v := opts.Visits; v != nil {
		threshold := b.Threshold(v.Max())
		gate = func(ix, iy int) bool {
			n := v.Count(ix, iy)
			return n > 0 && float64(n) >= threshold
		}
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for ix, col := range values {
		for iy, v := range col {
			if math.IsNaN(v) || !gate(ix, iy) {
				continue
			}
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if opts.ForcedMin != nil {
		lo = *opts.ForcedMin
	}
	if opts.ForcedMax != nil {
		hi = *opts.ForcedMax
	}
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return nil
	}

	for ix, col := range values {
		for iy, v := range col {
			if math.IsNaN(v) || !gate(ix, iy) {
				continue
			}
			f := 1.0
			if hi > lo {
				f = (v - lo) / (hi - lo)
			}
			x0, y0, x1, y1 := h.CellBounds(ix, iy)
			s.FillRect(x0, y0, x1, y1, c.Color(p, f))
		}
	}
	return nil
}
