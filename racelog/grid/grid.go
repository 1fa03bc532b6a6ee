// Package grid bins track positions into square cells and renders the
// result onto a Surface.
//
// A VisitorMap counts how many distinct visitors (episodes) passed through
// each cell. A HeatMap keeps the sampled values of a per-event measure in
// each cell and reduces them with a statistic. In both, a cell only
// records when the visitor differs from the last one it saw, unless
// repeats are allowed, so a slow car does not outweigh a fast one.
package grid

import (
	"fmt"
	"image/color"
	"math"

	"github.com/racelog/racelog/racelog/geometry"
)

// Surface is anything a grid can paint onto. Coordinates are in track
// units; the surface owns the mapping to pixels.
type Surface interface {
	FillRect(x0, y0, x1, y1 float64, c color.Color)
}

// Bounds is the track area covered by a grid.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// BoundsOf returns the smallest bounds containing every point, grown by
// margin on each side. It returns zero bounds for no points.
func BoundsOf(points []geometry.Point, margin float64) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}
	b := Bounds{MinX: points[0].X, MinY: points[0].Y, MaxX: points[0].X, MaxY: points[0].Y}
	for _, p := range points[1:] {
		b.MinX = math.Min(b.MinX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MaxY = math.Max(b.MaxY, p.Y)
	}
	b.MinX -= margin
	b.MinY -= margin
	b.MaxX += margin
	b.MaxY += margin
	return b
}

// Width returns the horizontal extent.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns the vertical extent.
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// axis quantises one coordinate.
type axis struct {
	min, max, g float64
	size        int
}

func newAxis(min, max, g float64) axis {
	a := axis{min: min, max: max, g: g, size: 1}
	a.size = a.raw(max) + 1
	if a.size < 1 {
		a.size = 1
	}
	return a
}

func (a axis) raw(v float64) int {
	v = math.Max(a.min, math.Min(a.max, v))
	return int(math.Round((v - a.min - a.g/2) / a.g))
}

func (a axis) index(v float64) int {
	return max(0, min(a.size-1, a.raw(v)))
}

// layout is the cell addressing shared by every grid type.
type layout struct {
	bounds      Bounds
	granularity float64
	x, y        axis
}

func newLayout(b Bounds, granularity float64) (layout, error) {
	if !(granularity > 0) {
		return layout{}, fmt.Errorf("granularity must be positive, got %v", granularity)
	}
	if b.MaxX < b.MinX || b.MaxY < b.MinY {
		return layout{}, fmt.Errorf("inverted bounds %+v", b)
	}
	return layout{
		bounds:      b,
		granularity: granularity,
		x:           newAxis(b.MinX, b.MaxX, granularity),
		y:           newAxis(b.MinY, b.MaxY, granularity),
	}, nil
}

// Index returns the cell holding (x, y). Points outside the bounds are
// clamped onto the nearest edge cell.
func (l *layout) Index(x, y float64) (ix, iy int) {
	return l.x.index(x), l.y.index(y)
}

// CellBounds returns the rectangle covered by a cell.
func (l *layout) CellBounds(ix, iy int) (x0, y0, x1, y1 float64) {
	x0 = l.bounds.MinX + float64(ix)*l.granularity
	y0 = l.bounds.MinY + float64(iy)*l.granularity
	return x0, y0, x0 + l.granularity, y0 + l.granularity
}

// Size returns the number of cells along each axis.
func (l *layout) Size() (nx, ny int) {
	return l.x.size, l.y.size
}

// Bounds returns the area covered.
func (l *layout) Bounds() Bounds {
	return l.bounds
}

// Granularity returns the cell side length.
func (l *layout) Granularity() float64 {
	return l.granularity
}

func (l *layout) sameShape(o *layout) bool {
	return l.bounds == o.bounds && l.granularity == o.granularity
}

const noVisitor = -1

func newVisitorMatrix(nx, ny int) [][]int {
	m := make([][]int, nx)
	for i := range m {
		m[i] = make([]int, ny)
		for j := range m[i] {
			m[i][j] = noVisitor
		}
	}
	return m
}

func errMismatch(format string, args ...any) error {
	return fmt.Errorf("grid: "+format, args...)
}
