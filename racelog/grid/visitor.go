package grid

import (
	"image/color"

	"github.com/racelog/racelog/racelog/palette"
)

// VisitorMap counts distinct visitors per cell.
type VisitorMap struct {
	layout
	allowRepeats bool
	counts       [][]int
	last         [][]int
	max          int
}

// NewVisitorMap creates an empty map over b with square cells of side
// granularity.
func NewVisitorMap(b Bounds, granularity float64) (*VisitorMap, error) {
	l, err := newLayout(b, granularity)
	if err != nil {
		return nil, err
	}
	nx, ny := l.Size()
	counts := make([][]int, nx)
	for i := range counts {
		counts[i] = make([]int, ny)
	}
	return &VisitorMap{layout: l, counts: counts, last: newVisitorMatrix(nx, ny)}, nil
}

// SetAllowRepeats makes every visit count, even by the cell's last visitor.
func (m *VisitorMap) SetAllowRepeats(allow bool) {
	m.allowRepeats = allow
}

// Visit records visitor at (x, y). Visitor identities must be
// non-negative.
func (m *VisitorMap) Visit(x, y float64, visitor int) {
	ix, iy := m.Index(x, y)
	if !m.allowRepeats && m.last[ix][iy] == visitor {
		return
	}
	m.last[ix][iy] = visitor
	m.counts[ix][iy]++
	m.max = max(m.max, m.counts[ix][iy])
}

// Count returns the visits recorded in a cell.
func (m *VisitorMap) Count(ix, iy int) int {
	return m.counts[ix][iy]
}

// CountAt returns the visits recorded in the cell holding (x, y).
func (m *VisitorMap) CountAt(x, y float64) int {
	return m.Count(m.Index(x, y))
}

// Max returns the count of the busiest cell.
func (m *VisitorMap) Max() int {
	return m.max
}

// Visits returns a copy of the counts, indexed [ix][iy].
func (m *VisitorMap) Visits() [][]int {
	out := make([][]int, len(m.counts))
	for i, col := range m.counts {
		out[i] = append([]int(nil), col...)
	}
	return out
}

// Draw paints every cell at or above the brightness threshold, coloured
// by its count.
func (m *VisitorMap) Draw(s Surface, b Brightness, p palette.Palette, c *palette.Cache) {
	if m.max == 0 {
		return
	}
	threshold := b.Threshold(m.max)
	m.eachVisited(func(ix, iy, count int) {
		if float64(count) < threshold {
			return
		}
		x0, y0, x1, y1 := m.CellBounds(ix, iy)
		s.FillRect(x0, y0, x1, y1, c.Color(p, b.Intensity(count, m.max)))
	})
}

func (m *VisitorMap) eachVisited(fn func(ix, iy, count int)) {
	for ix, col := range m.counts {
		for iy, count := range col {
			if count > 0 {
				fn(ix, iy, count)
			}
		}
	}
}

// DrawOverlay paints a categorical map: each cell takes the colour of the
// map that visited it most, provided that map has at least threshold
// visits there. Ties go to the earlier map. All maps must share bounds and
// granularity.
func DrawOverlay(s Surface, maps []*VisitorMap, colours []color.Color, threshold int) error {
	if len(maps) == 0 {
		return nil
	}
	if len(colours) != len(maps) {
		return errMismatch("overlay has %d maps but %d colours", len(maps), len(colours))
	}
	first := maps[0]
	for i, m := range maps[1:] {
		if !first.sameShape(&m.layout) {
			return errMismatch("overlay map %d does not match map 0", i+1)
		}
	}

	threshold = max(threshold, 1)
	nx, ny := first.Size()
	for ix := 0; ix < nx; ix++ {
		for iy := 0; iy < ny; iy++ {
			winner, best := -1, 0
			for i, m := range maps {
				if n := m.counts[ix][iy]; n > best {
					winner, best = i, n
				}
			}
			if winner < 0 || best < threshold {
				continue
			}
			x0, y0, x1, y1 := first.CellBounds(ix, iy)
			s.FillRect(x0, y0, x1, y1, colours[winner])
		}
	}
	return nil
}
