// Package render provides grid.Surface implementations: a gonum/plot
// canvas saved as an image, and a go-echarts HTML heat map.
package render

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/racelog/racelog/racelog/geometry"
	"github.com/racelog/racelog/racelog/grid"
)

// Plot is a grid.Surface backed by a gonum plot. Cells are drawn first;
// paths and markers are layered on top in the order added.
type Plot struct {
	plot  *plot.Plot
	cells *cellLayer
}

// NewPlot creates an empty plot whose axes span b.
func NewPlot(title string, b grid.Bounds) *Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"
	p.BackgroundColor = color.Black

	cells := &cellLayer{bounds: b}
	p.Add(cells)
	p.X.Min, p.X.Max = b.MinX, b.MaxX
	p.Y.Min, p.Y.Max = b.MinY, b.MaxY
	return &Plot{plot: p, cells: cells}
}

// FillRect implements grid.Surface.
func (p *Plot) FillRect(x0, y0, x1, y1 float64, c color.Color) {
	p.cells.rects = append(p.cells.rects, cellRect{x0, y0, x1, y1, c})
}

// Cells reports how many rectangles have been filled.
func (p *Plot) Cells() int {
	return len(p.cells.rects)
}

// AddPath draws a polyline, such as one episode's route.
func (p *Plot) AddPath(label string, points []geometry.Point, c color.Color) error {
	if len(points) < 2 {
		return nil
	}
	line, err := plotter.NewLine(xys(points))
	if err != nil {
		return fmt.Errorf("path %s: %w", label, err)
	}
	line.Color = c
	line.Width = vg.Points(1)
	p.plot.Add(line)
	if label != "" {
		p.plot.Legend.Add(label, line)
	}
	return nil
}

// AddMarkers draws one glyph per point, such as obstacle locations or the
// cars of a race frame.
func (p *Plot) AddMarkers(label string, points []geometry.Point, c color.Color) error {
	if len(points) == 0 {
		return nil
	}
	scatter, err := plotter.NewScatter(xys(points))
	if err != nil {
		return fmt.Errorf("markers %s: %w", label, err)
	}
	scatter.GlyphStyle.Color = c
	scatter.GlyphStyle.Radius = vg.Points(3)
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	p.plot.Add(scatter)
	if label != "" {
		p.plot.Legend.Add(label, scatter)
	}
	return nil
}

// Save writes the plot; the file extension picks the format (png, svg,
// pdf, ...).
func (p *Plot) Save(width, height vg.Length, path string) error {
	p.fixAxes()
	if err := p.plot.Save(width, height, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

// WriteTo encodes the plot in format to w.
func (p *Plot) WriteTo(w io.Writer, width, height vg.Length, format string) error {
	p.fixAxes()
	wt, err := p.plot.WriterTo(width, height, format)
	if err != nil {
		return fmt.Errorf("encode plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write plot: %w", err)
	}
	return nil
}

// fixAxes keeps the grid bounds as the view even when paths reach beyond.
func (p *Plot) fixAxes() {
	b := p.cells.bounds
	p.plot.X.Min, p.plot.X.Max = b.MinX, b.MaxX
	p.plot.Y.Min, p.plot.Y.Max = b.MinY, b.MaxY
	p.plot.Legend.Top = true
	p.plot.Legend.Left = false
	p.plot.Legend.XOffs = -10
	p.plot.Legend.YOffs = -10
}

func xys(points []geometry.Point) plotter.XYs {
	out := make(plotter.XYs, len(points))
	for i, pt := range points {
		out[i] = plotter.XY{X: pt.X, Y: pt.Y}
	}
	return out
}

type cellRect struct {
	x0, y0, x1, y1 float64
	c              color.Color
}

// cellLayer is a plot.Plotter for filled grid cells.
type cellLayer struct {
	bounds grid.Bounds
	rects  []cellRect
}

func (l *cellLayer) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	for _, r := range l.rects {
		pts := []vg.Point{
			{X: trX(r.x0), Y: trY(r.y0)},
			{X: trX(r.x1), Y: trY(r.y0)},
			{X: trX(r.x1), Y: trY(r.y1)},
			{X: trX(r.x0), Y: trY(r.y1)},
		}
		c.FillPolygon(r.c, c.ClipPolygonXY(pts))
	}
}

// DataRange implements plot.DataRanger.
func (l *cellLayer) DataRange() (xmin, xmax, ymin, ymax float64) {
	return l.bounds.MinX, l.bounds.MaxX, l.bounds.MinY, l.bounds.MaxY
}
