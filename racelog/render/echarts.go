package render

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/racelog/racelog/racelog/grid"
	"github.com/racelog/racelog/racelog/palette"
)

// visualMapSteps is how many palette samples the HTML colour scale gets.
const visualMapSteps = 10

// EChartsHeatMap renders a grid matrix as an interactive HTML heat map.
// Values are indexed [ix][iy] as returned by grid.VisitorMap.Visits or
// grid.HeatMap.Statistic; NaN cells are left empty.
type EChartsHeatMap struct {
	Title       string
	Subtitle    string
	Bounds      grid.Bounds
	Granularity float64
	Values      [][]float64
	Palette     palette.Palette
}

// VisitValues converts visit counts to a value matrix, leaving unvisited
// cells empty.
func VisitValues(m *grid.VisitorMap) [][]float64 {
	counts := m.Visits()
	out := make([][]float64, len(counts))
	for ix, col := range counts {
		out[ix] = make([]float64, len(col))
		for iy, n := range col {
			out[ix][iy] = float64(n)
			if n == 0 {
				out[ix][iy] = math.NaN()
			}
		}
	}
	return out
}

// Render writes a standalone HTML page.
func (h EChartsHeatMap) Render(w io.Writer) error {
	if !(h.Granularity > 0) {
		return fmt.Errorf("heat map granularity must be positive, got %v", h.Granularity)
	}
	nx := len(h.Values)
	ny := 0
	if nx > 0 {
		ny = len(h.Values[0])
	}

	xLabels := make([]string, nx)
	for i := range xLabels {
		xLabels[i] = fmt.Sprintf("%.2f", h.Bounds.MinX+float64(i)*h.Granularity)
	}
	yLabels := make([]string, ny)
	for i := range yLabels {
		yLabels[i] = fmt.Sprintf("%.2f", h.Bounds.MinY+float64(i)*h.Granularity)
	}

	data := make([]opts.HeatMapData, 0, nx*ny)
	lo, hi := math.Inf(1), math.Inf(-1)
	for ix, col := range h.Values {
		for iy, v := range col {
			if math.IsNaN(v) {
				continue
			}
			lo, hi = math.Min(lo, v), math.Max(hi, v)
			data = append(data, opts.HeatMapData{Value: [3]interface{}{ix, iy, v}})
		}
	}
	if len(data) == 0 {
		lo, hi = 0, 1
	}

	colours := make([]string, visualMapSteps)
	for i := range colours {
		c := h.Palette.At(float64(i) / (visualMapSteps - 1))
		colours[i] = fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: h.Title, Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: h.Title, Subtitle: h.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: yLabels, Name: "Y (m)", NameLocation: "middle", NameGap: 40}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			InRange:    &opts.VisualMapInRange{Color: colours},
		}),
	)
	hm.SetXAxis(xLabels).AddSeries("cells", data)

	if err := hm.Render(w); err != nil {
		return fmt.Errorf("render heat map: %w", err)
	}
	return nil
}
