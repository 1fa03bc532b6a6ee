package render

import (
	"bytes"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"github.com/racelog/racelog/racelog/geometry"
	"github.com/racelog/racelog/racelog/grid"
	"github.com/racelog/racelog/racelog/palette"
)

var bounds = grid.Bounds{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}

func populated(t *testing.T) *grid.VisitorMap {
	t.Helper()
	m, err := grid.NewVisitorMap(bounds, 1)
	require.NoError(t, err)
	for v := 0; v < 5; v++ {
		for x := 0.5; x < 10; x++ {
			m.Visit(x, 5, v)
		}
	}
	m.Visit(2.5, 2.5, 0)
	return m
}

func TestPlot_ReceivesGridCells(t *testing.T) {
	// GIVEN a populated visitor map
	m := populated(t)
	p := NewPlot("visits", bounds)
	grey, err := palette.Named(palette.Grey)
	require.NoError(t, err)

	// WHEN drawn onto the plot and encoded as PNG
	m.Draw(p, grid.MuchBrighter, grey, palette.NewCache())
	require.NoError(t, p.AddPath("route", []geometry.Point{{X: 0.5, Y: 5}, {X: 9.5, Y: 5}}, color.White))
	require.NoError(t, p.AddMarkers("cars", []geometry.Point{{X: 3, Y: 5}}, color.RGBA{R: 255, A: 255}))
	var buf bytes.Buffer
	require.NoError(t, p.WriteTo(&buf, 4*vg.Inch, 4*vg.Inch, "png"))

	// THEN every visited cell was filled and the output is a PNG
	assert.Equal(t, 11, p.Cells())
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestPlot_SaveByExtension(t *testing.T) {
	p := NewPlot("empty", bounds)
	dir := t.TempDir()

	for _, name := range []string{"out.png", "out.svg"} {
		path := filepath.Join(dir, name)
		require.NoError(t, p.Save(3*vg.Inch, 3*vg.Inch, path))
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size(), name)
	}
}

func TestPlot_IgnoresDegenerateShapes(t *testing.T) {
	p := NewPlot("x", bounds)
	assert.NoError(t, p.AddPath("one point", []geometry.Point{{X: 1, Y: 1}}, color.White))
	assert.NoError(t, p.AddMarkers("none", nil, color.White))
}

func TestEChartsHeatMap_Render(t *testing.T) {
	// GIVEN visit values with empty cells
	m := populated(t)
	values := VisitValues(m)
	assert.True(t, math.IsNaN(values[0][0]))
	assert.Equal(t, 5.0, values[0][5])

	fire, err := palette.Named(palette.Fire)
	require.NoError(t, err)
	page := EChartsHeatMap{
		Title:       "Visits",
		Subtitle:    "training.log",
		Bounds:      bounds,
		Granularity: 1,
		Values:      values,
		Palette:     fire,
	}

	// WHEN rendered
	var buf bytes.Buffer
	require.NoError(t, page.Render(&buf))

	// THEN an HTML page with the chart is produced
	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "Visits")
	assert.Contains(t, html, "heatmap")
}

func TestEChartsHeatMap_RejectsZeroGranularity(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, EChartsHeatMap{}.Render(&buf))
}
