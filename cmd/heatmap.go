package cmd

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/racelog/racelog/racelog"
	"github.com/racelog/racelog/racelog/analyze"
	"github.com/racelog/racelog/racelog/geometry"
	"github.com/racelog/racelog/racelog/grid"
	"github.com/racelog/racelog/racelog/palette"
	"github.com/racelog/racelog/racelog/render"
)

// routeTolerance is how far, in metres, a drawn route may stray from the
// recorded positions.
const routeTolerance = 0.02

// heatmapOptions are the resolved settings of one heatmap run.
type heatmapOptions struct {
	Kind        analyze.Kind
	Config      analyze.Config
	Out         string
	WidthPx     int
	HeightPx    int
	BestLap     bool
	ShowObjects bool
}

var (
	heatmapKind       string
	heatmapMeasure    string
	heatmapMethod     string
	heatmapBrightness string
	heatmapPalette    string
	heatmapGran       float64
	heatmapRepeats    bool
	heatmapZones      []float64
	heatmapOut        string
	heatmapWidth      int
	heatmapHeight     int
	heatmapBestLap    bool
	heatmapFilter     filterFlags
)

var heatmapCmd = &cobra.Command{
	Use:   "heatmap FILE...",
	Short: "Map where the cars went, or a measure per grid cell",
	Long: "Build a spatial grid over the track from the selected episodes and render it. " +
		"The output extension picks the format: .html gives an interactive chart, anything else " +
		"(.png, .svg, .pdf) a static plot.",
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := heatmapOptionsFromFlags(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		log, err := loadLog(args)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		episodes, err := selectEpisodes(log, &heatmapFilter)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := runHeatmap(opts, log, episodes); err != nil {
			logrus.Fatalf("heatmap: %v", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", opts.Out)
	},
}

// heatmapOptionsFromFlags merges the flags over the grid config; flags win
// only when set.
func heatmapOptionsFromFlags(cmd *cobra.Command) (heatmapOptions, error) {
	opts := heatmapOptions{
		Out:         heatmapOut,
		WidthPx:     heatmapWidth,
		HeightPx:    heatmapHeight,
		BestLap:     heatmapBestLap,
		ShowObjects: true,
	}
	var err error
	if opts.Kind, err = analyze.ParseKind(heatmapKind); err != nil {
		return opts, err
	}

	c := analyze.DefaultConfig()
	c.Margin = cfg.Grid.Margin
	c.Granularity = cfg.Grid.Granularity
	if cmd.Flags().Changed("granularity") {
		c.Granularity = heatmapGran
	}
	brightness := cfg.Grid.Brightness
	if cmd.Flags().Changed("brightness") {
		brightness = heatmapBrightness
	}
	if c.Brightness, err = grid.ParseBrightness(brightness); err != nil {
		return opts, err
	}
	name := cfg.Grid.Palette
	if cmd.Flags().Changed("palette") {
		name = heatmapPalette
	}
	if c.Palette, err = palette.Named(name); err != nil {
		return opts, err
	}
	c.Cache = palette.NewCache()
	c.AllowRepeats = heatmapRepeats
	if c.Measure, err = analyze.ParseMeasure(heatmapMeasure); err != nil {
		return opts, err
	}
	if c.Method, err = grid.ParseMethod(heatmapMethod); err != nil {
		return opts, err
	}
	switch len(heatmapZones) {
	case 0:
	case 2:
		if heatmapZones[0] > heatmapZones[1] {
			return opts, fmt.Errorf("speed zones must be ascending, got %v", heatmapZones)
		}
		c.SpeedZones = [2]float64{heatmapZones[0], heatmapZones[1]}
	default:
		return opts, fmt.Errorf("speed zones take two values, got %d", len(heatmapZones))
	}
	opts.Config = c
	return opts, nil
}

// runHeatmap builds the analysis over episodes and writes it to opts.Out.
func runHeatmap(opts heatmapOptions, log *racelog.Log, episodes []*racelog.Episode) error {
	if len(episodes) == 0 {
		return fmt.Errorf("no episodes selected")
	}
	if opts.Config.Bounds == (grid.Bounds{}) {
		opts.Config.Bounds = grid.BoundsOf(positions(episodes), opts.Config.Margin)
	}
	a, err := analyze.New(opts.Kind, opts.Config)
	if err != nil {
		return err
	}
	if err := a.Recalculate(episodes, &logProgress{label: a.Name()}); err != nil {
		return err
	}

	title := fmt.Sprintf("%s: %s (%d episodes)", orDash(log.Meta.ModelName), a.Name(), len(episodes))
	if strings.EqualFold(filepath.Ext(opts.Out), ".html") {
		return writeHTML(opts, a, title)
	}
	return writePlot(opts, a, log, episodes, title)
}

func writePlot(opts heatmapOptions, a analyze.Analyzer, log *racelog.Log, episodes []*racelog.Episode, title string) error {
	p := render.NewPlot(title, opts.Config.Bounds)
	if err := a.Render(p); err != nil {
		return err
	}
	if opts.BestLap {
		if best := fastestLap(episodes); best != nil {
			label := fmt.Sprintf("best lap: episode %d, %.2fs", best.ID, best.TimeTaken)
			if err := p.AddPath(label, geometry.Simplify(route(best), routeTolerance), color.White); err != nil {
				return err
			}
		} else {
			logrus.Warn("no complete lap to draw")
		}
	}
	if opts.ShowObjects && len(log.Meta.ObjectLocations) > 0 {
		if err := p.AddMarkers("objects", log.Meta.ObjectLocations, color.RGBA{R: 255, G: 255, B: 255, A: 255}); err != nil {
			return err
		}
	}
	logrus.Infof("%d cells drawn", p.Cells())
	return p.Save(pixels(opts.WidthPx), pixels(opts.HeightPx), opts.Out)
}

// visitsSource and heatSource are implemented by the analyzers whose grid
// can be exported as a value matrix.
type visitsSource interface {
	Visits() *grid.VisitorMap
}

type heatSource interface {
	Heat() *grid.HeatMap
}

func writeHTML(opts heatmapOptions, a analyze.Analyzer, title string) error {
	h := render.EChartsHeatMap{
		Title:       title,
		Bounds:      opts.Config.Bounds,
		Granularity: opts.Config.Granularity,
		Palette:     opts.Config.Palette,
	}
	switch src := a.(type) {
	case visitsSource:
		h.Values = render.VisitValues(src.Visits())
		h.Subtitle = "visits per cell"
	case heatSource:
		h.Values = src.Heat().Statistic(opts.Config.Method)
		h.Subtitle = fmt.Sprintf("%s of %s per cell", opts.Config.Method, opts.Config.Measure)
	default:
		return fmt.Errorf("%s cannot be written as HTML; use an image format", a.Name())
	}

	f, err := os.Create(opts.Out)
	if err != nil {
		return err
	}
	if err := h.Render(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// pixels converts a pixel count to a length at the 96 dpi gonum/plot uses
// for raster output.
func pixels(n int) vg.Length {
	return vg.Length(n) * vg.Inch / 96
}

func positions(episodes []*racelog.Episode) []geometry.Point {
	var out []geometry.Point
	for _, ep := range episodes {
		out = append(out, route(ep)...)
	}
	return out
}

func route(ep *racelog.Episode) []geometry.Point {
	out := make([]geometry.Point, len(ep.Events))
	for i, e := range ep.Events {
		out[i] = e.Point()
	}
	return out
}

func fastestLap(episodes []*racelog.Episode) *racelog.Episode {
	var best *racelog.Episode
	for _, ep := range episodes {
		if ep.LapComplete && (best == nil || ep.TimeTaken < best.TimeTaken) {
			best = ep
		}
	}
	return best
}

func init() {
	heatmapCmd.Flags().StringVar(&heatmapKind, "kind", "visits", "Analysis: visits, statistic or speed-zones")
	heatmapCmd.Flags().StringVar(&heatmapMeasure, "measure", "track-speed", "Statistic measure: track-speed, progress-speed, slide, reward, action-speed")
	heatmapCmd.Flags().StringVar(&heatmapMethod, "method", "mean", "Statistic reduction: mean, median, min, max, count or pN")
	heatmapCmd.Flags().StringVar(&heatmapBrightness, "brightness", "normal", "much-fainter, normal, brighter or much-brighter")
	heatmapCmd.Flags().StringVar(&heatmapPalette, "palette", "multicolor", "Colour palette: "+strings.Join(palette.Names(), ", "))
	heatmapCmd.Flags().Float64Var(&heatmapGran, "granularity", 0.1, "Cell size in metres")
	heatmapCmd.Flags().BoolVar(&heatmapRepeats, "allow-repeats", false, "Count every visit, not one per episode")
	heatmapCmd.Flags().Float64SliceVar(&heatmapZones, "speed-zones", nil, "Low,high track speed split for speed-zones (default tertiles)")
	heatmapCmd.Flags().StringVar(&heatmapOut, "out", "heatmap.png", "Output file (.png, .svg, .pdf or .html)")
	heatmapCmd.Flags().IntVar(&heatmapWidth, "width", 1200, "Image width in pixels")
	heatmapCmd.Flags().IntVar(&heatmapHeight, "height", 900, "Image height in pixels")
	heatmapCmd.Flags().BoolVar(&heatmapBestLap, "best-lap", false, "Draw the route of the fastest complete lap")
	heatmapFilter.register(heatmapCmd)

	rootCmd.AddCommand(heatmapCmd)
}
