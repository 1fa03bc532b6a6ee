package cmd

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/racelog/racelog/racelog"
	"github.com/racelog/racelog/racelog/geometry"
	"github.com/racelog/racelog/racelog/grid"
	"github.com/racelog/racelog/racelog/palette"
	"github.com/racelog/racelog/racelog/race"
	"github.com/racelog/racelog/racelog/render"
)

// raceOptions are the resolved settings of one replay.
type raceOptions struct {
	Interval time.Duration
	Speedup  float64
	OutDir   string // frame images; empty logs positions instead
	WidthPx  int
	HeightPx int
}

var (
	raceInterval time.Duration
	raceSpeedup  float64
	raceOutDir   string
	raceCars     int
	raceFilter   filterFlags
)

var raceCmd = &cobra.Command{
	Use:   "race FILE...",
	Short: "Replay episodes side by side",
	Long: "Replay the selected episodes against a shared clock. By default the fastest complete laps race; " +
		"use --episodes to pick others. With --out-dir each frame is saved as an image.",
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := raceOptions{
			Interval: time.Duration(cfg.Race.IntervalMs) * time.Millisecond,
			Speedup:  cfg.Race.Speedup,
			OutDir:   raceOutDir,
			WidthPx:  800,
			HeightPx: 600,
		}
		if cmd.Flags().Changed("interval") {
			opts.Interval = raceInterval
		}
		if cmd.Flags().Changed("speedup") {
			opts.Speedup = raceSpeedup
		}

		log, err := loadLog(args)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if len(raceFilter.ids) == 0 {
			raceFilter.completeOnly = true
		}
		episodes, err := selectEpisodes(log, &raceFilter)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		episodes = fastestFirst(episodes, raceCars)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		frames, err := runRace(ctx, opts, episodes)
		if err != nil {
			logrus.Fatalf("race: %v", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "replayed %d episodes in %d frames\n", len(episodes), frames)
	},
}

// runRace replays episodes until they all finish or ctx is cancelled and
// returns the number of frames delivered.
func runRace(ctx context.Context, opts raceOptions, episodes []*racelog.Episode) (int, error) {
	if len(episodes) == 0 {
		return 0, fmt.Errorf("no episodes to race")
	}
	if opts.OutDir != "" {
		if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
			return 0, err
		}
	}

	bounds := grid.BoundsOf(positions(episodes), 1)
	colours := carColours(len(episodes))
	r := race.NewReplayer(episodes)
	logrus.Infof("racing %d episodes over %.1fs", len(episodes), r.Duration())

	var (
		mu       sync.Mutex
		frames   int
		frameErr error
	)
	err := r.Start(ctx, opts.Interval, opts.Speedup, func(f race.Frame) {
		mu.Lock()
		defer mu.Unlock()
		frames++
		if opts.OutDir == "" {
			logFrame(f)
			return
		}
		if err := saveFrame(opts, bounds, colours, episodes, f, frames); err != nil {
			frameErr = err
			r.Stop()
		}
	})
	if err != nil {
		return 0, err
	}
	r.Wait()

	mu.Lock()
	defer mu.Unlock()
	return frames, frameErr
}

func logFrame(f race.Frame) {
	for _, c := range f.Cars {
		state := "racing"
		if c.Finished {
			state = c.Status
		}
		logrus.Infof("t=%6.2fs episode %d step %d at (%.2f, %.2f) %s",
			f.Elapsed, c.Episode, c.Step, c.Position.X, c.Position.Y, state)
	}
}

func saveFrame(opts raceOptions, bounds grid.Bounds, colours []color.Color, episodes []*racelog.Episode, f race.Frame, n int) error {
	p := render.NewPlot(fmt.Sprintf("t = %.1fs", f.Elapsed), bounds)
	for i, ep := range episodes {
		if err := p.AddPath("", geometry.Simplify(route(ep), routeTolerance), dim(colours[i])); err != nil {
			return err
		}
	}
	for i, c := range f.Cars {
		label := fmt.Sprintf("episode %d", c.Episode)
		if err := p.AddMarkers(label, []geometry.Point{c.Position}, colours[i]); err != nil {
			return err
		}
	}
	path := filepath.Join(opts.OutDir, fmt.Sprintf("frame_%05d.png", n))
	return p.Save(pixels(opts.WidthPx), pixels(opts.HeightPx), path)
}

// carColours spreads n colours across the multicolor palette.
func carColours(n int) []color.Color {
	p, _ := palette.Named(palette.Multicolor)
	out := make([]color.Color, n)
	for i := range out {
		f := 0.0
		if n > 1 {
			f = float64(i) / float64(n-1)
		}
		out[i] = p.At(f)
	}
	return out
}

func dim(c color.Color) color.Color {
	r, g, b, _ := c.RGBA()
	return color.RGBA{R: uint8(r >> 9), G: uint8(g >> 9), B: uint8(b >> 9), A: 255}
}

// fastestFirst orders episodes by lap time and keeps at most n; n <= 0
// keeps all.
func fastestFirst(episodes []*racelog.Episode, n int) []*racelog.Episode {
	out := append([]*racelog.Episode(nil), episodes...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].TimeTaken < out[j].TimeTaken })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func init() {
	raceCmd.Flags().DurationVar(&raceInterval, "interval", 100*time.Millisecond, "Wall-clock time between frames")
	raceCmd.Flags().Float64Var(&raceSpeedup, "speedup", 1, "Replay seconds per wall-clock second")
	raceCmd.Flags().StringVar(&raceOutDir, "out-dir", "", "Directory for frame images")
	raceCmd.Flags().IntVar(&raceCars, "cars", 5, "Most episodes to race (0 = all selected)")
	raceFilter.register(raceCmd)

	rootCmd.AddCommand(raceCmd)
}
