package cmd

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/racelog/racelog/racelog"
	"github.com/racelog/racelog/racelog/metacache"
)

// logProgress reports parsing progress at info level every tenth.
type logProgress struct {
	label string
	tenth int64
}

func (p *logProgress) Report(done, total int64) {
	if total <= 0 {
		return
	}
	tenth := done * 10 / total
	if tenth > p.tenth {
		p.tenth = tenth
		logrus.Infof("%s: %d%%", p.label, tenth*10)
	}
}

// loadLog parses the files of one run with the configured parser settings.
// A single-file parse refreshes the metadata cache.
func loadLog(paths []string) (*racelog.Log, error) {
	mode, err := racelog.ParseQuarterMode(cfg.Parser.Quarters)
	if err != nil {
		return nil, err
	}
	log, err := racelog.LoadFiles(paths, racelog.LoadOptions{
		Assembler: racelog.AssemblerConfig{
			MaxOrphans:   cfg.Parser.MaxOrphans,
			FirstEpisode: cfg.Parser.FirstEpisode,
		},
		Quarters: mode,
		Progress: &logProgress{label: strings.Join(paths, ", ")},
	})
	if err != nil {
		return nil, err
	}
	logrus.Infof("loaded %d episodes and %d evaluation phases", len(log.Episodes), len(log.Evaluations))
	if len(paths) == 1 {
		cacheMeta(paths[0], &log.Meta)
	}
	return log, nil
}

// cacheMeta stores meta for path. Cache failures never fail a command.
func cacheMeta(path string, meta *racelog.LogMeta) {
	if cfg.Cache.Disabled {
		return
	}
	store, err := metacache.Open(cfg.Cache.Path)
	if err != nil {
		logrus.Warnf("metadata cache unavailable: %v", err)
		return
	}
	defer func() { _ = store.Close() }()
	if err := store.Put(path, meta); err != nil {
		logrus.Warnf("caching metadata for %s: %v", path, err)
	}
}

// filterFlags select episodes for the analysis commands.
type filterFlags struct {
	quarter      int
	completeOnly bool
	minPercent   float64
	ids          []int
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.quarter, "quarter", 0, "Only episodes of this training quarter (1-4, 0 = all)")
	cmd.Flags().BoolVar(&f.completeOnly, "complete-only", false, "Only episodes that finished a lap")
	cmd.Flags().Float64Var(&f.minPercent, "min-percent", 0, "Only episodes reaching at least this percent of a lap")
	cmd.Flags().IntSliceVar(&f.ids, "episodes", nil, "Comma-separated episode IDs")
}

func (f *filterFlags) filter() (racelog.EpisodeFilter, error) {
	if f.quarter < 0 || f.quarter > 4 {
		return racelog.EpisodeFilter{}, fmt.Errorf("quarter must be 0-4, got %d", f.quarter)
	}
	return racelog.EpisodeFilter{
		Quarter:      f.quarter,
		CompleteOnly: f.completeOnly,
		MinPercent:   f.minPercent,
		IDs:          f.ids,
	}, nil
}

// selectEpisodes applies the filter flags to a loaded run.
func selectEpisodes(log *racelog.Log, f *filterFlags) ([]*racelog.Episode, error) {
	ef, err := f.filter()
	if err != nil {
		return nil, err
	}
	episodes := racelog.Filter(log.Episodes, ef)
	logrus.Infof("%d of %d episodes selected", len(episodes), len(log.Episodes))
	return episodes, nil
}
