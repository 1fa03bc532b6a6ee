package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/racelog/racelog/racelog"
)

var parseAsYAML bool

var parseCmd = &cobra.Command{
	Use:   "parse FILE...",
	Short: "Parse a training run and print its summary",
	Long:  "Parse the log files of one training run (one per simulation worker) and print the run's metadata, per-quarter statistics and evaluation phases.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		log, err := loadLog(args)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if parseAsYAML {
			err = writeMetaYAML(cmd.OutOrStdout(), &log.Meta)
		} else {
			err = writeSummary(cmd.OutOrStdout(), log)
		}
		if err != nil {
			logrus.Fatalf("writing summary: %v", err)
		}
	},
}

// writeSummary prints a human-readable report of a run.
func writeSummary(w io.Writer, log *racelog.Log) error {
	m := &log.Meta
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Model:\t%s\n", orDash(m.ModelName))
	fmt.Fprintf(tw, "Track:\t%s\n", orDash(m.WorldName))
	fmt.Fprintf(tw, "Race type:\t%s\n", orDash(m.RaceType))
	fmt.Fprintf(tw, "Job:\t%s\n", orDash(m.JobType))
	fmt.Fprintf(tw, "Episodes per iteration:\t%d\n", m.Hyperparameters.EpisodesPerIteration)
	fmt.Fprintf(tw, "Actions:\t%d\n", len(m.ActionSpace))
	if len(m.ObjectLocations) > 0 {
		fmt.Fprintf(tw, "Objects:\t%d\n", len(m.ObjectLocations))
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "Quarter\tEpisodes\tLaps\tSuccess %\tAvg %\tBest lap (s)\tAvg reward")
	for q := 0; q <= 4; q++ {
		s := m.Stats
		label := "all"
		if q > 0 {
			s = racelog.Summarize(racelog.Filter(log.Episodes, racelog.EpisodeFilter{Quarter: q}))
			label = fmt.Sprintf("Q%d", q)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f\t%.1f\t%s\t%.2f\n",
			label, s.EpisodeCount, s.SuccessCount, s.SuccessPercent, s.AveragePercentComplete,
			lapTime(s), s.AverageReward)
	}

	if len(log.Evaluations) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "Evaluation\tAfter iteration\tLaps\tAvg progress\tAvg reward")
		for i, p := range log.Evaluations {
			fmt.Fprintf(tw, "%d\t%d\t%d/%d\t%.1f\t%.2f\n",
				i+1, p.Iteration, p.Completions(), len(p.Progresses), p.AverageProgress(), p.AverageReward())
		}
	}
	return tw.Flush()
}

func writeMetaYAML(w io.Writer, meta *racelog.LogMeta) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(meta); err != nil {
		return err
	}
	return enc.Close()
}

func lapTime(s racelog.EpisodeStats) string {
	if s.SuccessCount == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", s.BestLapTime)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	parseCmd.Flags().BoolVar(&parseAsYAML, "yaml", false, "Print the metadata as YAML instead of a report")
	rootCmd.AddCommand(parseCmd)
}
