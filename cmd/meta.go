package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/racelog/racelog/racelog"
	"github.com/racelog/racelog/racelog/metacache"
)

var metaCmd = &cobra.Command{
	Use:   "meta",
	Short: "Inspect the metadata cache",
	Long:  "The metadata cache remembers each parsed log's model, track, settings and statistics so runs can be listed without parsing them again.",
}

// --- racelog meta list ---

var metaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached logs",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		store := openCache()
		defer func() { _ = store.Close() }()
		entries, err := store.List()
		if err != nil {
			logrus.Fatalf("listing cache: %v", err)
		}
		if err := writeEntries(cmd.OutOrStdout(), entries); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// --- racelog meta show ---

var metaShowCmd = &cobra.Command{
	Use:   "show FILE",
	Short: "Show a log's metadata, parsing it only when the cache is stale",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		meta, err := cachedMeta(args[0])
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := writeMetaYAML(cmd.OutOrStdout(), meta); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// --- racelog meta forget ---

var metaForgetCmd = &cobra.Command{
	Use:   "forget FILE...",
	Short: "Remove logs from the cache",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := openCache()
		defer func() { _ = store.Close() }()
		for _, path := range args {
			if err := store.Delete(path); err != nil {
				logrus.Fatalf("%v", err)
			}
		}
	},
}

// --- racelog meta prune ---

var metaPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove cache entries whose log changed or vanished",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		store := openCache()
		defer func() { _ = store.Close() }()
		n, err := store.Prune()
		if err != nil {
			logrus.Fatalf("pruning cache: %v", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d stale entries\n", n)
	},
}

func openCache() *metacache.Store {
	if cfg.Cache.Disabled {
		logrus.Fatalf("metadata cache is disabled in the config")
	}
	store, err := metacache.Open(cfg.Cache.Path)
	if err != nil {
		logrus.Fatalf("%v", err)
	}
	return store
}

// cachedMeta returns the cached metadata for path, parsing and caching the
// log on a miss.
func cachedMeta(path string) (*racelog.LogMeta, error) {
	if !cfg.Cache.Disabled {
		store, err := metacache.Open(cfg.Cache.Path)
		if err != nil {
			return nil, err
		}
		meta, ok, err := store.Get(path)
		_ = store.Close()
		if err != nil {
			return nil, err
		}
		if ok {
			logrus.Debugf("cache hit for %s", path)
			return meta, nil
		}
	}
	log, err := loadLog([]string{path})
	if err != nil {
		return nil, err
	}
	return &log.Meta, nil
}

func writeEntries(w io.Writer, entries []metacache.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tModel\tTrack\tEpisodes\tSuccess %\tCached\tPath")
	for _, e := range entries {
		path := e.Path
		if e.Stale {
			path += " (stale)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.1f\t%s\t%s\n",
			e.ID[:8], orDash(e.Meta.ModelName), orDash(e.Meta.WorldName),
			e.Meta.Stats.EpisodeCount, e.Meta.Stats.SuccessPercent,
			time.Unix(0, e.CachedAtNs).Format(time.DateTime), path)
	}
	return tw.Flush()
}

func init() {
	metaCmd.AddCommand(metaListCmd)
	metaCmd.AddCommand(metaShowCmd)
	metaCmd.AddCommand(metaForgetCmd)
	metaCmd.AddCommand(metaPruneCmd)
	rootCmd.AddCommand(metaCmd)
}
