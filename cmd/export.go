package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/racelog/racelog/racelog"
)

var (
	exportHeaderPath string
	exportDataPath   string
	exportFilter     filterFlags
)

var exportCmd = &cobra.Command{
	Use:   "export FILE...",
	Short: "Export episodes as a YAML header and a CSV of steps",
	Long:  "Export the selected episodes with every raw and derived per-step value: run metadata goes to a YAML header, steps to a CSV file.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		log, err := loadLog(args)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		n, err := runExport(log, &exportFilter, exportHeaderPath, exportDataPath)
		if err != nil {
			logrus.Fatalf("export: %v", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d episodes to %s and %s\n", n, exportHeaderPath, exportDataPath)
	},
}

func runExport(log *racelog.Log, f *filterFlags, headerPath, dataPath string) (int, error) {
	episodes, err := selectEpisodes(log, f)
	if err != nil {
		return 0, err
	}
	if err := racelog.ExportEpisodes(&log.Meta, log.Sources, episodes, headerPath, dataPath); err != nil {
		return 0, err
	}
	return len(episodes), nil
}

func init() {
	exportCmd.Flags().StringVar(&exportHeaderPath, "header", "episodes.yaml", "Output YAML header path")
	exportCmd.Flags().StringVar(&exportDataPath, "data", "episodes.csv", "Output CSV data path")
	exportFilter.register(exportCmd)

	rootCmd.AddCommand(exportCmd)
}
