package cmd

import (
	"github.com/spf13/cobra"

	"github.com/UWCubeSat/hs2-egse/infra/csvlog"
	"github.com/UWCubeSat/hs2-egse/pkg/analysis"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <log.csv>",
	Short: "Summarize a recorded telemetry log",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	recs, err := csvlog.ReadLogFile(args[0])
	if err != nil {
		return err
	}
	summary, err := analysis.Summarize(recs)
	if err != nil {
		return err
	}
	return analysis.WriteText(cmd.OutOrStdout(), summary)
}
