package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/UWCubeSat/hs2-egse/core/schedule"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Schedule related commands",
}

var scheduleValidateCmd = &cobra.Command{
	Use:   "validate <schedule.csv>",
	Short: "Parse a schedule and print its points",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleValidate,
}

func init() {
	scheduleCmd.AddCommand(scheduleValidateCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func runScheduleValidate(cmd *cobra.Command, args []string) error {
	sched, err := schedule.LoadFile(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d schedule points:\n", sched.Len())
	for _, p := range sched.Points() {
		fmt.Fprintf(cmd.OutOrStdout(), "  t=%gs -> %gA\n", p.Offset.Seconds(), p.Setpoint)
	}
	return nil
}
