package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/UWCubeSat/hs2-egse/app"
	"github.com/UWCubeSat/hs2-egse/config"
	"github.com/UWCubeSat/hs2-egse/infra/logger"
)

var (
	logPath string
	useSim  bool
)

var runCmd = &cobra.Command{
	Use:   "run <port> <schedule.csv>",
	Short: "Run a scheduled discharge session",
	Long: `Run drives the electronic load through the current schedule while
logging voltage, current and power at the configured sampling interval.
Press Ctrl+C to stop; the load is always returned to zero current with its
input disabled before the command exits.`,
	Args: cobra.ExactArgs(2),
	RunE: runSession,
}

func init() {
	runCmd.Flags().StringVar(&logPath, "log", "voltage_log.csv", "output CSV file for telemetry")
	runCmd.Flags().BoolVar(&useSim, "sim", false, "drive the simulated load instead of hardware")
	rootCmd.AddCommand(runCmd)
}

func runSession(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	svc, err := app.New(cfg, app.Options{
		Port:         args[0],
		SchedulePath: args[1],
		LogPath:      logPath,
		Simulate:     useSim,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}

func loadConfig() (*config.Config, error) {
	if cfgPath == "" {
		return config.Default(), nil
	}
	return config.Load(cfgPath)
}
