package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stackgen-cli/compose-pilot/internal/controller"
	"github.com/stackgen-cli/compose-pilot/internal/reporter"
)

var (
	watchInterval time.Duration
	watchStats    bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reconcile, then keep monitoring until interrupted",
	Long: `Run a reconciliation pass and stay resident: a recurring monitor restarts
any monitoring-enabled container found stopped. On SIGINT/SIGTERM every
container whose stop-on-unload directive is set is stopped before exit.

Examples:
  compose-pilot watch -m docker-compose.yml --values config.yml
  compose-pilot watch --interval 10s --stats`,
	Run: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", controller.DefaultMonitorInterval, "Monitor tick interval")
	watchCmd.Flags().BoolVar(&watchStats, "stats", false, "Print container stats on every tick")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	ctrl, err := newController()
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(2)
	}
	ctx := cmd.Context()
	if err := ctrl.ReconcileAll(ctx); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
	// The watch loop drives monitor ticks itself, at its own interval.
	ctrl.StopMonitor()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sig:
			color.Yellow("Shutting down")
			ctrl.StopMonitor()
			if err := ctrl.StopAll(ctx); err != nil {
				color.Red("Error stopping containers: %v", err)
				os.Exit(1)
			}
			return
		case <-ticker.C:
			ctrl.MonitorTick(ctx)
			if watchStats {
				fmt.Print(reporter.StatsText(ctrl.GetStats()))
			}
		}
	}
}
