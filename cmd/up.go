package cmd

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Run one reconciliation pass",
	Long: `Bring the runtime in line with the manifest once: provision networks and
volumes, pull or update images per policy, create absent containers, start
stopped ones and recreate drifted ones.

Examples:
  compose-pilot up -m docker-compose.yml --values config.yml
  compose-pilot up --instance 1`,
	Run: runUp,
}

func init() {
	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, args []string) {
	ctrl, err := newController()
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(2)
	}
	if err := ctrl.ReconcileAll(cmd.Context()); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
	ctrl.StopMonitor()
	color.Green("Reconciliation pass complete.")
}
