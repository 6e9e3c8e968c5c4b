package cmd

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop owned containers",
	Long: `Stop every owned container whose stop-on-unload directive is set (the
default), in reverse manifest order. Containers, networks and volumes are
left in place for the next pass.`,
	Run: runDown,
}

func init() {
	rootCmd.AddCommand(downCmd)
}

func runDown(cmd *cobra.Command, args []string) {
	ctrl, err := newController()
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(2)
	}
	if err := ctrl.StopAll(cmd.Context()); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
	color.Green("Stopped.")
}
