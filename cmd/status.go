package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the runtime state of owned containers",
	Long: `List every container the manifest owns together with its current runtime
state. Containers the manifest declares but the runtime does not know yet are
shown as absent.`,
	Run: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	ctrl, err := newController()
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(2)
	}

	owned, err := ctrl.ListOwned(cmd.Context())
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}

	states := make(map[string]string, len(owned))
	for _, summary := range owned {
		states[summary.Name] = summary.State
	}

	cyan := color.New(color.FgCyan).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	var names []string
	for _, summary := range owned {
		names = append(names, summary.Name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%s  %s\n", cyan(name), states[name])
	}
	if len(names) == 0 {
		fmt.Println(yellow("No owned containers in the runtime."))
	}
}
