package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stackgen-cli/compose-pilot/internal/reporter"
)

var (
	planFormat string
	planStrict bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what a reconciliation pass would do, without touching anything",
	Long: `Compute create/recreate/start decisions for every owned container by
diffing the desired configuration against the live runtime state.

Examples:
  compose-pilot plan -m docker-compose.yml
  compose-pilot plan --values config.yml --format json
  compose-pilot plan --strict`,
	Run: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planFormat, "format", "f", "text", "Output format: text, json")
	planCmd.Flags().BoolVar(&planStrict, "strict", false, "Exit 1 if the plan is not empty")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) {
	ctrl, err := newController()
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(2)
	}

	plan, err := ctrl.Plan(cmd.Context())
	if err != nil {
		color.Red("Error computing plan: %v", err)
		os.Exit(2)
	}

	switch planFormat {
	case "json":
		out, err := json.MarshalIndent(reporter.ToJSON(plan, manifestFile), "", "  ")
		if err != nil {
			color.Red("Error generating JSON: %v", err)
			os.Exit(2)
		}
		fmt.Println(string(out))
	default:
		fmt.Print(reporter.PlanText(plan, manifestFile))
	}

	if planStrict && plan.Dirty() {
		os.Exit(1)
	}
}
