package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var renderFormat string

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the resolved, mapped container configurations",
	Long: `Run the manifest through placeholder resolution, normalization and
mapping, then print the resulting container configurations without
contacting the runtime.

Examples:
  compose-pilot render -m docker-compose.yml --values config.yml
  compose-pilot render --format json`,
	Run: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", "yaml", "Output format: yaml, json")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) {
	configs, err := loadDesired()
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(2)
	}

	// Round-trip through YAML so both formats share the manifest-style
	// lowercase field names.
	data, err := yaml.Marshal(configs)
	if err != nil {
		color.Red("Error generating YAML: %v", err)
		os.Exit(2)
	}

	switch renderFormat {
	case "json":
		var tree any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			color.Red("Error generating JSON: %v", err)
			os.Exit(2)
		}
		out, err := json.MarshalIndent(tree, "", "  ")
		if err != nil {
			color.Red("Error generating JSON: %v", err)
			os.Exit(2)
		}
		fmt.Println(string(out))
	default:
		fmt.Print(string(data))
	}
}
