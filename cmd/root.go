package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"

	colorMode    string
	logLevel     string
	manifestFile string
	valuesFile   string
	instanceNum  int
	namePrefix   string
	dockerBin    string
)

var rootCmd = &cobra.Command{
	Use:   "compose-pilot",
	Short: "Declarative container reconciliation from Compose-style manifests",
	Long: color.New(color.FgCyan).Sprint(`
compose-pilot - Compose Manifest Reconciler

`) + `Resolve a Compose-style manifest against instance configuration, map it to
concrete container specifications and reconcile the Docker runtime toward
that desired state: create what is absent, restart what stopped, recreate
what drifted.

` + color.New(color.FgYellow).Sprint(`Owned containers only. Unmanaged containers are never touched.
`),
	Version: version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&colorMode, "color", "auto", "Color output: auto, always, never")
	pf.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	pf.StringVarP(&manifestFile, "manifest", "m", "docker-compose.yml", "Manifest file")
	pf.StringVar(&valuesFile, "values", "", "Configuration values file (YAML or JSON)")
	pf.IntVar(&instanceNum, "instance", 0, "Instance ordinal")
	pf.StringVar(&namePrefix, "prefix", "", "Owner naming prefix (default derived from instance)")
	pf.StringVar(&dockerBin, "docker-bin", "docker", "Docker CLI binary")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		switch colorMode {
		case "never":
			color.NoColor = true
		case "always":
			color.NoColor = false
		}
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			level = logrus.InfoLevel
		}
		logrus.SetLevel(level)
		logrus.SetOutput(os.Stderr)
	}
}
