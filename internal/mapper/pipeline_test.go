package mapper

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/stackgen-cli/compose-pilot/internal/config"
	"github.com/stackgen-cli/compose-pilot/internal/parser"
	"github.com/stackgen-cli/compose-pilot/internal/template"
)

// Exercises the whole manifest path at once: values file, placeholder
// resolution, normalization and mapping. A control label carrying a config
// placeholder must end up as the lifted directive, never as a runtime label.
func TestPipelineControlLabelFromValuesFile(t *testing.T) {
	valuesPath := filepath.Join(t.TempDir(), "values.yml")
	if err := os.WriteFile(valuesPath, []byte("dockerInflux:\n  enabled: false\n"), 0644); err != nil {
		t.Fatalf("Failed to write values file: %v", err)
	}
	values, err := config.LoadValues(valuesPath)
	if err != nil {
		t.Fatalf("LoadValues failed: %v", err)
	}

	manifest := `
services:
  influxdb:
    image: influxdb:2.7
    labels:
      iobEnabled: "${config.dockerInflux.enabled:-true}"
      tier: metrics
`
	var raw any
	if err := yaml.Unmarshal([]byte(manifest), &raw); err != nil {
		t.Fatalf("Failed to parse manifest: %v", err)
	}

	resolved := template.New(values, config.Instance{Ordinal: 0}.Vars()).Resolve(raw)
	m, err := parser.Load(resolved)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	configs, err := Map(m)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if len(configs) != 1 {
		t.Fatalf("Expected 1 config, got %d", len(configs))
	}

	cfg := configs[0]
	if cfg.Enabled() {
		t.Error("iobEnabled resolved from the values file should disable the container")
	}
	if _, leaked := cfg.Labels["iobEnabled"]; leaked {
		t.Error("control label must be lifted, not passed to the runtime")
	}
	if cfg.Labels["tier"] != "metrics" {
		t.Errorf("ordinary labels must survive, got %v", cfg.Labels)
	}
}
