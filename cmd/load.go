package cmd

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/stackgen-cli/compose-pilot/internal/config"
	"github.com/stackgen-cli/compose-pilot/internal/controller"
	"github.com/stackgen-cli/compose-pilot/internal/mapper"
	"github.com/stackgen-cli/compose-pilot/internal/models"
	"github.com/stackgen-cli/compose-pilot/internal/parser"
	"github.com/stackgen-cli/compose-pilot/internal/runtime/dockercli"
	"github.com/stackgen-cli/compose-pilot/internal/template"
)

// loadDesired runs the full manifest pipeline: read, resolve placeholders
// against the values tree and instance variables, normalize, map to
// container configs.
func loadDesired() ([]*models.ContainerConfig, error) {
	data, err := os.ReadFile(manifestFile)
	if err != nil {
		return nil, errors.Wrapf(err, "reading manifest %s", manifestFile)
	}

	values, err := config.LoadValues(valuesFile)
	if err != nil {
		return nil, err
	}
	instance := config.Instance{Ordinal: instanceNum}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "parsing manifest %s", manifestFile)
	}
	resolved := template.New(values, instance.Vars()).Resolve(raw)

	manifest, err := parser.Load(resolved)
	if err != nil {
		return nil, err
	}
	return mapper.Map(manifest)
}

// newController wires the desired configs to the Docker CLI runtime.
func newController() (*controller.Controller, error) {
	configs, err := loadDesired()
	if err != nil {
		return nil, err
	}
	prefix := namePrefix
	if prefix == "" {
		prefix = config.Instance{Ordinal: instanceNum}.Prefix()
	}
	rt := dockercli.New(dockercli.WithBinary(dockerBin))
	return controller.New(rt, configs, controller.WithPrefix(prefix))
}
