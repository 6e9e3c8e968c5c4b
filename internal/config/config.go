package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Values is the owner configuration tree that manifests reference through
// config placeholders. Paths are dot or underscore separated.
type Values map[string]any

// Instance identifies the owning adapter instance. Its fields feed the
// auxiliary placeholder variables available to manifests.
type Instance struct {
	Ordinal   int    `yaml:"ordinal"`
	Namespace string `yaml:"namespace"`
	Hostname  string `yaml:"hostname"`
}

// LoadValues reads a YAML or JSON values file. A missing path yields an
// empty tree so manifests without configuration still resolve.
func LoadValues(path string) (Values, error) {
	if path == "" {
		return Values{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "values load failed (%s)", path)
	}
	// Decode into the plain map shape: yaml gives nested mappings the
	// target's named type, and the template path walker only descends
	// through map[string]any subtrees.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "values parse failed (%s)", path)
	}
	if raw == nil {
		return Values{}, nil
	}
	return Values(raw), nil
}

// Vars builds the auxiliary variable map for template resolution.
func (i Instance) Vars() map[string]any {
	hostname := i.Hostname
	if hostname == "" {
		hostname, _ = os.Hostname()
	}
	namespace := i.Namespace
	if namespace == "" {
		namespace = fmt.Sprintf("docker-manager.%d", i.Ordinal)
	}
	return map[string]any{
		"instance":  i.Ordinal,
		"namespace": namespace,
		"hostname":  hostname,
	}
}

// Prefix is the owner naming prefix derived from the instance identity,
// e.g. "iob_0_".
func (i Instance) Prefix() string {
	return "iob_" + strconv.Itoa(i.Ordinal) + "_"
}
