package controller

import (
	"strings"

	"github.com/distribution/reference"

	"github.com/stackgen-cli/compose-pilot/internal/models"
)

// builtinNetworkModes are never treated as custom networks and never
// prefixed.
var builtinNetworkModes = map[string]bool{
	"":        true,
	"bridge":  true,
	"host":    true,
	"none":    true,
	"default": true,
}

func isCustomNetworkMode(mode string) bool {
	if builtinNetworkModes[mode] {
		return false
	}
	// container:<name> joins another container's namespace.
	return !strings.HasPrefix(mode, "container:")
}

// Enforce derives the enforced config from a declared one: the owner's
// naming prefix is applied to the container name, a custom network mode and
// every named-volume mount source, and the image reference is completed
// with its default tag. The declared config is never mutated, keeping
// declared and enforced state separate.
func Enforce(declared *models.ContainerConfig, prefix string) *models.ContainerConfig {
	cfg := declared.Clone()

	cfg.Name = applyPrefix(cfg.Name, prefix)
	if isCustomNetworkMode(cfg.NetworkMode) {
		cfg.NetworkMode = applyPrefix(cfg.NetworkMode, prefix)
	}
	for i := range cfg.Mounts {
		if cfg.Mounts[i].Type == "volume" && cfg.Mounts[i].Source != "" {
			cfg.Mounts[i].Source = applyPrefix(cfg.Mounts[i].Source, prefix)
		}
	}

	if named, err := reference.ParseNormalizedNamed(cfg.Image); err == nil {
		cfg.Image = reference.FamiliarString(reference.TagNameOnly(named))
	}
	return cfg
}

func applyPrefix(name, prefix string) string {
	if prefix == "" || strings.HasPrefix(name, prefix) {
		return name
	}
	return prefix + name
}
