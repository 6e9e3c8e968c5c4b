package models

import (
	"sort"
	"strings"
)

// Manifest is the strict intermediate representation of a Compose-style
// manifest after normalization. Services are fully typed; top-level
// networks/volumes/secrets/configs are passed through opaquely for the
// mapper to cross-reference.
type Manifest struct {
	Services   map[string]*Service `yaml:"services" json:"services"`
	Networks   map[string]any      `yaml:"networks,omitempty" json:"networks,omitempty"`
	Volumes    map[string]any      `yaml:"volumes,omitempty" json:"volumes,omitempty"`
	Secrets    map[string]any      `yaml:"secrets,omitempty" json:"secrets,omitempty"`
	Configs    map[string]any      `yaml:"configs,omitempty" json:"configs,omitempty"`
	Extensions map[string]any      `yaml:"-" json:"-"`
}

// Service is one normalized Compose service.
//
// Fields that Compose allows in several shapes keep the loosest shape the
// mapper still needs: ports and volumes hold either shorthand strings or
// the typed object form, labels hold either a list or a map (the source
// shape is retained), depends_on holds a list or a condition map.
type Service struct {
	Image           string            `yaml:"image,omitempty" json:"image,omitempty"`
	Build           *Build            `yaml:"build,omitempty" json:"build,omitempty"`
	Command         []string          `yaml:"command,omitempty" json:"command,omitempty"`
	Entrypoint      []string          `yaml:"entrypoint,omitempty" json:"entrypoint,omitempty"`
	User            string            `yaml:"user,omitempty" json:"user,omitempty"`
	WorkingDir      string            `yaml:"working_dir,omitempty" json:"working_dir,omitempty"`
	Hostname        string            `yaml:"hostname,omitempty" json:"hostname,omitempty"`
	Environment     map[string]string `yaml:"environment,omitempty" json:"environment,omitempty"`
	Labels          any               `yaml:"labels,omitempty" json:"labels,omitempty"`
	Ports           []any             `yaml:"ports,omitempty" json:"ports,omitempty"`
	Volumes         []any             `yaml:"volumes,omitempty" json:"volumes,omitempty"`
	Tmpfs           []string          `yaml:"tmpfs,omitempty" json:"tmpfs,omitempty"`
	Devices         []string          `yaml:"devices,omitempty" json:"devices,omitempty"`
	ExtraHosts      []string          `yaml:"extra_hosts,omitempty" json:"extra_hosts,omitempty"`
	DNS             []string          `yaml:"dns,omitempty" json:"dns,omitempty"`
	DNSSearch       []string          `yaml:"dns_search,omitempty" json:"dns_search,omitempty"`
	Networks        []string          `yaml:"networks,omitempty" json:"networks,omitempty"`
	NetworkMode     string            `yaml:"network_mode,omitempty" json:"network_mode,omitempty"`
	Healthcheck     *Healthcheck      `yaml:"healthcheck,omitempty" json:"healthcheck,omitempty"`
	Restart         string            `yaml:"restart,omitempty" json:"restart,omitempty"`
	Logging         *Logging          `yaml:"logging,omitempty" json:"logging,omitempty"`
	Privileged      bool              `yaml:"privileged,omitempty" json:"privileged,omitempty"`
	CapAdd          []string          `yaml:"cap_add,omitempty" json:"cap_add,omitempty"`
	CapDrop         []string          `yaml:"cap_drop,omitempty" json:"cap_drop,omitempty"`
	SecurityOpt     []string          `yaml:"security_opt,omitempty" json:"security_opt,omitempty"`
	UsernsMode      string            `yaml:"userns_mode,omitempty" json:"userns_mode,omitempty"`
	IpcMode         string            `yaml:"ipc,omitempty" json:"ipc,omitempty"`
	PidMode         string            `yaml:"pid,omitempty" json:"pid,omitempty"`
	Sysctls         map[string]string `yaml:"sysctls,omitempty" json:"sysctls,omitempty"`
	DependsOn       any               `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
	StopSignal      string            `yaml:"stop_signal,omitempty" json:"stop_signal,omitempty"`
	StopGracePeriod string            `yaml:"stop_grace_period,omitempty" json:"stop_grace_period,omitempty"`
	Deploy          map[string]any    `yaml:"deploy,omitempty" json:"deploy,omitempty"`
	Tty             bool              `yaml:"tty,omitempty" json:"tty,omitempty"`
	Extensions      map[string]any    `yaml:"-" json:"-"`
}

// Build is a service build block. String shorthand is normalized to
// Context-only form.
type Build struct {
	Context    string            `yaml:"context,omitempty" json:"context,omitempty"`
	Dockerfile string            `yaml:"dockerfile,omitempty" json:"dockerfile,omitempty"`
	Args       map[string]string `yaml:"args,omitempty" json:"args,omitempty"`
	Labels     map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
	Target     string            `yaml:"target,omitempty" json:"target,omitempty"`
}

// PortSpec is the long-form port mapping. Target is required and numeric.
type PortSpec struct {
	Target    int    `yaml:"target" json:"target"`
	Published string `yaml:"published,omitempty" json:"published,omitempty"`
	HostIP    string `yaml:"host_ip,omitempty" json:"host_ip,omitempty"`
	Protocol  string `yaml:"protocol,omitempty" json:"protocol,omitempty"`
	Mode      string `yaml:"mode,omitempty" json:"mode,omitempty"`
}

// VolumeSpec is the long-form mount. Sub-blocks are copied only when
// present in the source document.
type VolumeSpec struct {
	Type        string         `yaml:"type,omitempty" json:"type,omitempty"`
	Source      string         `yaml:"source,omitempty" json:"source,omitempty"`
	Target      string         `yaml:"target,omitempty" json:"target,omitempty"`
	ReadOnly    bool           `yaml:"read_only,omitempty" json:"read_only,omitempty"`
	Consistency string         `yaml:"consistency,omitempty" json:"consistency,omitempty"`
	Bind        map[string]any `yaml:"bind,omitempty" json:"bind,omitempty"`
	Volume      map[string]any `yaml:"volume,omitempty" json:"volume,omitempty"`
	Tmpfs       map[string]any `yaml:"tmpfs,omitempty" json:"tmpfs,omitempty"`
}

// Healthcheck is only present when the source declared a test command.
type Healthcheck struct {
	Test        []string `yaml:"test,omitempty" json:"test,omitempty"`
	Interval    string   `yaml:"interval,omitempty" json:"interval,omitempty"`
	Timeout     string   `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Retries     int      `yaml:"retries,omitempty" json:"retries,omitempty"`
	StartPeriod string   `yaml:"start_period,omitempty" json:"start_period,omitempty"`
	Disable     bool     `yaml:"disable,omitempty" json:"disable,omitempty"`
}

// HealthTest renders any Compose test form into the single shell command the
// engine stores: the CMD marker is dropped and its arguments are quoted, a
// CMD-SHELL body passes through verbatim. Both the create path and the drift
// canonicalizer use this, so declared and observed checks compare equal.
func HealthTest(test []string) string {
	if len(test) > 1 {
		switch test[0] {
		case "CMD":
			quoted := make([]string, len(test)-1)
			for i, arg := range test[1:] {
				quoted[i] = shellQuote(arg)
			}
			return strings.Join(quoted, " ")
		case "CMD-SHELL":
			return strings.Join(test[1:], " ")
		}
	}
	return strings.Join(test, " ")
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n\"'\\$&|;<>()`") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Logging mirrors the Compose logging block.
type Logging struct {
	Driver  string            `yaml:"driver,omitempty" json:"driver,omitempty"`
	Options map[string]string `yaml:"options,omitempty" json:"options,omitempty"`
}

// NewManifest creates an empty Manifest with initialized maps.
func NewManifest() *Manifest {
	return &Manifest{
		Services: make(map[string]*Service),
	}
}

// ServiceNames returns the service names in manifest (lexicographic) order,
// so that every consumer iterates deterministically.
func (m *Manifest) ServiceNames() []string {
	names := make([]string, 0, len(m.Services))
	for name := range m.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FlattenLabels turns either retained label shape (list of "k=v" strings or
// a string map) into a unique-key map.
func FlattenLabels(labels any) map[string]string {
	out := make(map[string]string)
	switch v := labels.(type) {
	case map[string]string:
		for k, val := range v {
			out[k] = val
		}
	case []string:
		for _, item := range v {
			k, val := splitKV(item)
			out[k] = val
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				k, val := splitKV(s)
				out[k] = val
			}
		}
	}
	return out
}

func splitKV(s string) (string, string) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}
