// Package parser turns a loosely-typed Compose-style document into the
// strict intermediate representation in internal/models. Polymorphic fields
// (environment, labels, ports, volumes, depends_on) are normalized by
// inspecting the yaml node kind rather than by speculative decoding.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/stackgen-cli/compose-pilot/internal/models"
)

// rawService holds one service entry before normalization. Fields that
// Compose allows in several shapes stay yaml.Node until the kind is known.
type rawService struct {
	Image           string         `yaml:"image"`
	Build           yaml.Node      `yaml:"build"`
	Command         yaml.Node      `yaml:"command"`
	Entrypoint      yaml.Node      `yaml:"entrypoint"`
	User            string         `yaml:"user"`
	WorkingDir      string         `yaml:"working_dir"`
	Hostname        string         `yaml:"hostname"`
	Environment     yaml.Node      `yaml:"environment"`
	Labels          yaml.Node      `yaml:"labels"`
	Ports           yaml.Node      `yaml:"ports"`
	Volumes         yaml.Node      `yaml:"volumes"`
	Tmpfs           yaml.Node      `yaml:"tmpfs"`
	Devices         []string       `yaml:"devices"`
	ExtraHosts      []string       `yaml:"extra_hosts"`
	DNS             yaml.Node      `yaml:"dns"`
	DNSSearch       yaml.Node      `yaml:"dns_search"`
	Networks        yaml.Node      `yaml:"networks"`
	NetworkMode     string         `yaml:"network_mode"`
	Healthcheck     yaml.Node      `yaml:"healthcheck"`
	Restart         string         `yaml:"restart"`
	Logging         yaml.Node      `yaml:"logging"`
	Privileged      bool           `yaml:"privileged"`
	CapAdd          []string       `yaml:"cap_add"`
	CapDrop         []string       `yaml:"cap_drop"`
	SecurityOpt     []string       `yaml:"security_opt"`
	UsernsMode      string         `yaml:"userns_mode"`
	IpcMode         string         `yaml:"ipc"`
	PidMode         string         `yaml:"pid"`
	Sysctls         yaml.Node      `yaml:"sysctls"`
	DependsOn       yaml.Node      `yaml:"depends_on"`
	StopSignal      string         `yaml:"stop_signal"`
	StopGracePeriod yaml.Node      `yaml:"stop_grace_period"`
	Deploy          map[string]any `yaml:"deploy"`
	Tty             bool           `yaml:"tty"`
}

// Load accepts raw manifest text, bytes, or an already-parsed structured
// object and returns the normalized manifest.
func Load(src any) (*models.Manifest, error) {
	var data []byte
	switch v := src.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		// Re-marshal so pre-parsed objects flow through the same path.
		var err error
		data, err = yaml.Marshal(v)
		if err != nil {
			return nil, errors.Wrap(err, "marshaling pre-parsed manifest")
		}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing manifest YAML")
	}
	if len(doc.Content) == 0 {
		return nil, parseErrorf("document is empty")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, parseErrorf("document root is not a mapping")
	}

	manifest := models.NewManifest()
	sawServices := false

	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		node := root.Content[i+1]

		switch {
		case key == "services":
			if node.Kind != yaml.MappingNode {
				return nil, parseErrorf("services is not a mapping")
			}
			sawServices = true
			for j := 0; j+1 < len(node.Content); j += 2 {
				name := node.Content[j].Value
				svcNode := node.Content[j+1]
				if svcNode.Kind != yaml.MappingNode {
					return nil, parseErrorf("service %q is not a mapping", name)
				}
				svc, err := convertService(name, svcNode)
				if err != nil {
					return nil, err
				}
				manifest.Services[name] = svc
			}
		case key == "networks":
			manifest.Networks = decodeOpaqueMap(node)
		case key == "volumes":
			manifest.Volumes = decodeOpaqueMap(node)
		case key == "secrets":
			manifest.Secrets = decodeOpaqueMap(node)
		case key == "configs":
			manifest.Configs = decodeOpaqueMap(node)
		case strings.HasPrefix(key, "x-"):
			var v any
			if err := node.Decode(&v); err == nil {
				if manifest.Extensions == nil {
					manifest.Extensions = make(map[string]any)
				}
				manifest.Extensions[key] = v
			}
		}
	}

	if !sawServices {
		return nil, parseErrorf("top-level services key is missing")
	}
	return manifest, nil
}

func convertService(name string, node *yaml.Node) (*models.Service, error) {
	var raw rawService
	if err := node.Decode(&raw); err != nil {
		return nil, errors.Wrapf(err, "decoding service %q", name)
	}

	svc := &models.Service{
		Image:       raw.Image,
		User:        raw.User,
		WorkingDir:  raw.WorkingDir,
		Hostname:    raw.Hostname,
		Devices:     raw.Devices,
		ExtraHosts:  raw.ExtraHosts,
		NetworkMode: raw.NetworkMode,
		Restart:     raw.Restart,
		Privileged:  raw.Privileged,
		CapAdd:      raw.CapAdd,
		CapDrop:     raw.CapDrop,
		SecurityOpt: raw.SecurityOpt,
		UsernsMode:  raw.UsernsMode,
		IpcMode:     raw.IpcMode,
		PidMode:     raw.PidMode,
		StopSignal:  raw.StopSignal,
		Tty:         raw.Tty,
		Deploy:      PruneMap(raw.Deploy),
	}

	svc.Command = stringOrList(&raw.Command)
	svc.Entrypoint = stringOrList(&raw.Entrypoint)
	svc.Environment = stringMap(&raw.Environment)
	svc.Labels = normalizeLabels(&raw.Labels)
	svc.Tmpfs = stringOrList(&raw.Tmpfs)
	svc.DNS = stringOrList(&raw.DNS)
	svc.DNSSearch = stringOrList(&raw.DNSSearch)
	svc.Networks = networkRefs(&raw.Networks)
	svc.Sysctls = stringMap(&raw.Sysctls)
	svc.DependsOn = normalizeDependsOn(&raw.DependsOn)
	svc.StopGracePeriod = scalarString(&raw.StopGracePeriod)

	ports, err := normalizePorts(name, &raw.Ports)
	if err != nil {
		return nil, err
	}
	svc.Ports = ports

	volumes, err := normalizeVolumes(name, &raw.Volumes)
	if err != nil {
		return nil, err
	}
	svc.Volumes = volumes

	build, err := normalizeBuild(&raw.Build)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding build of service %q", name)
	}
	svc.Build = build

	svc.Healthcheck = normalizeHealthcheck(&raw.Healthcheck)

	if raw.Logging.Kind == yaml.MappingNode {
		var logging models.Logging
		if err := raw.Logging.Decode(&logging); err != nil {
			return nil, errors.Wrapf(err, "decoding logging of service %q", name)
		}
		svc.Logging = &logging
	}

	// Collect service-level x-* extension keys verbatim.
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if !strings.HasPrefix(key, "x-") {
			continue
		}
		var v any
		if err := node.Content[i+1].Decode(&v); err == nil {
			if svc.Extensions == nil {
				svc.Extensions = make(map[string]any)
			}
			svc.Extensions[key] = v
		}
	}

	return svc, nil
}

// stringOrList normalizes a scalar-or-sequence node to a string slice.
func stringOrList(node *yaml.Node) []string {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "" {
			return nil
		}
		return []string{node.Value}
	case yaml.SequenceNode:
		var out []string
		for _, item := range node.Content {
			if item.Kind == yaml.ScalarNode {
				out = append(out, item.Value)
			}
		}
		return out
	}
	return nil
}

// stringMap normalizes a list-of-"K=V" or mapping node to a unique-key map
// with stringified values.
func stringMap(node *yaml.Node) map[string]string {
	var out map[string]string
	switch node.Kind {
	case yaml.SequenceNode:
		out = make(map[string]string)
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				continue
			}
			k, v := splitKV(item.Value)
			out[k] = v
		}
	case yaml.MappingNode:
		out = make(map[string]string)
		for i := 0; i+1 < len(node.Content); i += 2 {
			out[node.Content[i].Value] = node.Content[i+1].Value
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// normalizeLabels follows the environment rule except that the array form is
// retained as an array, matching the source shape.
func normalizeLabels(node *yaml.Node) any {
	switch node.Kind {
	case yaml.SequenceNode:
		var out []string
		for _, item := range node.Content {
			if item.Kind == yaml.ScalarNode {
				out = append(out, item.Value)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case yaml.MappingNode:
		m := stringMap(node)
		if m == nil {
			return nil
		}
		return m
	}
	return nil
}

// normalizePorts keeps string shorthand untouched for the mapper and
// validates that object form carries a numeric target.
func normalizePorts(service string, node *yaml.Node) ([]any, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, nil
	}
	var out []any
	for _, item := range node.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			out = append(out, item.Value)
		case yaml.MappingNode:
			var raw struct {
				Target    string `yaml:"target"`
				Published string `yaml:"published"`
				HostIP    string `yaml:"host_ip"`
				Protocol  string `yaml:"protocol"`
				Mode      string `yaml:"mode"`
			}
			if err := item.Decode(&raw); err != nil {
				return nil, errors.Wrapf(err, "decoding port of service %q", service)
			}
			target, err := strconv.Atoi(raw.Target)
			if err != nil {
				return nil, parseErrorf("service %q: port target %q is not numeric", service, raw.Target)
			}
			out = append(out, &models.PortSpec{
				Target:    target,
				Published: raw.Published,
				HostIP:    raw.HostIP,
				Protocol:  raw.Protocol,
				Mode:      raw.Mode,
			})
		}
	}
	return out, nil
}

// normalizeVolumes keeps string shorthand untouched and copies object-form
// sub-fields only when present.
func normalizeVolumes(service string, node *yaml.Node) ([]any, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, nil
	}
	var out []any
	for _, item := range node.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			out = append(out, item.Value)
		case yaml.MappingNode:
			var spec models.VolumeSpec
			if err := item.Decode(&spec); err != nil {
				return nil, errors.Wrapf(err, "decoding volume of service %q", service)
			}
			spec.Bind = PruneMap(spec.Bind)
			spec.Volume = PruneMap(spec.Volume)
			spec.Tmpfs = PruneMap(spec.Tmpfs)
			out = append(out, &spec)
		}
	}
	return out, nil
}

// normalizeDependsOn preserves array and condition-map forms; a bare string
// is normalized to a one-element array.
func normalizeDependsOn(node *yaml.Node) any {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "" {
			return nil
		}
		return []string{node.Value}
	case yaml.SequenceNode:
		deps := stringOrList(node)
		if len(deps) == 0 {
			return nil
		}
		return deps
	case yaml.MappingNode:
		var m map[string]any
		if err := node.Decode(&m); err != nil {
			return nil
		}
		cleaned := PruneMap(m)
		if cleaned == nil {
			return nil
		}
		return cleaned
	}
	return nil
}

// normalizeHealthcheck only constructs a healthcheck when a test field
// exists; a test that is neither array nor string defaults to ["NONE"].
func normalizeHealthcheck(node *yaml.Node) *models.Healthcheck {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	var raw struct {
		Test        yaml.Node `yaml:"test"`
		Interval    string    `yaml:"interval"`
		Timeout     string    `yaml:"timeout"`
		Retries     int       `yaml:"retries"`
		StartPeriod string    `yaml:"start_period"`
		Disable     bool      `yaml:"disable"`
	}
	if err := node.Decode(&raw); err != nil {
		return nil
	}
	if raw.Test.Kind == 0 {
		return nil
	}

	hc := &models.Healthcheck{
		Interval:    raw.Interval,
		Timeout:     raw.Timeout,
		Retries:     raw.Retries,
		StartPeriod: raw.StartPeriod,
		Disable:     raw.Disable,
	}
	switch raw.Test.Kind {
	case yaml.ScalarNode:
		hc.Test = []string{raw.Test.Value}
	case yaml.SequenceNode:
		for _, item := range raw.Test.Content {
			if item.Kind == yaml.ScalarNode {
				hc.Test = append(hc.Test, item.Value)
			}
		}
	default:
		hc.Test = []string{"NONE"}
	}
	if len(hc.Test) == 0 {
		hc.Test = []string{"NONE"}
	}
	return hc
}

// normalizeBuild handles the string shorthand (context path) and the object
// form with args/labels coerced to string-valued maps.
func normalizeBuild(node *yaml.Node) (*models.Build, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "" {
			return nil, nil
		}
		return &models.Build{Context: node.Value}, nil
	case yaml.MappingNode:
		var raw struct {
			Context    string    `yaml:"context"`
			Dockerfile string    `yaml:"dockerfile"`
			Args       yaml.Node `yaml:"args"`
			Labels     yaml.Node `yaml:"labels"`
			Target     string    `yaml:"target"`
		}
		if err := node.Decode(&raw); err != nil {
			return nil, err
		}
		return &models.Build{
			Context:    raw.Context,
			Dockerfile: raw.Dockerfile,
			Args:       stringMap(&raw.Args),
			Labels:     stringMap(&raw.Labels),
			Target:     raw.Target,
		}, nil
	}
	return nil, nil
}

// networkRefs accepts both the list form and the map-with-options form,
// keeping the attachment names.
func networkRefs(node *yaml.Node) []string {
	switch node.Kind {
	case yaml.SequenceNode:
		return stringOrList(node)
	case yaml.MappingNode:
		var out []string
		for i := 0; i+1 < len(node.Content); i += 2 {
			out = append(out, node.Content[i].Value)
		}
		return out
	}
	return nil
}

// decodeOpaqueMap prunes entry bodies but keeps the keys: a bare
// "volumes: {data:}" still declares the name data.
func decodeOpaqueMap(node *yaml.Node) map[string]any {
	var m map[string]any
	if err := node.Decode(&m); err != nil || len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Prune(v)
	}
	return out
}

func scalarString(node *yaml.Node) string {
	if node.Kind == yaml.ScalarNode {
		return node.Value
	}
	return ""
}

func splitKV(s string) (string, string) {
	parts := strings.SplitN(s, "=", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return parts[0], ""
}

func toString(v any) string {
	return fmt.Sprint(v)
}
