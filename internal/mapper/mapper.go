// Package mapper lowers normalized services into runtime-agnostic container
// configurations, translating Compose shorthand forms and lifting the
// reserved owner-control labels out of the runtime-visible label set.
package mapper

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	units "github.com/docker/go-units"

	"github.com/stackgen-cli/compose-pilot/internal/models"
)

// Map lowers every service of the manifest, in name order, so the output is
// deterministic regardless of map iteration order.
func Map(m *models.Manifest) ([]*models.ContainerConfig, error) {
	configs := make([]*models.ContainerConfig, 0, len(m.Services))
	for _, name := range m.ServiceNames() {
		cfg, err := MapService(name, m)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// MapService lowers one service into a ContainerConfig. The full manifest is
// passed for cross-referencing top-level networks and volumes.
func MapService(name string, m *models.Manifest) (*models.ContainerConfig, error) {
	svc, ok := m.Services[name]
	if !ok {
		return nil, mappingErrorf(name, "service is not defined in the manifest")
	}

	cfg := &models.ContainerConfig{
		Name:        name,
		Image:       svc.Image,
		Command:     svc.Command,
		Entrypoint:  svc.Entrypoint,
		User:        svc.User,
		WorkingDir:  svc.WorkingDir,
		Hostname:    svc.Hostname,
		Env:         svc.Environment,
		Networks:    svc.Networks,
		NetworkMode: svc.NetworkMode,
		ExtraHosts:  svc.ExtraHosts,
		DNS:         svc.DNS,
		DNSSearch:   svc.DNSSearch,
		Devices:     svc.Devices,
		Healthcheck: svc.Healthcheck,
		Restart:     svc.Restart,
		Logging:     svc.Logging,
		Sysctls:     svc.Sysctls,
		Tty:         svc.Tty,
	}

	// A build-only service gets a synthesized image placeholder; the default
	// registry tag for pulled images is appended later by the controller.
	if cfg.Image == "" {
		if svc.Build == nil {
			return nil, mappingErrorf(name, "service has neither image nor build")
		}
		cfg.Image = name + ":latest"
	}

	cfg.Ports = mapPorts(svc.Ports)

	mounts, tmpfs := mapMounts(svc.Volumes)
	cfg.Mounts = mounts
	cfg.Tmpfs = append(tmpfs, svc.Tmpfs...)

	cfg.DependsOn = dependsOnNames(svc.DependsOn)

	if svc.Privileged || len(svc.CapAdd) > 0 || len(svc.CapDrop) > 0 ||
		len(svc.SecurityOpt) > 0 || svc.UsernsMode != "" || svc.IpcMode != "" || svc.PidMode != "" {
		cfg.Security = &models.Security{
			Privileged:  svc.Privileged,
			CapAdd:      svc.CapAdd,
			CapDrop:     svc.CapDrop,
			SecurityOpt: svc.SecurityOpt,
			UsernsMode:  svc.UsernsMode,
			IpcMode:     svc.IpcMode,
			PidMode:     svc.PidMode,
		}
	}

	if svc.StopSignal != "" || svc.StopGracePeriod != "" {
		cfg.Stop = &models.StopConfig{
			Signal:      svc.StopSignal,
			GracePeriod: svc.StopGracePeriod,
		}
	}

	res, err := mapResources(name, svc.Deploy)
	if err != nil {
		return nil, err
	}
	cfg.Resources = res

	if err := applyControlLabels(cfg, models.FlattenLabels(svc.Labels)); err != nil {
		return nil, err
	}

	prune(cfg)
	return cfg, nil
}

// applyControlLabels lifts the reserved iob* labels into config fields and
// keeps everything else as runtime-visible labels.
func applyControlLabels(cfg *models.ContainerConfig, labels map[string]string) error {
	rest := make(map[string]string, len(labels))
	for k, v := range labels {
		switch k {
		case models.LabelEnabled:
			cfg.IobEnabled = models.BoolPtr(boolValue(v))
		case models.LabelStopOnUnload:
			cfg.IobStopOnUnload = models.BoolPtr(boolValue(v))
		case models.LabelAutoImageUpdate:
			cfg.IobAutoImageUpdate = boolValue(v)
		case models.LabelMonitoringEnabled:
			cfg.IobMonitoringEnabled = boolValue(v)
		case models.LabelWaitForReady:
			cfg.IobWaitForReady = boolValue(v)
		case models.LabelBackup:
			for _, source := range splitList(v) {
				for i := range cfg.Mounts {
					if cfg.Mounts[i].Source == source {
						cfg.Mounts[i].IobBackup = true
					}
				}
			}
		case models.LabelCopyVolumes:
			if err := applyCopyVolumes(cfg, v); err != nil {
				return err
			}
		default:
			rest[k] = v
		}
	}
	cfg.Labels = rest
	return nil
}

// applyCopyVolumes parses the "sourcePath=>volumeName" pair list and marks
// matching volume mounts for first-creation seeding. The forced re-copy
// flag is a controller decision, never set here.
func applyCopyVolumes(cfg *models.ContainerConfig, spec string) error {
	for _, pair := range splitList(spec) {
		parts := strings.SplitN(pair, "=>", 2)
		if len(parts) != 2 {
			return mappingErrorf(cfg.Name, "malformed %s entry %q", models.LabelCopyVolumes, pair)
		}
		source := strings.TrimSpace(parts[0])
		volume := strings.TrimSpace(parts[1])
		abs, err := filepath.Abs(source)
		if err != nil {
			return mappingErrorf(cfg.Name, "resolving seed path %q: %v", source, err)
		}
		for i := range cfg.Mounts {
			if cfg.Mounts[i].Type == "volume" && cfg.Mounts[i].Source == volume {
				cfg.Mounts[i].IobAutoCopyFrom = abs
			}
		}
	}
	return nil
}

// mapPorts translates port entries. String shorthand is parsed by colon
// count; entries with non-numeric port segments are silently dropped.
func mapPorts(entries []any) []models.PortBinding {
	var out []models.PortBinding
	for _, entry := range entries {
		switch v := entry.(type) {
		case string:
			if b, ok := parsePortShorthand(v); ok {
				out = append(out, b)
			}
		case *models.PortSpec:
			b := models.PortBinding{
				ContainerPort: v.Target,
				HostIP:        v.HostIP,
				Protocol:      defaultProto(v.Protocol),
			}
			if v.Published != "" {
				hp, err := strconv.Atoi(v.Published)
				if err != nil {
					continue
				}
				b.HostPort = hp
			}
			out = append(out, b)
		}
	}
	return out
}

func parsePortShorthand(s string) (models.PortBinding, bool) {
	b := models.PortBinding{Protocol: "tcp"}
	if idx := strings.LastIndex(s, "/"); idx >= 0 {
		b.Protocol = defaultProto(s[idx+1:])
		s = s[:idx]
	}

	parts := strings.Split(s, ":")
	atoi := func(v string) (int, bool) {
		n, err := strconv.Atoi(v)
		return n, err == nil
	}

	switch len(parts) {
	case 1:
		n, ok := atoi(parts[0])
		if !ok {
			return b, false
		}
		b.ContainerPort = n
	case 2:
		hp, ok1 := atoi(parts[0])
		cp, ok2 := atoi(parts[1])
		if !ok1 || !ok2 {
			return b, false
		}
		b.HostPort, b.ContainerPort = hp, cp
	case 3:
		hp, ok1 := atoi(parts[1])
		cp, ok2 := atoi(parts[2])
		if !ok1 || !ok2 {
			return b, false
		}
		b.HostIP, b.HostPort, b.ContainerPort = parts[0], hp, cp
	default:
		return b, false
	}
	return b, true
}

// mapMounts translates volume entries. Object-form tmpfs mounts are routed
// to the tmpfs list, not to mounts.
func mapMounts(entries []any) ([]models.Mount, []string) {
	var mounts []models.Mount
	var tmpfs []string
	for _, entry := range entries {
		switch v := entry.(type) {
		case string:
			if m, ok := parseMountShorthand(v); ok {
				mounts = append(mounts, m)
			}
		case *models.VolumeSpec:
			if v.Type == "tmpfs" {
				if v.Target != "" {
					tmpfs = append(tmpfs, v.Target)
				}
				continue
			}
			mountType := v.Type
			if mountType == "" {
				mountType = classifySource(v.Source)
			}
			mounts = append(mounts, models.Mount{
				Type:     mountType,
				Source:   v.Source,
				Target:   v.Target,
				ReadOnly: v.ReadOnly,
			})
		}
	}
	return mounts, tmpfs
}

// parseMountShorthand handles "source:target[:mode]" and the bare-target
// anonymous volume form.
func parseMountShorthand(s string) (models.Mount, bool) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		if parts[0] == "" {
			return models.Mount{}, false
		}
		return models.Mount{Type: "volume", Target: parts[0]}, true
	case 2:
		return models.Mount{
			Type:   classifySource(parts[0]),
			Source: parts[0],
			Target: parts[1],
		}, true
	case 3:
		return models.Mount{
			Type:     classifySource(parts[0]),
			Source:   parts[0],
			Target:   parts[1],
			ReadOnly: strings.Contains(parts[2], "ro"),
		}, true
	}
	return models.Mount{}, false
}

// classifySource treats path-looking sources as bind mounts and everything
// else as named volumes.
func classifySource(source string) string {
	if strings.HasPrefix(source, "/") || strings.HasPrefix(source, "./") || strings.HasPrefix(source, "../") {
		return "bind"
	}
	return "volume"
}

// mapResources reads cpu/memory limits out of the opaque deploy block.
func mapResources(service string, deploy map[string]any) (*models.Resources, error) {
	limits := deploySection(deploy, "resources", "limits")
	reservations := deploySection(deploy, "resources", "reservations")
	if limits == nil && reservations == nil {
		return nil, nil
	}

	res := &models.Resources{}
	if v, ok := limits["cpus"]; ok {
		f, err := toFloat(v)
		if err != nil {
			return nil, mappingErrorf(service, "deploy cpus limit %v is not numeric", v)
		}
		res.CPUs = f
	}
	if v, ok := limits["memory"]; ok {
		bytes, err := toBytes(v)
		if err != nil {
			return nil, mappingErrorf(service, "deploy memory limit %v: %v", v, err)
		}
		res.Memory = bytes
	}
	if v, ok := reservations["memory"]; ok {
		bytes, err := toBytes(v)
		if err != nil {
			return nil, mappingErrorf(service, "deploy memory reservation %v: %v", v, err)
		}
		res.MemoryReservation = bytes
	}
	if res.CPUs == 0 && res.Memory == 0 && res.MemoryReservation == 0 {
		return nil, nil
	}
	return res, nil
}

func deploySection(deploy map[string]any, keys ...string) map[string]any {
	cur := deploy
	for _, key := range keys {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	}
	return 0, strconv.ErrSyntax
}

func toBytes(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	case string:
		return units.RAMInBytes(n)
	}
	return 0, strconv.ErrSyntax
}

func dependsOnNames(deps any) []string {
	switch v := deps.(type) {
	case []string:
		return v
	case map[string]any:
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		sort.Strings(names)
		return names
	}
	return nil
}

func boolValue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultProto(proto string) string {
	if proto == "" {
		return "tcp"
	}
	return proto
}

// prune drops empty collections so downstream diffing never sees spurious
// empties.
func prune(cfg *models.ContainerConfig) {
	if len(cfg.Env) == 0 {
		cfg.Env = nil
	}
	if len(cfg.Labels) == 0 {
		cfg.Labels = nil
	}
	if len(cfg.Sysctls) == 0 {
		cfg.Sysctls = nil
	}
	if len(cfg.Ports) == 0 {
		cfg.Ports = nil
	}
	if len(cfg.Mounts) == 0 {
		cfg.Mounts = nil
	}
	if len(cfg.Tmpfs) == 0 {
		cfg.Tmpfs = nil
	}
	if len(cfg.Devices) == 0 {
		cfg.Devices = nil
	}
	if len(cfg.Networks) == 0 {
		cfg.Networks = nil
	}
	if len(cfg.ExtraHosts) == 0 {
		cfg.ExtraHosts = nil
	}
	if len(cfg.DNS) == 0 {
		cfg.DNS = nil
	}
	if len(cfg.DNSSearch) == 0 {
		cfg.DNSSearch = nil
	}
	if len(cfg.DependsOn) == 0 {
		cfg.DependsOn = nil
	}
	if len(cfg.Command) == 0 {
		cfg.Command = nil
	}
	if len(cfg.Entrypoint) == 0 {
		cfg.Entrypoint = nil
	}
}
