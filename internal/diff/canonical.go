// Package diff produces a canonical, order-independent, default-stripped
// form of a container configuration and computes the field-level difference
// between a desired config and one reconstructed from runtime inspection.
package diff

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stackgen-cli/compose-pilot/internal/models"
)

// Canonical is the comparison-only form of a ContainerConfig. It is never
// sent to the runtime.
type Canonical map[string]any

// Fields excluded from drift detection: they either cannot trigger a
// recreation or should not.
var excludedKeys = map[string]bool{
	"hostname":  true,
	"dependsOn": true,
	"devices":   true,
}

// volumeDataPath matches a runtime-internal volume data directory, e.g.
// /var/lib/docker/volumes/flux_data/_data.
var volumeDataPath = regexp.MustCompile(`^.*/volumes/([^/]+)/_data/?$`)

// Canonicalize converts a config to its canonical form. The input is not
// mutated; the work happens on a generic copy.
func Canonicalize(cfg *models.ContainerConfig) Canonical {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return Canonical{}
	}
	var generic map[string]any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return Canonical{}
	}
	return Normalize(generic)
}

// Normalize applies the canonicalization rules to an already-generic config
// map. It is idempotent: normalizing a normalized map is a no-op.
func Normalize(generic map[string]any) Canonical {
	out := make(Canonical, len(generic))
	for k, v := range generic {
		if strings.HasPrefix(k, models.ControlPrefix) || excludedKeys[k] {
			continue
		}
		out[k] = v
	}

	// Runtime defaults never count as drift.
	if out["networkMode"] == "bridge" || out["networkMode"] == "default" {
		delete(out, "networkMode")
	}
	if out["tty"] == false {
		delete(out, "tty")
	}
	if out["restart"] == "no" {
		delete(out, "restart")
	}

	// The engine reports the first attached network as the container's
	// NetworkMode, so a user-defined mode and a network attachment are the
	// same thing once canonical: fold it into the networks set.
	if mode, ok := out["networkMode"].(string); ok && attachableMode(mode) {
		nets, _ := out["networks"].([]any)
		out["networks"] = append(nets, mode)
		delete(out, "networkMode")
	}

	if hc, ok := out["healthcheck"].(map[string]any); ok {
		out["healthcheck"] = normalizeHealthcheck(hc)
	}

	if mounts, ok := out["mounts"].([]any); ok {
		out["mounts"] = normalizeMounts(mounts)
	}
	if ports, ok := out["ports"].([]any); ok {
		out["ports"] = normalizePorts(ports)
	}
	for _, key := range []string{"networks", "tmpfs"} {
		if list, ok := out[key].([]any); ok {
			out[key] = sortedScalars(list)
		}
	}

	// Drop collections emptied by the stripping above.
	for k, v := range out {
		switch val := v.(type) {
		case []any:
			if len(val) == 0 {
				delete(out, k)
			}
		case map[string]any:
			if len(val) == 0 {
				delete(out, k)
			}
		case nil:
			delete(out, k)
		}
	}
	return out
}

// normalizeMounts drops per-mount flags excluded from drift detection,
// rewrites runtime-internal volume paths back to bare volume names, and
// sorts by target.
func normalizeMounts(mounts []any) []any {
	out := make([]any, 0, len(mounts))
	for _, entry := range mounts {
		m, ok := entry.(map[string]any)
		if !ok {
			out = append(out, entry)
			continue
		}
		cleaned := make(map[string]any, len(m))
		for k, v := range m {
			if k == "readOnly" || strings.HasPrefix(k, models.ControlPrefix) {
				continue
			}
			cleaned[k] = v
		}
		if src, ok := cleaned["source"].(string); ok {
			if sub := volumeDataPath.FindStringSubmatch(src); sub != nil {
				cleaned["source"] = sub[1]
			}
		}
		out = append(out, cleaned)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return mountKey(out[i]) < mountKey(out[j])
	})
	return out
}

func mountKey(entry any) string {
	if m, ok := entry.(map[string]any); ok {
		if t, ok := m["target"].(string); ok {
			return t
		}
	}
	return ""
}

// normalizePorts sorts by (hostPort, containerPort, hostIP).
func normalizePorts(ports []any) []any {
	out := make([]any, len(ports))
	copy(out, ports)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := portKey(out[i]), portKey(out[j])
		if a.host != b.host {
			return a.host < b.host
		}
		if a.container != b.container {
			return a.container < b.container
		}
		return a.ip < b.ip
	})
	return out
}

type portSortKey struct {
	host, container int
	ip              string
}

func portKey(entry any) portSortKey {
	key := portSortKey{}
	m, ok := entry.(map[string]any)
	if !ok {
		return key
	}
	key.host = intValue(m["hostPort"])
	key.container = intValue(m["containerPort"])
	if ip, ok := m["hostIP"].(string); ok {
		key.ip = ip
	}
	return key
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// sortedScalars sorts a scalar list and drops duplicates, so the network
// fold above cannot double-count an attachment.
func sortedScalars(list []any) []any {
	seen := make(map[string]bool, len(list))
	out := make([]any, 0, len(list))
	for _, item := range list {
		s, _ := item.(string)
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, _ := out[i].(string)
		b, _ := out[j].(string)
		return a < b
	})
	return out
}

// attachableMode reports whether a network mode names a user-defined network
// rather than a builtin driver or a shared container namespace.
func attachableMode(mode string) bool {
	switch mode {
	case "", "bridge", "default", "host", "none":
		return false
	}
	return !strings.HasPrefix(mode, "container:")
}

// normalizeHealthcheck reduces a healthcheck to the shape the engine stores:
// a disabled check becomes {test: NONE}, the test list is folded into one
// shell command and the duration fields are reduced to seconds.
func normalizeHealthcheck(hc map[string]any) map[string]any {
	out := make(map[string]any, len(hc))
	for k, v := range hc {
		out[k] = v
	}

	disabled, _ := out["disable"].(bool)
	delete(out, "disable")
	test := stringList(out["test"])
	if disabled || (len(test) == 1 && test[0] == "NONE") {
		return map[string]any{"test": "NONE"}
	}
	if len(test) > 0 {
		out["test"] = models.HealthTest(test)
	}
	for _, k := range []string{"interval", "timeout", "start_period"} {
		if s, ok := out[k].(string); ok && s != "" {
			if d, err := time.ParseDuration(s); err == nil {
				out[k] = d.Seconds()
			}
		}
	}
	return out
}

func stringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
