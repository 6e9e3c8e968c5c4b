package diff

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"

	"github.com/stackgen-cli/compose-pilot/internal/models"
)

func TestCanonicalizeStripsDefaults(t *testing.T) {
	cfg := &models.ContainerConfig{
		Name:        "web",
		Image:       "nginx:1.27",
		NetworkMode: "bridge",
		Restart:     "no",
		Tty:         false,
	}
	c := Canonicalize(cfg)

	assert.Equal(t, c["name"], "web")
	assert.Equal(t, c["image"], "nginx:1.27")
	_, hasNetworkMode := c["networkMode"]
	assert.Assert(t, !hasNetworkMode, "default networkMode must be stripped")
	_, hasRestart := c["restart"]
	assert.Assert(t, !hasRestart, "restart 'no' must be stripped")
	_, hasTty := c["tty"]
	assert.Assert(t, !hasTty, "tty false must be stripped")
}

func TestCanonicalizeExcludesControlAndNoise(t *testing.T) {
	cfg := &models.ContainerConfig{
		Name:                 "web",
		Image:                "nginx:1.27",
		Hostname:             "web-host",
		DependsOn:            []string{"db"},
		Devices:              []string{"/dev/snd"},
		IobAutoImageUpdate:   true,
		IobMonitoringEnabled: true,
	}
	c := Canonicalize(cfg)

	for _, key := range []string{"hostname", "dependsOn", "devices", "iobAutoImageUpdate", "iobMonitoringEnabled"} {
		_, found := c[key]
		assert.Assert(t, !found, "key %s must be excluded from comparison", key)
	}
}

func TestCanonicalizeSortsMountsByTarget(t *testing.T) {
	cfg := &models.ContainerConfig{
		Name:  "web",
		Image: "img",
		Mounts: []models.Mount{
			{Type: "volume", Source: "zdata", Target: "/z"},
			{Type: "volume", Source: "adata", Target: "/a", ReadOnly: true, IobBackup: true},
		},
	}
	c := Canonicalize(cfg)

	mounts, ok := c["mounts"].([]any)
	assert.Assert(t, ok, "mounts should survive as a list")
	assert.Equal(t, len(mounts), 2)

	first := mounts[0].(map[string]any)
	assert.Equal(t, first["target"], "/a")
	_, hasReadOnly := first["readOnly"]
	assert.Assert(t, !hasReadOnly, "readOnly must be dropped from mounts")
	_, hasBackup := first["iobBackup"]
	assert.Assert(t, !hasBackup, "control sub-flags must be dropped from mounts")
}

func TestCanonicalizeRewritesVolumeDataPath(t *testing.T) {
	cfg := &models.ContainerConfig{
		Name:  "web",
		Image: "img",
		Mounts: []models.Mount{
			{Type: "volume", Source: "/var/lib/docker/volumes/iob_0_appdata/_data", Target: "/data"},
		},
	}
	c := Canonicalize(cfg)

	mounts := c["mounts"].([]any)
	m := mounts[0].(map[string]any)
	assert.Equal(t, m["source"], "iob_0_appdata")
}

func TestCanonicalizeSortsPorts(t *testing.T) {
	cfg := &models.ContainerConfig{
		Name:  "web",
		Image: "img",
		Ports: []models.PortBinding{
			{HostPort: 443, ContainerPort: 8443, Protocol: "tcp"},
			{HostPort: 80, ContainerPort: 8080, Protocol: "tcp"},
			{HostPort: 80, ContainerPort: 53, Protocol: "udp"},
		},
	}
	c := Canonicalize(cfg)

	ports := c["ports"].([]any)
	var order []int
	for _, p := range ports {
		order = append(order, intValue(p.(map[string]any)["containerPort"]))
	}
	assert.DeepEqual(t, order, []int{53, 8080, 8443})
}

func TestCanonicalizeFoldsNetworkAttachment(t *testing.T) {
	desired := Canonicalize(&models.ContainerConfig{
		Name: "web", Image: "img", Networks: []string{"frontend"},
	})
	// The runtime reports the network passed on create as the mode.
	observed := Canonicalize(&models.ContainerConfig{
		Name: "web", Image: "img", NetworkMode: "frontend",
	})
	assert.Equal(t, len(Compare(desired, observed)), 0)
	assert.DeepEqual(t, observed["networks"], []any{"frontend"})
	_, hasMode := observed["networkMode"]
	assert.Assert(t, !hasMode, "attachable mode must fold into networks")
}

func TestCanonicalizeKeepsBuiltinNetworkMode(t *testing.T) {
	for _, mode := range []string{"host", "none", "container:other"} {
		c := Canonicalize(&models.ContainerConfig{Name: "web", Image: "img", NetworkMode: mode})
		assert.Equal(t, c["networkMode"], mode)
		_, hasNetworks := c["networks"]
		assert.Assert(t, !hasNetworks, "mode %q must not become an attachment", mode)
	}
}

func TestCanonicalizeDeduplicatesNetworkFold(t *testing.T) {
	c := Canonicalize(&models.ContainerConfig{
		Name: "web", Image: "img", NetworkMode: "backend", Networks: []string{"backend"},
	})
	assert.DeepEqual(t, c["networks"], []any{"backend"})
}

func TestCanonicalizeHealthcheckEncoding(t *testing.T) {
	desired := Canonicalize(&models.ContainerConfig{
		Name: "web", Image: "img",
		Healthcheck: &models.Healthcheck{Test: []string{"CMD", "sh", "-c", "a b"}, Interval: "90s"},
	})
	// The runtime stores the CMD form as a CMD-SHELL string and the
	// interval in its own duration rendering.
	observed := Canonicalize(&models.ContainerConfig{
		Name: "web", Image: "img",
		Healthcheck: &models.Healthcheck{Test: []string{"CMD-SHELL", "sh -c 'a b'"}, Interval: "1m30s"},
	})
	assert.Equal(t, len(Compare(desired, observed)), 0)
}

func TestCanonicalizeDisabledHealthcheck(t *testing.T) {
	desired := Canonicalize(&models.ContainerConfig{
		Name: "web", Image: "img",
		Healthcheck: &models.Healthcheck{Test: []string{"NONE"}, Disable: true},
	})
	observed := Canonicalize(&models.ContainerConfig{
		Name: "web", Image: "img",
		Healthcheck: &models.Healthcheck{Test: []string{"NONE"}},
	})
	assert.Equal(t, len(Compare(desired, observed)), 0)
	assert.DeepEqual(t, desired["healthcheck"], map[string]any{"test": "NONE"})
}

func TestNormalizeIdempotent(t *testing.T) {
	cfg := &models.ContainerConfig{
		Name:        "web",
		Image:       "img",
		NetworkMode: "backend",
		Networks:    []string{"z", "a"},
		Mounts: []models.Mount{
			{Type: "volume", Source: "data", Target: "/data", ReadOnly: true},
		},
		Ports: []models.PortBinding{
			{HostPort: 80, ContainerPort: 8080, Protocol: "tcp"},
		},
	}
	once := Canonicalize(cfg)
	twice := Normalize(map[string]any(once))
	assert.DeepEqual(t, map[string]any(once), map[string]any(twice))
}

func TestCanonicalRoundTripYieldsNoDiff(t *testing.T) {
	cfg := &models.ContainerConfig{
		Name:  "web",
		Image: "nginx:1.27",
		Env:   map[string]string{"MODE": "prod"},
		Ports: []models.PortBinding{
			{HostPort: 80, ContainerPort: 8080, Protocol: "tcp"},
		},
		Mounts: []models.Mount{
			{Type: "volume", Source: "data", Target: "/data"},
		},
	}
	a := Canonicalize(cfg)
	b := Canonicalize(cfg.Clone())
	if diff := cmp.Diff(map[string]any(a), map[string]any(b)); diff != "" {
		t.Errorf("canonical forms differ after clone round-trip:\n%s", diff)
	}
	assert.Equal(t, len(Compare(a, b)), 0)
}
