package mapper

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stackgen-cli/compose-pilot/internal/models"
	"github.com/stackgen-cli/compose-pilot/internal/parser"
)

func load(t *testing.T, content string) *models.Manifest {
	t.Helper()
	m, err := parser.Load(content)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return m
}

func TestMapPortShorthand(t *testing.T) {
	m := load(t, `services:
  api:
    image: img
    ports:
      - "8080"
      - "80:8080"
      - "127.0.0.1:443:8443"
      - "53:53/udp"
      - "web:8080"
`)
	cfg, err := MapService("api", m)
	if err != nil {
		t.Fatalf("MapService failed: %v", err)
	}

	want := []models.PortBinding{
		{ContainerPort: 8080, Protocol: "tcp"},
		{HostPort: 80, ContainerPort: 8080, Protocol: "tcp"},
		{HostIP: "127.0.0.1", HostPort: 443, ContainerPort: 8443, Protocol: "tcp"},
		{HostPort: 53, ContainerPort: 53, Protocol: "udp"},
	}
	if !reflect.DeepEqual(cfg.Ports, want) {
		t.Errorf("Ports = %+v, want %+v", cfg.Ports, want)
	}
}

func TestMapMountClassification(t *testing.T) {
	m := load(t, `services:
  api:
    image: img
    volumes:
      - /etc/certs:/certs:ro
      - ./src:/app/src
      - appdata:/data
      - type: tmpfs
        target: /scratch
      - type: volume
        source: cache
        target: /cache
`)
	cfg, err := MapService("api", m)
	if err != nil {
		t.Fatalf("MapService failed: %v", err)
	}

	wantMounts := []models.Mount{
		{Type: "bind", Source: "/etc/certs", Target: "/certs", ReadOnly: true},
		{Type: "bind", Source: "./src", Target: "/app/src"},
		{Type: "volume", Source: "appdata", Target: "/data"},
		{Type: "volume", Source: "cache", Target: "/cache"},
	}
	if !reflect.DeepEqual(cfg.Mounts, wantMounts) {
		t.Errorf("Mounts = %+v, want %+v", cfg.Mounts, wantMounts)
	}
	if !reflect.DeepEqual(cfg.Tmpfs, []string{"/scratch"}) {
		t.Errorf("Tmpfs = %v, want [/scratch]", cfg.Tmpfs)
	}
}

func TestMapControlLabels(t *testing.T) {
	m := load(t, `services:
  api:
    image: img
    labels:
      iobEnabled: "false"
      iobStopOnUnload: "false"
      iobAutoImageUpdate: "true"
      iobMonitoringEnabled: "yes"
      iobWaitForReady: "1"
      tier: web
`)
	cfg, err := MapService("api", m)
	if err != nil {
		t.Fatalf("MapService failed: %v", err)
	}

	if cfg.Enabled() {
		t.Error("iobEnabled=false should disable the container")
	}
	if cfg.StopOnUnload() {
		t.Error("iobStopOnUnload=false should clear stop-on-unload")
	}
	if !cfg.IobAutoImageUpdate || !cfg.IobMonitoringEnabled || !cfg.IobWaitForReady {
		t.Errorf("control flags not lifted: %+v", cfg)
	}
	want := map[string]string{"tier": "web"}
	if !reflect.DeepEqual(cfg.Labels, want) {
		t.Errorf("Labels = %v, want %v (control labels must not leak)", cfg.Labels, want)
	}
}

func TestMapControlLabelDefaults(t *testing.T) {
	m := load(t, `services:
  api:
    image: img
`)
	cfg, err := MapService("api", m)
	if err != nil {
		t.Fatalf("MapService failed: %v", err)
	}
	if !cfg.Enabled() {
		t.Error("Enabled should default to true")
	}
	if !cfg.StopOnUnload() {
		t.Error("StopOnUnload should default to true")
	}
	if cfg.IobAutoImageUpdate || cfg.IobMonitoringEnabled || cfg.IobWaitForReady {
		t.Error("remaining control flags should default to false")
	}
}

func TestMapBackupLabel(t *testing.T) {
	m := load(t, `services:
  api:
    image: img
    volumes:
      - appdata:/data
      - cache:/cache
    labels:
      iobBackup: "appdata, missing"
`)
	cfg, err := MapService("api", m)
	if err != nil {
		t.Fatalf("MapService failed: %v", err)
	}
	if !cfg.Mounts[0].IobBackup {
		t.Error("appdata mount should be marked for backup")
	}
	if cfg.Mounts[1].IobBackup {
		t.Error("cache mount must not be marked")
	}
}

func TestMapCopyVolumes(t *testing.T) {
	m := load(t, `services:
  api:
    image: img
    volumes:
      - appdata:/data
    labels:
      iobCopyVolumes: "./seed=>appdata"
`)
	cfg, err := MapService("api", m)
	if err != nil {
		t.Fatalf("MapService failed: %v", err)
	}
	abs, _ := filepath.Abs("./seed")
	if cfg.Mounts[0].IobAutoCopyFrom != abs {
		t.Errorf("IobAutoCopyFrom = %q, want %q", cfg.Mounts[0].IobAutoCopyFrom, abs)
	}
	if cfg.Mounts[0].IobAutoCopyFromForce {
		t.Error("force flag must never be set by the mapper")
	}
}

func TestMapCopyVolumesMalformed(t *testing.T) {
	m := load(t, `services:
  api:
    image: img
    labels:
      iobCopyVolumes: "no-arrow-here"
`)
	_, err := MapService("api", m)
	if err == nil {
		t.Fatal("Expected error for malformed iobCopyVolumes entry")
	}
	if !IsMappingError(err) {
		t.Errorf("Expected MappingError, got %T: %v", err, err)
	}
}

func TestMapBuildOnlyService(t *testing.T) {
	m := load(t, `services:
  worker:
    build: ./worker
`)
	cfg, err := MapService("worker", m)
	if err != nil {
		t.Fatalf("MapService failed: %v", err)
	}
	if cfg.Image != "worker:latest" {
		t.Errorf("Image = %q, want worker:latest", cfg.Image)
	}
}

func TestMapNoImageNoBuild(t *testing.T) {
	m := load(t, `services:
  ghost:
    restart: always
`)
	_, err := MapService("ghost", m)
	if err == nil {
		t.Fatal("Expected error for service without image or build")
	}
	if !IsMappingError(err) {
		t.Errorf("Expected MappingError, got %T: %v", err, err)
	}
}

func TestMapResources(t *testing.T) {
	m := load(t, `services:
  api:
    image: img
    deploy:
      resources:
        limits:
          cpus: "0.5"
          memory: 512M
`)
	cfg, err := MapService("api", m)
	if err != nil {
		t.Fatalf("MapService failed: %v", err)
	}
	if cfg.Resources == nil {
		t.Fatal("Expected resources")
	}
	if cfg.Resources.CPUs != 0.5 {
		t.Errorf("CPUs = %v, want 0.5", cfg.Resources.CPUs)
	}
	if cfg.Resources.Memory != 512*1024*1024 {
		t.Errorf("Memory = %d, want %d", cfg.Resources.Memory, 512*1024*1024)
	}
}

func TestMapDeterministicOrder(t *testing.T) {
	m := load(t, `services:
  zeta:
    image: img
  alpha:
    image: img
  mid:
    image: img
`)
	configs, err := Map(m)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	var names []string
	for _, cfg := range configs {
		names = append(names, cfg.Name)
	}
	if !reflect.DeepEqual(names, []string{"alpha", "mid", "zeta"}) {
		t.Errorf("Order = %v, want alphabetical", names)
	}
}

func TestMapListLabels(t *testing.T) {
	m := load(t, `services:
  api:
    image: img
    labels:
      - iobEnabled=true
      - tier=web
`)
	cfg, err := MapService("api", m)
	if err != nil {
		t.Fatalf("MapService failed: %v", err)
	}
	if !cfg.Enabled() {
		t.Error("list-form iobEnabled=true should apply")
	}
	if cfg.Labels["tier"] != "web" {
		t.Errorf("Labels = %v, want tier=web retained", cfg.Labels)
	}
}
