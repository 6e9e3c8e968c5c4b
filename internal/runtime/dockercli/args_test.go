package dockercli

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stackgen-cli/compose-pilot/internal/models"
)

func TestCreateArgsBasic(t *testing.T) {
	cfg := &models.ContainerConfig{
		Name:    "iob_0_web",
		Image:   "nginx:1.27",
		Env:     map[string]string{"B": "2", "A": "1"},
		Labels:  map[string]string{"tier": "web"},
		Ports:   []models.PortBinding{{HostPort: 80, ContainerPort: 8080, Protocol: "tcp"}},
		Command: []string{"nginx", "-g", "daemon off;"},
	}
	args, extra, err := createArgs(cfg)
	if err != nil {
		t.Fatalf("createArgs failed: %v", err)
	}
	if len(extra) != 0 {
		t.Errorf("Expected no extra networks, got %v", extra)
	}

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"create --name iob_0_web",
		"-e A=1 -e B=2",
		"--label tier=web",
		"-p 80:8080/tcp",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q:\n%s", want, joined)
		}
	}
	// Image first, then command, at the very end.
	tail := args[len(args)-4:]
	if !reflect.DeepEqual(tail, []string{"nginx:1.27", "nginx", "-g", "daemon off;"}) {
		t.Errorf("Unexpected tail: %v", tail)
	}
}

func TestCreateArgsNetworkSelection(t *testing.T) {
	cfg := &models.ContainerConfig{
		Name:     "c",
		Image:    "img:1",
		Networks: []string{"front", "back"},
	}
	args, extra, err := createArgs(cfg)
	if err != nil {
		t.Fatalf("createArgs failed: %v", err)
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--network front") {
		t.Errorf("first network should ride on create:\n%s", joined)
	}
	if !reflect.DeepEqual(extra, []string{"back"}) {
		t.Errorf("remaining networks must be connected post-create, got %v", extra)
	}

	cfg.NetworkMode = "host"
	_, extra, err = createArgs(cfg)
	if err != nil {
		t.Fatalf("createArgs failed: %v", err)
	}
	if !reflect.DeepEqual(extra, []string{"front", "back"}) {
		t.Errorf("network mode displaces all attachments to post-create, got %v", extra)
	}
}

func TestCreateArgsHealthcheck(t *testing.T) {
	cfg := &models.ContainerConfig{
		Name:  "c",
		Image: "img:1",
		Healthcheck: &models.Healthcheck{
			Test:     []string{"CMD", "curl", "-f", "http://localhost/"},
			Interval: "30s",
			Retries:  3,
		},
	}
	args, _, err := createArgs(cfg)
	if err != nil {
		t.Fatalf("createArgs failed: %v", err)
	}
	joined := strings.Join(args, " ")
	for _, want := range []string{
		"--health-cmd curl -f http://localhost/",
		"--health-interval 30s",
		"--health-retries 3",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q:\n%s", want, joined)
		}
	}

	cfg.Healthcheck = &models.Healthcheck{Test: []string{"NONE"}}
	args, _, err = createArgs(cfg)
	if err != nil {
		t.Fatalf("createArgs failed: %v", err)
	}
	if !strings.Contains(strings.Join(args, " "), "--no-healthcheck") {
		t.Errorf("NONE test should disable the healthcheck: %v", args)
	}
}

func TestCreateArgsHealthcheckQuoting(t *testing.T) {
	cfg := &models.ContainerConfig{
		Name:  "c",
		Image: "img:1",
		Healthcheck: &models.Healthcheck{
			Test: []string{"CMD", "sh", "-c", "a b"},
		},
	}
	args, _, err := createArgs(cfg)
	if err != nil {
		t.Fatalf("createArgs failed: %v", err)
	}
	for i, arg := range args {
		if arg == "--health-cmd" {
			if args[i+1] != "sh -c 'a b'" {
				t.Errorf("CMD argument with spaces must be quoted, got %q", args[i+1])
			}
			return
		}
	}
	t.Fatalf("--health-cmd not emitted: %v", args)
}

func TestCreateArgsStopGracePeriod(t *testing.T) {
	cfg := &models.ContainerConfig{
		Name:  "c",
		Image: "img:1",
		Stop:  &models.StopConfig{Signal: "SIGTERM", GracePeriod: "1m30s"},
	}
	args, _, err := createArgs(cfg)
	if err != nil {
		t.Fatalf("createArgs failed: %v", err)
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--stop-signal SIGTERM") || !strings.Contains(joined, "--stop-timeout 90") {
		t.Errorf("Unexpected stop args:\n%s", joined)
	}
}

func TestCreateArgsEntrypointSplit(t *testing.T) {
	cfg := &models.ContainerConfig{
		Name:       "c",
		Image:      "img:1",
		Entrypoint: []string{"/bin/sh", "-c"},
		Command:    []string{"run"},
	}
	args, _, err := createArgs(cfg)
	if err != nil {
		t.Fatalf("createArgs failed: %v", err)
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--entrypoint /bin/sh") {
		t.Errorf("first entrypoint element should ride on --entrypoint:\n%s", joined)
	}
	tail := args[len(args)-3:]
	if !reflect.DeepEqual(tail, []string{"img:1", "-c", "run"}) {
		t.Errorf("remaining entrypoint elements should prefix the command, got %v", tail)
	}
}

func TestCreateArgsControlFieldsNeverLeak(t *testing.T) {
	cfg := &models.ContainerConfig{
		Name:                 "c",
		Image:                "img:1",
		IobAutoImageUpdate:   true,
		IobMonitoringEnabled: true,
		Mounts: []models.Mount{
			{Type: "volume", Source: "data", Target: "/data", IobBackup: true, IobAutoCopyFrom: "/seed"},
		},
	}
	args, _, err := createArgs(cfg)
	if err != nil {
		t.Fatalf("createArgs failed: %v", err)
	}
	for _, arg := range args {
		if strings.Contains(arg, "iob") && arg != cfg.Name {
			t.Errorf("control directive leaked into args: %q", arg)
		}
	}
	if !strings.Contains(strings.Join(args, " "), "-v data:/data") {
		t.Errorf("mount should still be translated: %v", args)
	}
}
