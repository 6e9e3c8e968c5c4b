package dockercli

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/stackgen-cli/compose-pilot/internal/models"
	"github.com/stackgen-cli/compose-pilot/internal/runtime"
)

// inspectDoc is the subset of docker inspect output the controller needs to
// reconstruct a comparable ContainerConfig.
type inspectDoc struct {
	ID    string `json:"Id"`
	Name  string `json:"Name"`
	Image string `json:"Image"`
	State struct {
		Status     string `json:"Status"`
		Running    bool   `json:"Running"`
		Restarting bool   `json:"Restarting"`
		ExitCode   int    `json:"ExitCode"`
		StartedAt  string `json:"StartedAt"`
		FinishedAt string `json:"FinishedAt"`
		Health     *struct {
			Status string `json:"Status"`
		} `json:"Health"`
	} `json:"State"`
	Config struct {
		Image       string            `json:"Image"`
		Cmd         []string          `json:"Cmd"`
		Entrypoint  []string          `json:"Entrypoint"`
		User        string            `json:"User"`
		WorkingDir  string            `json:"WorkingDir"`
		Hostname    string            `json:"Hostname"`
		Env         []string          `json:"Env"`
		Labels      map[string]string `json:"Labels"`
		Tty         bool              `json:"Tty"`
		Healthcheck *struct {
			Test        []string `json:"Test"`
			Interval    int64    `json:"Interval"`
			Timeout     int64    `json:"Timeout"`
			StartPeriod int64    `json:"StartPeriod"`
			Retries     int      `json:"Retries"`
		} `json:"Healthcheck"`
	} `json:"Config"`
	HostConfig struct {
		NetworkMode   string                       `json:"NetworkMode"`
		PortBindings  map[string][]hostPortBinding `json:"PortBindings"`
		RestartPolicy struct {
			Name string `json:"Name"`
		} `json:"RestartPolicy"`
		Privileged  bool              `json:"Privileged"`
		CapAdd      []string          `json:"CapAdd"`
		CapDrop     []string          `json:"CapDrop"`
		SecurityOpt []string          `json:"SecurityOpt"`
		UsernsMode  string            `json:"UsernsMode"`
		IpcMode     string            `json:"IpcMode"`
		PidMode     string            `json:"PidMode"`
		Sysctls     map[string]string `json:"Sysctls"`
		Tmpfs       map[string]string `json:"Tmpfs"`
		DNS         []string          `json:"Dns"`
		DNSSearch   []string          `json:"DnsSearch"`
		ExtraHosts  []string          `json:"ExtraHosts"`
		Memory      int64             `json:"Memory"`
		NanoCpus    int64             `json:"NanoCpus"`
	} `json:"HostConfig"`
	Mounts []struct {
		Type        string `json:"Type"`
		Name        string `json:"Name"`
		Source      string `json:"Source"`
		Destination string `json:"Destination"`
		RW          bool   `json:"RW"`
	} `json:"Mounts"`
	NetworkSettings struct {
		Networks map[string]json.RawMessage `json:"Networks"`
	} `json:"NetworkSettings"`
}

type hostPortBinding struct {
	HostIP   string `json:"HostIp"`
	HostPort string `json:"HostPort"`
}

// parseInspect maps a docker inspect document back onto the runtime-agnostic
// config shape so it can be canonicalized and diffed against desired state.
func parseInspect(raw string) (*runtime.InspectResult, error) {
	var docs []inspectDoc
	if err := json.Unmarshal([]byte(raw), &docs); err != nil {
		return nil, errors.Wrap(err, "decoding inspect output")
	}
	if len(docs) == 0 {
		return nil, runtime.ErrNotFound
	}
	doc := docs[0]

	cfg := &models.ContainerConfig{
		Name:       strings.TrimPrefix(doc.Name, "/"),
		Image:      doc.Config.Image,
		Command:    doc.Config.Cmd,
		Entrypoint: doc.Config.Entrypoint,
		User:       doc.Config.User,
		WorkingDir: doc.Config.WorkingDir,
		Hostname:   doc.Config.Hostname,
		Labels:     doc.Config.Labels,
		Tty:        doc.Config.Tty,
		Restart:    doc.HostConfig.RestartPolicy.Name,
		Sysctls:    doc.HostConfig.Sysctls,
		DNS:        doc.HostConfig.DNS,
		DNSSearch:  doc.HostConfig.DNSSearch,
		ExtraHosts: doc.HostConfig.ExtraHosts,
	}

	// Intervals come back as nanoseconds; the canonical form reduces both
	// sides to seconds, so the duration-string rendering is free to differ
	// from the declared spelling.
	if hc := doc.Config.Healthcheck; hc != nil {
		check := &models.Healthcheck{Test: hc.Test, Retries: hc.Retries}
		if hc.Interval > 0 {
			check.Interval = time.Duration(hc.Interval).String()
		}
		if hc.Timeout > 0 {
			check.Timeout = time.Duration(hc.Timeout).String()
		}
		if hc.StartPeriod > 0 {
			check.StartPeriod = time.Duration(hc.StartPeriod).String()
		}
		cfg.Healthcheck = check
	}

	if len(doc.Config.Env) > 0 {
		cfg.Env = make(map[string]string, len(doc.Config.Env))
		for _, pair := range doc.Config.Env {
			if k, v, ok := strings.Cut(pair, "="); ok {
				cfg.Env[k] = v
			}
		}
	}

	for spec, bindings := range doc.HostConfig.PortBindings {
		port, proto := splitPortProto(spec)
		if port == 0 {
			continue
		}
		if len(bindings) == 0 {
			cfg.Ports = append(cfg.Ports, models.PortBinding{ContainerPort: port, Protocol: proto})
			continue
		}
		for _, b := range bindings {
			hp, _ := strconv.Atoi(b.HostPort)
			cfg.Ports = append(cfg.Ports, models.PortBinding{
				HostIP:        b.HostIP,
				HostPort:      hp,
				ContainerPort: port,
				Protocol:      proto,
			})
		}
	}

	for _, m := range doc.Mounts {
		source := m.Source
		if m.Type == "volume" && m.Name != "" {
			source = m.Name
		}
		cfg.Mounts = append(cfg.Mounts, models.Mount{
			Type:     m.Type,
			Source:   source,
			Target:   m.Destination,
			ReadOnly: !m.RW,
		})
	}

	for _, t := range sortedKeys(doc.HostConfig.Tmpfs) {
		cfg.Tmpfs = append(cfg.Tmpfs, t)
	}

	if mode := doc.HostConfig.NetworkMode; mode != "" && mode != "default" {
		cfg.NetworkMode = mode
	}
	for network := range doc.NetworkSettings.Networks {
		if network != cfg.NetworkMode {
			cfg.Networks = append(cfg.Networks, network)
		}
	}

	if doc.HostConfig.Privileged || len(doc.HostConfig.CapAdd) > 0 || len(doc.HostConfig.CapDrop) > 0 ||
		len(doc.HostConfig.SecurityOpt) > 0 || doc.HostConfig.UsernsMode != "" ||
		doc.HostConfig.IpcMode != "" || doc.HostConfig.PidMode != "" {
		cfg.Security = &models.Security{
			Privileged:  doc.HostConfig.Privileged,
			CapAdd:      doc.HostConfig.CapAdd,
			CapDrop:     doc.HostConfig.CapDrop,
			SecurityOpt: doc.HostConfig.SecurityOpt,
			UsernsMode:  doc.HostConfig.UsernsMode,
			IpcMode:     doc.HostConfig.IpcMode,
			PidMode:     doc.HostConfig.PidMode,
		}
	}

	if doc.HostConfig.Memory > 0 || doc.HostConfig.NanoCpus > 0 {
		cfg.Resources = &models.Resources{
			Memory: doc.HostConfig.Memory,
			CPUs:   float64(doc.HostConfig.NanoCpus) / 1e9,
		}
	}

	state := runtime.ContainerState{
		Status:     doc.State.Status,
		Running:    doc.State.Running,
		Restarting: doc.State.Restarting,
		ExitCode:   doc.State.ExitCode,
		StartedAt:  parseDockerTime(doc.State.StartedAt),
		FinishedAt: parseDockerTime(doc.State.FinishedAt),
	}
	if doc.State.Health != nil {
		state.Health = doc.State.Health.Status
	}

	return &runtime.InspectResult{Config: cfg, State: state, ImageID: doc.Image}, nil
}

func splitPortProto(spec string) (int, string) {
	portPart, proto, ok := strings.Cut(spec, "/")
	if !ok {
		proto = "tcp"
	}
	port, err := strconv.Atoi(portPart)
	if err != nil {
		return 0, proto
	}
	return port, proto
}

func parseDockerTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
