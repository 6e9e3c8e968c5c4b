package dockercli

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/stackgen-cli/compose-pilot/internal/models"
)

// createArgs translates a ContainerConfig into docker create arguments.
// Owner-control flags never leak into the command line. The second return
// value lists networks beyond the first, which must be connected after
// creation.
func createArgs(cfg *models.ContainerConfig) ([]string, []string, error) {
	args := []string{"create", "--name", cfg.Name}

	if cfg.Hostname != "" {
		args = append(args, "--hostname", cfg.Hostname)
	}
	if cfg.User != "" {
		args = append(args, "--user", cfg.User)
	}
	if cfg.WorkingDir != "" {
		args = append(args, "--workdir", cfg.WorkingDir)
	}
	if cfg.Tty {
		args = append(args, "--tty")
	}

	for _, k := range sortedKeys(cfg.Env) {
		args = append(args, "-e", k+"="+cfg.Env[k])
	}
	for _, k := range sortedKeys(cfg.Labels) {
		args = append(args, "--label", k+"="+cfg.Labels[k])
	}
	for _, k := range sortedKeys(cfg.Sysctls) {
		args = append(args, "--sysctl", k+"="+cfg.Sysctls[k])
	}

	for _, p := range cfg.Ports {
		args = append(args, "-p", formatPort(p))
	}
	for _, m := range cfg.Mounts {
		spec := m.Source + ":" + m.Target
		if m.ReadOnly {
			spec += ":ro"
		}
		args = append(args, "-v", spec)
	}
	for _, t := range cfg.Tmpfs {
		args = append(args, "--tmpfs", t)
	}
	for _, d := range cfg.Devices {
		args = append(args, "--device", d)
	}
	for _, h := range cfg.ExtraHosts {
		args = append(args, "--add-host", h)
	}
	for _, d := range cfg.DNS {
		args = append(args, "--dns", d)
	}
	for _, d := range cfg.DNSSearch {
		args = append(args, "--dns-search", d)
	}

	var extraNetworks []string
	switch {
	case cfg.NetworkMode != "":
		args = append(args, "--network", cfg.NetworkMode)
		extraNetworks = cfg.Networks
	case len(cfg.Networks) > 0:
		args = append(args, "--network", cfg.Networks[0])
		extraNetworks = cfg.Networks[1:]
	}

	if hc := cfg.Healthcheck; hc != nil {
		if hc.Disable || (len(hc.Test) == 1 && hc.Test[0] == "NONE") {
			args = append(args, "--no-healthcheck")
		} else if len(hc.Test) > 0 {
			args = append(args, "--health-cmd", models.HealthTest(hc.Test))
			if hc.Interval != "" {
				args = append(args, "--health-interval", hc.Interval)
			}
			if hc.Timeout != "" {
				args = append(args, "--health-timeout", hc.Timeout)
			}
			if hc.Retries > 0 {
				args = append(args, "--health-retries", strconv.Itoa(hc.Retries))
			}
			if hc.StartPeriod != "" {
				args = append(args, "--health-start-period", hc.StartPeriod)
			}
		}
	}

	if cfg.Restart != "" {
		args = append(args, "--restart", cfg.Restart)
	}
	if log := cfg.Logging; log != nil {
		if log.Driver != "" {
			args = append(args, "--log-driver", log.Driver)
		}
		for _, k := range sortedKeys(log.Options) {
			args = append(args, "--log-opt", k+"="+log.Options[k])
		}
	}

	if sec := cfg.Security; sec != nil {
		if sec.Privileged {
			args = append(args, "--privileged")
		}
		for _, cap := range sec.CapAdd {
			args = append(args, "--cap-add", cap)
		}
		for _, cap := range sec.CapDrop {
			args = append(args, "--cap-drop", cap)
		}
		for _, opt := range sec.SecurityOpt {
			args = append(args, "--security-opt", opt)
		}
		if sec.UsernsMode != "" {
			args = append(args, "--userns", sec.UsernsMode)
		}
		if sec.IpcMode != "" {
			args = append(args, "--ipc", sec.IpcMode)
		}
		if sec.PidMode != "" {
			args = append(args, "--pid", sec.PidMode)
		}
	}

	if stop := cfg.Stop; stop != nil {
		if stop.Signal != "" {
			args = append(args, "--stop-signal", stop.Signal)
		}
		if stop.GracePeriod != "" {
			seconds, err := graceSeconds(stop.GracePeriod)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "stop grace period %q", stop.GracePeriod)
			}
			args = append(args, "--stop-timeout", strconv.Itoa(seconds))
		}
	}

	if res := cfg.Resources; res != nil {
		if res.CPUs > 0 {
			args = append(args, "--cpus", strconv.FormatFloat(res.CPUs, 'f', -1, 64))
		}
		if res.Memory > 0 {
			args = append(args, "--memory", strconv.FormatInt(res.Memory, 10))
		}
		if res.MemoryReservation > 0 {
			args = append(args, "--memory-reservation", strconv.FormatInt(res.MemoryReservation, 10))
		}
	}

	// docker takes a single entrypoint string; extra elements are prepended
	// to the command, matching CLI semantics.
	command := cfg.Command
	if len(cfg.Entrypoint) > 0 {
		args = append(args, "--entrypoint", cfg.Entrypoint[0])
		command = append(append([]string{}, cfg.Entrypoint[1:]...), command...)
	}

	args = append(args, cfg.Image)
	args = append(args, command...)
	return args, extraNetworks, nil
}

func formatPort(p models.PortBinding) string {
	proto := p.Protocol
	if proto == "" {
		proto = "tcp"
	}
	switch {
	case p.HostIP != "":
		return fmt.Sprintf("%s:%d:%d/%s", p.HostIP, p.HostPort, p.ContainerPort, proto)
	case p.HostPort != 0:
		return fmt.Sprintf("%d:%d/%s", p.HostPort, p.ContainerPort, proto)
	default:
		return fmt.Sprintf("%d/%s", p.ContainerPort, proto)
	}
}

func graceSeconds(period string) (int, error) {
	if n, err := strconv.Atoi(period); err == nil {
		return n, nil
	}
	d, err := time.ParseDuration(period)
	if err != nil {
		return 0, err
	}
	return int(d.Seconds()), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
