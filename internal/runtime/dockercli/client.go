// Package dockercli implements the runtime access interface by invoking the
// docker binary. Every operation is one short-lived CLI process; volume
// seeding runs a short-lived helper container.
package dockercli

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	units "github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/stackgen-cli/compose-pilot/internal/models"
	"github.com/stackgen-cli/compose-pilot/internal/runtime"
)

// seedImage is the throwaway image used by CopyToVolume helper containers.
const seedImage = "alpine:3"

// Client shells out to the docker CLI.
type Client struct {
	bin string
	log *logrus.Entry
}

// Option configures a Client.
type Option func(*Client)

// WithBinary overrides the docker binary path.
func WithBinary(path string) Option {
	return func(c *Client) { c.bin = path }
}

// New creates a docker CLI client.
func New(opts ...Option) *Client {
	c := &Client{
		bin: "docker",
		log: logrus.WithField("component", "dockercli"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// run executes one docker command and returns its stdout. "No such" errors
// are mapped to runtime.ErrNotFound so callers can treat absence as state,
// not failure.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, c.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.log.WithField("args", strings.Join(args, " ")).Debug("exec")
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if isNotFoundMessage(msg) {
			return "", errors.Wrap(runtime.ErrNotFound, msg)
		}
		if msg == "" {
			msg = err.Error()
		}
		return "", errors.New(msg)
	}
	return stdout.String(), nil
}

func isNotFoundMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "no such") || strings.Contains(lower, "not found")
}

type psEntry struct {
	ID     string `json:"ID"`
	Names  string `json:"Names"`
	Image  string `json:"Image"`
	State  string `json:"State"`
	Labels string `json:"Labels"`
}

func (c *Client) ListContainers(ctx context.Context, all bool) ([]runtime.ContainerSummary, error) {
	args := []string{"ps", "--format", "{{json .}}"}
	if all {
		args = append(args, "-a")
	}
	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, runtime.Operationf("list containers", "", err)
	}

	var summaries []runtime.ContainerSummary
	for _, line := range nonEmptyLines(out) {
		var entry psEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		summaries = append(summaries, runtime.ContainerSummary{
			ID:     entry.ID,
			Name:   entry.Names,
			Image:  entry.Image,
			State:  entry.State,
			Labels: parseLabelList(entry.Labels),
		})
	}
	return summaries, nil
}

func (c *Client) InspectContainer(ctx context.Context, name string) (*runtime.InspectResult, error) {
	out, err := c.run(ctx, "inspect", "--type", "container", name)
	if err != nil {
		if runtime.IsNotFound(err) {
			return nil, err
		}
		return nil, runtime.Operationf("inspect", name, err)
	}
	return parseInspect(out)
}

func (c *Client) CreateContainer(ctx context.Context, cfg *models.ContainerConfig) error {
	args, extraNetworks, err := createArgs(cfg)
	if err != nil {
		return runtime.Operationf("create", cfg.Name, err)
	}
	if _, err := c.run(ctx, args...); err != nil {
		return runtime.Operationf("create", cfg.Name, err)
	}
	// docker create attaches only one network; connect the rest afterwards.
	for _, network := range extraNetworks {
		if _, err := c.run(ctx, "network", "connect", network, cfg.Name); err != nil {
			return runtime.Operationf("network connect", cfg.Name, err)
		}
	}
	return nil
}

func (c *Client) StartContainer(ctx context.Context, name string) error {
	if _, err := c.run(ctx, "start", name); err != nil {
		return runtime.Operationf("start", name, err)
	}
	return nil
}

func (c *Client) StopContainer(ctx context.Context, name string) error {
	if _, err := c.run(ctx, "stop", name); err != nil {
		return runtime.Operationf("stop", name, err)
	}
	return nil
}

func (c *Client) RestartContainer(ctx context.Context, name string) error {
	if _, err := c.run(ctx, "restart", name); err != nil {
		return runtime.Operationf("restart", name, err)
	}
	return nil
}

func (c *Client) RemoveContainer(ctx context.Context, name string) error {
	if _, err := c.run(ctx, "rm", "-f", name); err != nil {
		return runtime.Operationf("remove", name, err)
	}
	return nil
}

func (c *Client) ListImages(ctx context.Context) ([]runtime.ImageSummary, error) {
	out, err := c.run(ctx, "images", "--no-trunc", "--format", "{{.ID}}\t{{.Repository}}:{{.Tag}}")
	if err != nil {
		return nil, runtime.Operationf("list images", "", err)
	}
	byID := make(map[string]*runtime.ImageSummary)
	var order []string
	for _, line := range nonEmptyLines(out) {
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			continue
		}
		id, tag := parts[0], parts[1]
		summary, ok := byID[id]
		if !ok {
			summary = &runtime.ImageSummary{ID: id}
			byID[id] = summary
			order = append(order, id)
		}
		if !strings.Contains(tag, "<none>") {
			summary.RepoTags = append(summary.RepoTags, tag)
		}
	}
	images := make([]runtime.ImageSummary, 0, len(order))
	for _, id := range order {
		images = append(images, *byID[id])
	}
	return images, nil
}

func (c *Client) PullImage(ctx context.Context, ref string) error {
	if _, err := c.run(ctx, "pull", ref); err != nil {
		return runtime.Operationf("pull", ref, err)
	}
	return nil
}

func (c *Client) RemoveImage(ctx context.Context, ref string) error {
	if _, err := c.run(ctx, "rmi", ref); err != nil {
		return runtime.Operationf("rmi", ref, err)
	}
	return nil
}

func (c *Client) ListNetworks(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "network", "ls", "--format", "{{.Name}}")
	if err != nil {
		return nil, runtime.Operationf("list networks", "", err)
	}
	return nonEmptyLines(out), nil
}

func (c *Client) CreateNetwork(ctx context.Context, name string) error {
	if _, err := c.run(ctx, "network", "create", name); err != nil {
		return runtime.Operationf("network create", name, err)
	}
	return nil
}

func (c *Client) RemoveNetwork(ctx context.Context, name string) error {
	if _, err := c.run(ctx, "network", "rm", name); err != nil {
		return runtime.Operationf("network rm", name, err)
	}
	return nil
}

func (c *Client) ListVolumes(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "volume", "ls", "--format", "{{.Name}}")
	if err != nil {
		return nil, runtime.Operationf("list volumes", "", err)
	}
	return nonEmptyLines(out), nil
}

func (c *Client) CreateVolume(ctx context.Context, name string) error {
	if _, err := c.run(ctx, "volume", "create", name); err != nil {
		return runtime.Operationf("volume create", name, err)
	}
	return nil
}

func (c *Client) RemoveVolume(ctx context.Context, name string) error {
	if _, err := c.run(ctx, "volume", "rm", name); err != nil {
		return runtime.Operationf("volume rm", name, err)
	}
	return nil
}

// CopyToVolume seeds a named volume from a local path through a short-lived
// helper container.
func (c *Client) CopyToVolume(ctx context.Context, localPath, volume string) error {
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return runtime.Operationf("seed", volume, err)
	}
	helper := "pilot-seed-" + uuid.NewString()[:8]
	c.log.WithFields(logrus.Fields{"volume": volume, "source": abs}).Info("seeding volume")
	_, err = c.run(ctx,
		"run", "--rm", "--name", helper,
		"-v", abs+":/seed-source:ro",
		"-v", volume+":/seed-target",
		seedImage,
		"sh", "-c", "cp -a /seed-source/. /seed-target/",
	)
	if err != nil {
		return runtime.Operationf("seed", volume, err)
	}
	return nil
}

type statsEntry struct {
	CPUPerc  string `json:"CPUPerc"`
	MemUsage string `json:"MemUsage"`
}

func (c *Client) ContainerStats(ctx context.Context, name string) (*runtime.Stats, error) {
	out, err := c.run(ctx, "stats", "--no-stream", "--format", "{{json .}}", name)
	if err != nil {
		return nil, runtime.Operationf("stats", name, err)
	}
	lines := nonEmptyLines(out)
	if len(lines) == 0 {
		return &runtime.Stats{}, nil
	}
	var entry statsEntry
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		return nil, runtime.Operationf("stats", name, err)
	}

	stats := &runtime.Stats{}
	if pct := strings.TrimSuffix(entry.CPUPerc, "%"); pct != "" {
		stats.CPUPercent, _ = strconv.ParseFloat(pct, 64)
	}
	// MemUsage looks like "15.5MiB / 512MiB".
	if used, limit, ok := strings.Cut(entry.MemUsage, "/"); ok {
		if n, err := units.RAMInBytes(strings.TrimSpace(used)); err == nil {
			stats.MemUsed = n
		}
		if n, err := units.RAMInBytes(strings.TrimSpace(limit)); err == nil {
			stats.MemLimit = n
		}
	}
	return stats, nil
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseLabelList(s string) map[string]string {
	if s == "" {
		return nil
	}
	labels := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		if k, v, ok := strings.Cut(pair, "="); ok {
			labels[k] = v
		}
	}
	return labels
}
