// Package runtime defines the container-runtime access interface the
// controller drives, plus the error taxonomy shared by its implementations.
// The concrete transport lives in subpackages.
package runtime

import (
	"context"
	"time"

	"github.com/stackgen-cli/compose-pilot/internal/models"
)

// ContainerSummary is one entry of a container listing.
type ContainerSummary struct {
	ID     string
	Name   string
	Image  string
	State  string
	Labels map[string]string
}

// ContainerState is the runtime-observed process state of a container.
type ContainerState struct {
	Status     string
	Running    bool
	Restarting bool
	ExitCode   int
	StartedAt  time.Time
	FinishedAt time.Time
	Health     string
}

// InspectResult pairs the config reconstructed from inspection with the
// observed state.
type InspectResult struct {
	Config  *models.ContainerConfig
	State   ContainerState
	ImageID string
}

// ImageSummary is one entry of an image listing.
type ImageSummary struct {
	ID       string
	RepoTags []string
}

// Stats is a point-in-time resource snapshot for one container.
type Stats struct {
	CPUPercent float64
	MemUsed    int64
	MemLimit   int64
}

// Runtime is the access interface to a container runtime. Implementations
// must make repeated calls with the same arguments safe; the controller
// performs its own pre-checks (e.g. it does not remove absent containers).
type Runtime interface {
	ListContainers(ctx context.Context, all bool) ([]ContainerSummary, error)
	InspectContainer(ctx context.Context, name string) (*InspectResult, error)
	CreateContainer(ctx context.Context, cfg *models.ContainerConfig) error
	StartContainer(ctx context.Context, name string) error
	StopContainer(ctx context.Context, name string) error
	RestartContainer(ctx context.Context, name string) error
	RemoveContainer(ctx context.Context, name string) error

	ListImages(ctx context.Context) ([]ImageSummary, error)
	PullImage(ctx context.Context, ref string) error
	RemoveImage(ctx context.Context, ref string) error

	ListNetworks(ctx context.Context) ([]string, error)
	CreateNetwork(ctx context.Context, name string) error
	RemoveNetwork(ctx context.Context, name string) error

	ListVolumes(ctx context.Context) ([]string, error)
	CreateVolume(ctx context.Context, name string) error
	RemoveVolume(ctx context.Context, name string) error

	// CopyToVolume copies a local path into a named volume, typically via a
	// short-lived helper container.
	CopyToVolume(ctx context.Context, localPath, volume string) error

	ContainerStats(ctx context.Context, name string) (*Stats, error)
}
