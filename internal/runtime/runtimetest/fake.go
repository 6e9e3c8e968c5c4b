// Package runtimetest provides an in-memory Runtime for controller tests.
package runtimetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stackgen-cli/compose-pilot/internal/models"
	"github.com/stackgen-cli/compose-pilot/internal/runtime"
)

// Container is one fake container with its stored config and state.
type Container struct {
	Config  *models.ContainerConfig
	State   runtime.ContainerState
	ImageID string
}

// Fake implements runtime.Runtime against in-memory maps and records every
// mutating call for assertions.
type Fake struct {
	mu         sync.Mutex
	Containers map[string]*Container
	Volumes    map[string]bool
	Networks   map[string]bool
	Images     map[string]string // ref -> image ID
	Seeds      []string          // "localPath=>volume"
	Calls      []string

	PullErr     map[string]error  // ref -> forced pull failure
	PullUpdates map[string]string // ref -> image ID installed by the next pull
	BusyVolume  map[string]bool   // volumes whose removal the runtime denies
}

// New creates an empty fake runtime.
func New() *Fake {
	return &Fake{
		Containers:  make(map[string]*Container),
		Volumes:     make(map[string]bool),
		Networks:    make(map[string]bool),
		Images:      make(map[string]string),
		PullErr:     make(map[string]error),
		PullUpdates: make(map[string]string),
		BusyVolume:  make(map[string]bool),
	}
}

func (f *Fake) record(format string, args ...any) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

// CallLog returns a copy of the recorded mutating calls.
func (f *Fake) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Calls))
	copy(out, f.Calls)
	return out
}

func (f *Fake) ListContainers(_ context.Context, all bool) ([]runtime.ContainerSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []runtime.ContainerSummary
	for name, c := range f.Containers {
		if !all && !c.State.Running {
			continue
		}
		out = append(out, runtime.ContainerSummary{
			ID:     "id-" + name,
			Name:   name,
			Image:  c.Config.Image,
			State:  c.State.Status,
			Labels: c.Config.Labels,
		})
	}
	return out, nil
}

func (f *Fake) InspectContainer(_ context.Context, name string) (*runtime.InspectResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.Containers[name]
	if !ok {
		return nil, runtime.Operationf("inspect", name, runtime.ErrNotFound)
	}
	return &runtime.InspectResult{
		Config:  c.Config.Clone(),
		State:   c.State,
		ImageID: c.ImageID,
	}, nil
}

func (f *Fake) CreateContainer(_ context.Context, cfg *models.ContainerConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create %s", cfg.Name)
	if _, ok := f.Containers[cfg.Name]; ok {
		return runtime.Operationf("create", cfg.Name, fmt.Errorf("name already in use"))
	}
	f.Containers[cfg.Name] = &Container{
		Config:  cfg.Clone(),
		State:   runtime.ContainerState{Status: "created"},
		ImageID: f.Images[cfg.Image],
	}
	return nil
}

func (f *Fake) StartContainer(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("start %s", name)
	c, ok := f.Containers[name]
	if !ok {
		return runtime.Operationf("start", name, runtime.ErrNotFound)
	}
	c.State = runtime.ContainerState{Status: "running", Running: true, StartedAt: time.Now()}
	return nil
}

func (f *Fake) StopContainer(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("stop %s", name)
	c, ok := f.Containers[name]
	if !ok {
		return runtime.Operationf("stop", name, runtime.ErrNotFound)
	}
	c.State = runtime.ContainerState{Status: "exited", FinishedAt: time.Now()}
	return nil
}

func (f *Fake) RestartContainer(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("restart %s", name)
	c, ok := f.Containers[name]
	if !ok {
		return runtime.Operationf("restart", name, runtime.ErrNotFound)
	}
	c.State = runtime.ContainerState{Status: "running", Running: true, StartedAt: time.Now()}
	return nil
}

func (f *Fake) RemoveContainer(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("remove %s", name)
	if _, ok := f.Containers[name]; !ok {
		return runtime.Operationf("remove", name, runtime.ErrNotFound)
	}
	delete(f.Containers, name)
	return nil
}

func (f *Fake) ListImages(_ context.Context) ([]runtime.ImageSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []runtime.ImageSummary
	for ref, id := range f.Images {
		out = append(out, runtime.ImageSummary{ID: id, RepoTags: []string{ref}})
	}
	return out, nil
}

func (f *Fake) PullImage(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("pull %s", ref)
	if err := f.PullErr[ref]; err != nil {
		return runtime.Operationf("pull", ref, err)
	}
	if id, ok := f.PullUpdates[ref]; ok {
		f.Images[ref] = id
		delete(f.PullUpdates, ref)
		return nil
	}
	if _, ok := f.Images[ref]; !ok {
		f.Images[ref] = "sha256:" + ref
	}
	return nil
}

func (f *Fake) RemoveImage(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("rmi %s", ref)
	delete(f.Images, ref)
	return nil
}

func (f *Fake) ListNetworks(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for name := range f.Networks {
		out = append(out, name)
	}
	return out, nil
}

func (f *Fake) CreateNetwork(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("network create %s", name)
	f.Networks[name] = true
	return nil
}

func (f *Fake) RemoveNetwork(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("network rm %s", name)
	if !f.Networks[name] {
		return runtime.Operationf("network rm", name, runtime.ErrNotFound)
	}
	delete(f.Networks, name)
	return nil
}

func (f *Fake) ListVolumes(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for name := range f.Volumes {
		out = append(out, name)
	}
	return out, nil
}

func (f *Fake) CreateVolume(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("volume create %s", name)
	f.Volumes[name] = true
	return nil
}

func (f *Fake) RemoveVolume(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("volume rm %s", name)
	if !f.Volumes[name] {
		return runtime.Operationf("volume rm", name, runtime.ErrNotFound)
	}
	if f.BusyVolume[name] {
		return runtime.Operationf("volume rm", name, fmt.Errorf("volume is in use"))
	}
	delete(f.Volumes, name)
	return nil
}

func (f *Fake) CopyToVolume(_ context.Context, localPath, volume string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("seed %s => %s", localPath, volume)
	if !f.Volumes[volume] {
		return runtime.Operationf("seed", volume, runtime.ErrNotFound)
	}
	f.Seeds = append(f.Seeds, localPath+"=>"+volume)
	return nil
}

func (f *Fake) ContainerStats(_ context.Context, name string) (*runtime.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.Containers[name]
	if !ok {
		return nil, runtime.Operationf("stats", name, runtime.ErrNotFound)
	}
	if !c.State.Running {
		return &runtime.Stats{}, nil
	}
	return &runtime.Stats{CPUPercent: 1.5, MemUsed: 16 << 20, MemLimit: 512 << 20}, nil
}
