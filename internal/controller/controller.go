// Package controller drives the runtime toward the desired container set:
// resource provisioning, image policy, create/recreate/start decisions and
// the periodic self-healing monitor.
package controller

import (
	"context"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/sirupsen/logrus"

	"github.com/stackgen-cli/compose-pilot/internal/diff"
	"github.com/stackgen-cli/compose-pilot/internal/models"
	"github.com/stackgen-cli/compose-pilot/internal/runtime"
)

// DefaultMonitorInterval is the monitor tick period.
const DefaultMonitorInterval = 30 * time.Second

// Status is the last-known state of one owned container, exposed through
// GetStats for external inspection.
type Status struct {
	Status     string    `json:"status"`
	StatusTs   time.Time `json:"statusTs"`
	CPUPercent float64   `json:"cpu"`
	MemUsed    int64     `json:"memUsed"`
	MemMax     int64     `json:"memMax"`
	LastError  string    `json:"lastError,omitempty"`
}

// Controller reconciles a fixed set of owned containers. Containers are
// processed sequentially in manifest order; runtime mutations are
// serialized per container name so a monitor-triggered restart cannot race
// an ad-hoc recreate.
type Controller struct {
	rt              runtime.Runtime
	prefix          string
	log             *logrus.Entry
	monitorInterval time.Duration

	mu       sync.Mutex
	declared map[string]*models.ContainerConfig // by enforced name
	enforced map[string]*models.ContainerConfig
	order    []string
	locks    map[string]*sync.Mutex
	stats    map[string]Status

	monitorMu   sync.Mutex
	monitorStop chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithPrefix sets the owner naming prefix applied to containers, custom
// networks and named volumes.
func WithPrefix(prefix string) Option {
	return func(c *Controller) { c.prefix = prefix }
}

// WithMonitorInterval overrides the monitor tick period.
func WithMonitorInterval(d time.Duration) Option {
	return func(c *Controller) { c.monitorInterval = d }
}

// WithLogger overrides the logger.
func WithLogger(entry *logrus.Entry) Option {
	return func(c *Controller) { c.log = entry }
}

// New creates a Controller owning the given configs. Duplicate enforced
// names are rejected with a ConflictError.
func New(rt runtime.Runtime, configs []*models.ContainerConfig, opts ...Option) (*Controller, error) {
	c := &Controller{
		rt:              rt,
		log:             logrus.WithField("component", "controller"),
		monitorInterval: DefaultMonitorInterval,
		declared:        make(map[string]*models.ContainerConfig),
		enforced:        make(map[string]*models.ContainerConfig),
		locks:           make(map[string]*sync.Mutex),
		stats:           make(map[string]Status),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, cfg := range configs {
		if err := c.adopt(cfg); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// adopt registers one declared config under its enforced name. Caller need
// not hold c.mu during construction; AddContainer wraps it with locking.
func (c *Controller) adopt(declared *models.ContainerConfig) error {
	enforced := Enforce(declared, c.prefix)
	if _, exists := c.declared[enforced.Name]; exists {
		return &runtime.ConflictError{Name: enforced.Name}
	}
	c.declared[enforced.Name] = declared
	c.enforced[enforced.Name] = enforced
	c.order = append(c.order, enforced.Name)
	return nil
}

func (c *Controller) nameLock(name string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[name] = lock
	}
	return lock
}

func (c *Controller) snapshot() []*models.ContainerConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*models.ContainerConfig, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.enforced[name])
	}
	return out
}

// ReconcileAll runs one full sequential pass over every owned container.
// Failures are isolated per container: they are logged and recorded, and
// the pass continues. The monitor is started once any monitoring-enabled
// container has been brought up.
func (c *Controller) ReconcileAll(ctx context.Context) error {
	monitorable := false
	for _, cfg := range c.snapshot() {
		if err := c.reconcileOne(ctx, cfg); err != nil {
			c.log.WithField("container", cfg.Name).WithError(err).Error("reconciliation failed")
			c.recordError(cfg.Name, err)
			continue
		}
		if cfg.Enabled() && cfg.IobMonitoringEnabled {
			monitorable = true
		}
	}
	if monitorable {
		c.StartMonitor(ctx)
	}
	return nil
}

// reconcileOne drives a single container toward its desired state.
func (c *Controller) reconcileOne(ctx context.Context, cfg *models.ContainerConfig) error {
	log := c.log.WithField("container", cfg.Name)
	if !cfg.Enabled() {
		log.Debug("container disabled, skipping")
		return nil
	}

	lock := c.nameLock(cfg.Name)
	lock.Lock()
	defer lock.Unlock()

	if err := c.provision(ctx, cfg); err != nil {
		return err
	}
	imageChanged, oldImageID, err := c.ensureImage(ctx, cfg)
	if err != nil {
		return err
	}

	observed, err := c.rt.InspectContainer(ctx, cfg.Name)
	if runtime.IsNotFound(err) {
		log.Info("container absent, creating")
		return c.createAndStart(ctx, cfg)
	}
	if err != nil {
		return err
	}

	if imageChanged {
		log.Info("image updated, recreating container")
		if err := c.recreate(ctx, cfg, observed.State.Running); err != nil {
			return err
		}
		// Best-effort prune of the superseded image, now untagged.
		if err := c.rt.RemoveImage(ctx, oldImageID); err != nil {
			log.WithError(err).Debug("superseded image not removed")
		}
		return nil
	}

	paths := diff.Compare(diff.Canonicalize(cfg), diff.Canonicalize(observed.Config))
	if len(paths) == 0 {
		if !observed.State.Running {
			log.Info("container stopped, starting")
			if err := c.rt.StartContainer(ctx, cfg.Name); err != nil {
				return err
			}
		}
		c.recordStatus(cfg.Name, "running")
		return nil
	}

	log.WithField("diff", paths).Info("configuration drift detected, recreating")
	return c.recreate(ctx, cfg, observed.State.Running)
}

// recreate stops and removes the drifted container, confirms removal and
// re-runs the create path. The runtime offers no general in-place
// reconfiguration.
func (c *Controller) recreate(ctx context.Context, cfg *models.ContainerConfig, running bool) error {
	if running {
		if err := c.rt.StopContainer(ctx, cfg.Name); err != nil {
			return err
		}
	}
	if err := c.rt.RemoveContainer(ctx, cfg.Name); err != nil && !runtime.IsNotFound(err) {
		return err
	}
	if _, err := c.rt.InspectContainer(ctx, cfg.Name); !runtime.IsNotFound(err) {
		return &runtime.VerificationError{
			Resource: cfg.Name,
			Expected: "removed",
			Actual:   "still present",
		}
	}
	return c.createAndStart(ctx, cfg)
}

func (c *Controller) createAndStart(ctx context.Context, cfg *models.ContainerConfig) error {
	if err := c.rt.CreateContainer(ctx, cfg); err != nil {
		return err
	}
	if err := c.rt.StartContainer(ctx, cfg.Name); err != nil {
		return err
	}
	if cfg.IobWaitForReady {
		if err := c.waitReady(ctx, cfg.Name); err != nil {
			return err
		}
	}
	c.recordStatus(cfg.Name, "running")
	return nil
}

// waitReady polls until the container is running and, when it has a
// healthcheck, reports healthy.
func (c *Controller) waitReady(ctx context.Context, name string) error {
	const attempts = 30
	for i := 0; i < attempts; i++ {
		observed, err := c.rt.InspectContainer(ctx, name)
		if err != nil {
			return err
		}
		healthy := observed.State.Health == "" || observed.State.Health == "healthy"
		if observed.State.Running && healthy {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return &runtime.VerificationError{Resource: name, Expected: "running and healthy", Actual: "not ready"}
}

// Plan computes, without mutating the runtime, what a reconciliation pass
// would do for every owned container.
func (c *Controller) Plan(ctx context.Context) (*models.Plan, error) {
	plan := models.NewPlan()
	for _, cfg := range c.snapshot() {
		entry := models.PlanEntry{Name: cfg.Name, Image: cfg.Image}
		switch {
		case !cfg.Enabled():
			entry.Action = models.ActionSkip
			entry.Reason = "disabled"
		default:
			observed, err := c.rt.InspectContainer(ctx, cfg.Name)
			switch {
			case runtime.IsNotFound(err):
				entry.Action = models.ActionCreate
			case err != nil:
				entry.Action = models.ActionError
				entry.Reason = err.Error()
			default:
				paths := diff.Compare(diff.Canonicalize(cfg), diff.Canonicalize(observed.Config))
				switch {
				case len(paths) > 0:
					entry.Action = models.ActionRecreate
					entry.Diff = paths
				case !observed.State.Running:
					entry.Action = models.ActionStart
				default:
					entry.Action = models.ActionNone
				}
			}
		}
		plan.Add(entry)
	}
	return plan, nil
}

// AddContainer registers a new declared config and reconciles it. A
// duplicate enforced name is rejected synchronously with a ConflictError;
// no runtime call is attempted.
func (c *Controller) AddContainer(ctx context.Context, declared *models.ContainerConfig) error {
	c.mu.Lock()
	err := c.adopt(declared)
	var enforced *models.ContainerConfig
	if err == nil {
		enforced = c.enforced[c.order[len(c.order)-1]]
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.reconcileOne(ctx, enforced)
}

// ModifyContainer merges partial changes onto the declared config and
// re-runs that container's slice of the reconciliation pass. A rename to an
// already-managed name is rejected with a ConflictError.
func (c *Controller) ModifyContainer(ctx context.Context, name string, changes *models.ContainerConfig) error {
	c.mu.Lock()
	key := applyPrefix(name, c.prefix)
	declared, ok := c.declared[key]
	if !ok {
		c.mu.Unlock()
		return runtime.Operationf("modify", name, runtime.ErrNotFound)
	}

	merged := declared.Clone()
	if err := mergo.Merge(merged, changes, mergo.WithOverride); err != nil {
		c.mu.Unlock()
		return err
	}
	enforced := Enforce(merged, c.prefix)
	if enforced.Name != key {
		if _, exists := c.declared[enforced.Name]; exists {
			c.mu.Unlock()
			return &runtime.ConflictError{Name: enforced.Name}
		}
	}
	oldEnforcedName := key
	delete(c.declared, key)
	delete(c.enforced, key)
	c.declared[enforced.Name] = merged
	c.enforced[enforced.Name] = enforced
	for i, n := range c.order {
		if n == key {
			c.order[i] = enforced.Name
		}
	}
	c.mu.Unlock()

	// A rename leaves the old container behind; remove it first.
	if enforced.Name != oldEnforcedName {
		lock := c.nameLock(oldEnforcedName)
		lock.Lock()
		if err := c.rt.RemoveContainer(ctx, oldEnforcedName); err != nil && !runtime.IsNotFound(err) {
			c.log.WithField("container", oldEnforcedName).WithError(err).Warn("removing renamed container failed")
		}
		lock.Unlock()
	}
	return c.reconcileOne(ctx, enforced)
}

// RemoveContainer stops and removes one owned container, then attempts
// best-effort cleanup of a network and a volume matching the container's
// own name. Cleanup denial (resource still referenced) is silent.
func (c *Controller) RemoveContainer(ctx context.Context, name string) error {
	c.mu.Lock()
	key := applyPrefix(name, c.prefix)
	_, ok := c.declared[key]
	c.mu.Unlock()
	if !ok {
		return runtime.Operationf("remove", name, runtime.ErrNotFound)
	}

	lock := c.nameLock(key)
	lock.Lock()
	defer lock.Unlock()

	observed, err := c.rt.InspectContainer(ctx, key)
	if err == nil {
		if observed.State.Running {
			if err := c.rt.StopContainer(ctx, key); err != nil {
				return err
			}
		}
		if err := c.rt.RemoveContainer(ctx, key); err != nil && !runtime.IsNotFound(err) {
			return err
		}
	} else if !runtime.IsNotFound(err) {
		return err
	}

	if err := c.rt.RemoveNetwork(ctx, key); err != nil {
		c.log.WithField("network", key).Debug("network cleanup skipped")
	}
	if err := c.rt.RemoveVolume(ctx, key); err != nil {
		c.log.WithField("volume", key).Debug("volume cleanup skipped")
	}

	c.mu.Lock()
	delete(c.declared, key)
	delete(c.enforced, key)
	delete(c.stats, key)
	for i, n := range c.order {
		if n == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	return nil
}

// StopAll stops every owned container whose iobStopOnUnload directive is
// set (the default), in reverse manifest order.
func (c *Controller) StopAll(ctx context.Context) error {
	configs := c.snapshot()
	for i := len(configs) - 1; i >= 0; i-- {
		cfg := configs[i]
		if !cfg.Enabled() || !cfg.StopOnUnload() {
			continue
		}
		lock := c.nameLock(cfg.Name)
		lock.Lock()
		observed, err := c.rt.InspectContainer(ctx, cfg.Name)
		if err == nil && observed.State.Running {
			if err := c.rt.StopContainer(ctx, cfg.Name); err != nil {
				c.log.WithField("container", cfg.Name).WithError(err).Error("stop failed")
			} else {
				c.recordStatus(cfg.Name, "exited")
			}
		}
		lock.Unlock()
	}
	return nil
}

// ListOwned returns the runtime's current view of every managed container,
// including stopped ones. Unmanaged containers are filtered out.
func (c *Controller) ListOwned(ctx context.Context) ([]runtime.ContainerSummary, error) {
	all, err := c.rt.ListContainers(ctx, true)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var owned []runtime.ContainerSummary
	for _, summary := range all {
		if _, ok := c.enforced[summary.Name]; ok {
			owned = append(owned, summary)
		}
	}
	return owned, nil
}

// GetStats returns the last-known status per owned container.
func (c *Controller) GetStats() map[string]Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]Status, len(c.stats))
	for name, s := range c.stats {
		out[name] = s
	}
	return out
}

func (c *Controller) recordStatus(name, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats[name]
	s.Status = status
	s.StatusTs = time.Now()
	s.LastError = ""
	c.stats[name] = s
}

func (c *Controller) recordError(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats[name]
	s.StatusTs = time.Now()
	s.LastError = err.Error()
	c.stats[name] = s
}
