package controller

import (
	"context"
	"time"

	"github.com/stackgen-cli/compose-pilot/internal/runtime"
)

// StartMonitor begins the periodic health monitor. Idempotent; the monitor
// runs until StopMonitor is called or the context is cancelled.
func (c *Controller) StartMonitor(ctx context.Context) {
	c.monitorMu.Lock()
	defer c.monitorMu.Unlock()
	if c.monitorStop != nil {
		return
	}
	stop := make(chan struct{})
	c.monitorStop = stop
	c.log.WithField("interval", c.monitorInterval).Info("starting container monitor")

	go func() {
		ticker := time.NewTicker(c.monitorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.MonitorTick(ctx)
			}
		}
	}()
}

// StopMonitor halts the periodic monitor.
func (c *Controller) StopMonitor() {
	c.monitorMu.Lock()
	defer c.monitorMu.Unlock()
	if c.monitorStop != nil {
		close(c.monitorStop)
		c.monitorStop = nil
	}
}

// MonitorTick checks every monitoring-enabled container and restarts any
// that is not running. A restart failure is logged and recorded; the next
// tick retries. Exported so a tick can be driven directly in tests and by
// the watch command.
func (c *Controller) MonitorTick(ctx context.Context) {
	for _, cfg := range c.snapshot() {
		if !cfg.Enabled() || !cfg.IobMonitoringEnabled {
			continue
		}
		c.monitorOne(ctx, cfg.Name)
	}
}

func (c *Controller) monitorOne(ctx context.Context, name string) {
	log := c.log.WithField("container", name)

	lock := c.nameLock(name)
	lock.Lock()
	defer lock.Unlock()

	observed, err := c.rt.InspectContainer(ctx, name)
	if err != nil {
		log.WithError(err).Warn("monitor inspect failed")
		c.recordError(name, err)
		return
	}

	if !observed.State.Running && !observed.State.Restarting {
		log.WithField("status", observed.State.Status).Warn("container not running, restarting")
		if err := c.rt.RestartContainer(ctx, name); err != nil {
			log.WithError(err).Error("restart failed")
			c.recordError(name, err)
			return
		}
	}
	c.updateStats(ctx, name)
}

// updateStats refreshes the externally visible status snapshot for one
// container.
func (c *Controller) updateStats(ctx context.Context, name string) {
	observed, err := c.rt.InspectContainer(ctx, name)
	if err != nil {
		c.recordError(name, err)
		return
	}

	var stats *runtime.Stats
	if observed.State.Running {
		stats, err = c.rt.ContainerStats(ctx, name)
		if err != nil {
			c.recordError(name, err)
			return
		}
	}

	c.mu.Lock()
	s := c.stats[name]
	s.Status = observed.State.Status
	s.StatusTs = time.Now()
	s.LastError = ""
	if stats != nil {
		s.CPUPercent = stats.CPUPercent
		s.MemUsed = stats.MemUsed
		s.MemMax = stats.MemLimit
	}
	c.stats[name] = s
	c.mu.Unlock()
}
