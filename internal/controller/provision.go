package controller

import (
	"context"

	"github.com/stackgen-cli/compose-pilot/internal/models"
)

// provision ensures the container's prerequisites exist before create or
// recreate: a custom network for its network mode and a named volume per
// volume mount, seeding freshly created volumes when the mount asks for it.
func (c *Controller) provision(ctx context.Context, cfg *models.ContainerConfig) error {
	if isCustomNetworkMode(cfg.NetworkMode) {
		if err := c.ensureNetwork(ctx, cfg.NetworkMode); err != nil {
			return err
		}
	}
	for _, mount := range cfg.Mounts {
		if mount.Type != "volume" || mount.Source == "" {
			continue
		}
		if err := c.ensureVolume(ctx, mount); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) ensureNetwork(ctx context.Context, name string) error {
	networks, err := c.rt.ListNetworks(ctx)
	if err != nil {
		return err
	}
	for _, existing := range networks {
		if existing == name {
			return nil
		}
	}
	c.log.WithField("network", name).Info("creating network")
	return c.rt.CreateNetwork(ctx, name)
}

// ensureVolume creates the mount's volume when missing. A newly created
// volume with an auto-copy source is seeded once; a pre-existing volume is
// re-seeded only when the force flag was set.
func (c *Controller) ensureVolume(ctx context.Context, mount models.Mount) error {
	volumes, err := c.rt.ListVolumes(ctx)
	if err != nil {
		return err
	}
	exists := false
	for _, existing := range volumes {
		if existing == mount.Source {
			exists = true
			break
		}
	}

	if !exists {
		c.log.WithField("volume", mount.Source).Info("creating volume")
		if err := c.rt.CreateVolume(ctx, mount.Source); err != nil {
			return err
		}
		if mount.IobAutoCopyFrom != "" {
			return c.rt.CopyToVolume(ctx, mount.IobAutoCopyFrom, mount.Source)
		}
		return nil
	}

	if mount.IobAutoCopyFrom != "" && mount.IobAutoCopyFromForce {
		c.log.WithField("volume", mount.Source).Info("forced re-seed of existing volume")
		return c.rt.CopyToVolume(ctx, mount.IobAutoCopyFrom, mount.Source)
	}
	return nil
}
