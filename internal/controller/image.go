package controller

import (
	"context"

	"github.com/stackgen-cli/compose-pilot/internal/models"
)

// ensureImage enforces the image policy for one container. With
// iobAutoImageUpdate the image is pulled and its identity compared; the
// returned flag tells the caller whether an existing container must be
// recreated to pick up the new image, and oldID names the superseded image
// so it can be pruned after the recreate. Otherwise an absent image is
// pulled once. A pull failure aborts reconciliation for this container only.
func (c *Controller) ensureImage(ctx context.Context, cfg *models.ContainerConfig) (changed bool, oldID string, err error) {
	if cfg.IobAutoImageUpdate {
		before, err := c.imageID(ctx, cfg.Image)
		if err != nil {
			return false, "", err
		}
		if err := c.rt.PullImage(ctx, cfg.Image); err != nil {
			return false, "", err
		}
		after, err := c.imageID(ctx, cfg.Image)
		if err != nil {
			return false, "", err
		}
		if before != "" && after != "" && before != after {
			return true, before, nil
		}
		return false, "", nil
	}

	id, err := c.imageID(ctx, cfg.Image)
	if err != nil {
		return false, "", err
	}
	if id == "" {
		c.log.WithField("image", cfg.Image).Info("pulling absent image")
		if err := c.rt.PullImage(ctx, cfg.Image); err != nil {
			return false, "", err
		}
	}
	return false, "", nil
}

// imageID resolves a reference to a local image ID, or "" when the image is
// not present locally.
func (c *Controller) imageID(ctx context.Context, ref string) (string, error) {
	images, err := c.rt.ListImages(ctx)
	if err != nil {
		return "", err
	}
	for _, image := range images {
		for _, tag := range image.RepoTags {
			if tag == ref {
				return image.ID, nil
			}
		}
	}
	return "", nil
}
