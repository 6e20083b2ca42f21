package services

import (
	"context"
	"log/slog"
)

// EnsureNetworks creates every missing network. A failed create is followed by
// a fresh existence check so that a concurrent creator is not reported as a failure.
func EnsureNetworks(ctx context.Context, engine Engine, logger *slog.Logger, networks ...NetworkName) error {
	for _, network := range networks {
		name := string(network)

		exists, err := engine.NetworkExists(ctx, name)
		if err != nil {
			return newError(ProvisioningFailure, name, err, "Unable to inspect network %s", name)
		}
		if exists {
			continue
		}

		createErr := engine.CreateNetwork(ctx, name)
		if createErr == nil {
			logger.Debug("network ensured", "network", name)
			continue
		}

		if exists, err := engine.NetworkExists(ctx, name); err == nil && exists {
			logger.Debug("network created concurrently", "network", name, "error", createErr)
			continue
		}
		return newError(ProvisioningFailure, name, createErr, "Unable to create network %s", name)
	}
	return nil
}

// EnsureGlobalVolumes creates the full volume set of every group whose label
// has no volumes yet. Groups that already have volumes are left untouched, so
// the call is safe to repeat.
func EnsureGlobalVolumes(ctx context.Context, engine Engine, logger *slog.Logger, groups []ServiceGroup) error {
	for _, group := range groups {
		existing, err := engine.VolumesWithLabel(ctx, group.Label)
		if err != nil {
			return newError(ProvisioningFailure, group.Label, err, "Unable to list volumes of %s", group.Label)
		}
		if len(existing) > 0 {
			continue
		}

		logger.Info("creating volumes", "group", group.Label, "count", len(group.Volumes))
		createErr := engine.CreateVolumes(ctx, group.Label, group.Volumes, false)
		if createErr == nil {
			continue
		}

		// Another bootstrapper may have created the same set; only a complete set counts.
		if again, err := engine.VolumesWithLabel(ctx, group.Label); err == nil && len(again) >= len(group.Volumes) {
			logger.Warn("volume creation failed but the volume set exists; continuing", "group", group.Label, "error", createErr)
			continue
		}
		return newError(ProvisioningFailure, group.Label, createErr, "Unable to create volumes for %s", group.Label)
	}
	return nil
}
