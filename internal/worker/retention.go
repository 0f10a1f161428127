package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"neomentor/internal/domain"
	"neomentor/internal/storage"
)

// Sweeper deletes finished runs whose last update is older than Retention,
// together with their workspace and every stored artifact.
type Sweeper struct {
	Runs      domain.RunRepository
	Artifacts domain.ArtifactRepository
	Stores    storage.Backends
	Workspace *storage.FileStore
	Retention time.Duration
	Logger    zerolog.Logger
}

// Sweep removes expired runs and returns how many were deleted.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	hours := int(s.Retention / time.Hour)
	if hours <= 0 {
		return 0, nil
	}
	expired, err := s.Runs.ListExpired(ctx, hours)
	if err != nil {
		return 0, fmt.Errorf("worker: list expired runs: %w", err)
	}
	removed := 0
	var errs []error
	for _, run := range expired {
		if err := s.remove(ctx, run); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func (s *Sweeper) remove(ctx context.Context, run domain.Run) error {
	artifacts, err := s.Artifacts.ListArtifacts(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("worker: list artifacts of %s: %w", run.ID, err)
	}
	for _, art := range artifacts {
		store, err := s.Stores.Get(art.Backend)
		if err != nil {
			continue
		}
		if err := store.Delete(ctx, art.StorageKey); err != nil {
			s.Logger.Warn().Err(err).Str("run_id", run.ID).Str("key", art.StorageKey).Msg("worker: artifact not deleted")
		}
	}
	if s.Workspace != nil {
		if err := s.Workspace.RemoveAll(run.ID); err != nil {
			return fmt.Errorf("worker: remove workspace of %s: %w", run.ID, err)
		}
	}
	if err := s.Runs.Delete(ctx, run.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("worker: delete run %s: %w", run.ID, err)
	}
	return nil
}

// Schedule registers the sweep on a cron spec such as "@every 1h" and
// starts the scheduler. Stop the returned cron on shutdown.
func (s *Sweeper) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		n, err := s.Sweep(ctx)
		if err != nil {
			s.Logger.Error().Err(err).Int("removed", n).Msg("worker: retention sweep incomplete")
			return
		}
		if n > 0 {
			s.Logger.Info().Int("removed", n).Msg("worker: retention sweep")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("worker: invalid cleanup schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
