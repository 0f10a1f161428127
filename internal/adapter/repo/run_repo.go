package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"neomentor/internal/domain"
	"neomentor/internal/infra"
	"neomentor/internal/sqlinline"
)

// RunRepositoryPG implements domain.RunRepository on top of the audited SQL runner.
type RunRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewRunRepository creates a run repository backed by PostgreSQL.
func NewRunRepository(sql infra.SQLExecutor) *RunRepositoryPG {
	return &RunRepositoryPG{sql: sql}
}

// Create inserts a queued run and fills its timestamps.
func (r *RunRepositoryPG) Create(ctx context.Context, run *domain.Run) error {
	if run.Status == "" {
		run.Status = domain.RunStatusQueued
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertRun,
		run.ID,
		run.Topic,
		run.RequestedSeconds,
		run.SegmentCount,
		run.ClipSeconds,
		string(run.Status),
		run.ImagePath,
		run.AudioPath,
		run.WorkDir,
		run.Locale,
		run.Country,
		run.RequestID,
	)
	if err := row.Scan(&run.CreatedAt, &run.UpdatedAt); err != nil {
		return fmt.Errorf("repo: insert run: %w", err)
	}
	return nil
}

// Get fetches a run by its identifier.
func (r *RunRepositoryPG) Get(ctx context.Context, id string) (*domain.Run, error) {
	run, err := scanRun(r.sql.QueryRow(ctx, sqlinline.QSelectRun, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("repo: get run: %w", err)
	}
	return run, nil
}

// ListRecent returns the newest runs first.
func (r *RunRepositoryPG) ListRecent(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return r.list(ctx, sqlinline.QListRecentRuns, limit)
}

// ClaimNext atomically moves the oldest queued run to running. It returns
// domain.ErrNotFound when the queue is empty.
func (r *RunRepositoryPG) ClaimNext(ctx context.Context) (*domain.Run, error) {
	run, err := scanRun(r.sql.QueryRow(ctx, sqlinline.QWorkerClaimRun))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("repo: claim run: %w", err)
	}
	return run, nil
}

// UpdateProgress raises the stored progress; it never moves backwards.
func (r *RunRepositoryPG) UpdateProgress(ctx context.Context, id string, progress int, stage string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpdateRunProgress, id, clampProgress(progress), stage)
	return err
}

// Finish stores the terminal state of a run.
func (r *RunRepositoryPG) Finish(ctx context.Context, id string, update domain.RunUpdate) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QFinishRun,
		id,
		string(update.Status),
		clampProgress(update.Progress),
		update.Stage,
		update.Message,
		update.Suggestion,
		update.FinalKey,
		update.SegmentsMerged,
	)
	if err != nil {
		return fmt.Errorf("repo: finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the run row; logs and artifacts cascade.
func (r *RunRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteRun, id)
	if err != nil {
		return fmt.Errorf("repo: delete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListExpired returns terminal runs untouched for longer than the given hours.
func (r *RunRepositoryPG) ListExpired(ctx context.Context, olderThanHours int) ([]domain.Run, error) {
	return r.list(ctx, sqlinline.QListExpiredRuns, olderThanHours)
}

func (r *RunRepositoryPG) list(ctx context.Context, query string, arg any) ([]domain.Run, error) {
	rows, err := r.sql.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("repo: list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("repo: scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanRun(row pgx.Row) (*domain.Run, error) {
	var (
		run    domain.Run
		status string
	)
	if err := row.Scan(
		&run.ID,
		&run.Topic,
		&run.RequestedSeconds,
		&run.SegmentCount,
		&run.ClipSeconds,
		&status,
		&run.Progress,
		&run.Stage,
		&run.Message,
		&run.Suggestion,
		&run.FinalKey,
		&run.SegmentsMerged,
		&run.ImagePath,
		&run.AudioPath,
		&run.WorkDir,
		&run.Locale,
		&run.Country,
		&run.RequestID,
		&run.CreatedAt,
		&run.UpdatedAt,
	); err != nil {
		return nil, err
	}
	run.Status = domain.RunStatus(status)
	return &run, nil
}

func clampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

var _ domain.RunRepository = (*RunRepositoryPG)(nil)
