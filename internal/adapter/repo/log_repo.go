package repo

import (
	"context"
	"fmt"
	"time"

	"neomentor/internal/domain"
	"neomentor/internal/infra"
	"neomentor/internal/sqlinline"
)

// LogRepositoryPG stores run log lines in run_logs.
type LogRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewLogRepository(sql infra.SQLExecutor) *LogRepositoryPG {
	return &LogRepositoryPG{sql: sql}
}

func (r *LogRepositoryPG) AppendLog(ctx context.Context, line domain.LogLine) error {
	if line.CreatedAt.IsZero() {
		line.CreatedAt = time.Now().UTC()
	}
	var seq int64
	if err := r.sql.QueryRow(ctx, sqlinline.QInsertRunLog, line.RunID, line.Level, line.Message, line.CreatedAt).Scan(&seq); err != nil {
		return fmt.Errorf("repo: append log: %w", err)
	}
	return nil
}

func (r *LogRepositoryPG) ListLogs(ctx context.Context, runID string) ([]domain.LogLine, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListRunLogs, runID)
	if err != nil {
		return nil, fmt.Errorf("repo: list logs: %w", err)
	}
	defer rows.Close()

	var lines []domain.LogLine
	for rows.Next() {
		var l domain.LogLine
		if err := rows.Scan(&l.RunID, &l.Seq, &l.Level, &l.Message, &l.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

var _ domain.LogRepository = (*LogRepositoryPG)(nil)
