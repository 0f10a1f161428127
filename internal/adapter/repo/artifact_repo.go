package repo

import (
	"context"
	"fmt"

	"neomentor/internal/domain"
	"neomentor/internal/infra"
	"neomentor/internal/sqlinline"
)

// ArtifactRepositoryPG records produced files in run_artifacts.
type ArtifactRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewArtifactRepository(sql infra.SQLExecutor) *ArtifactRepositoryPG {
	return &ArtifactRepositoryPG{sql: sql}
}

// SaveArtifact inserts or replaces the artifact of the same kind.
func (r *ArtifactRepositoryPG) SaveArtifact(ctx context.Context, a domain.Artifact) error {
	row := r.sql.QueryRow(ctx, sqlinline.QUpsertRunArtifact, a.RunID, string(a.Kind), a.StorageKey, a.Backend, a.MIME, a.Bytes)
	if err := row.Scan(&a.CreatedAt); err != nil {
		return fmt.Errorf("repo: save artifact %s: %w", a.Kind, err)
	}
	return nil
}

func (r *ArtifactRepositoryPG) ListArtifacts(ctx context.Context, runID string) ([]domain.Artifact, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListRunArtifacts, runID)
	if err != nil {
		return nil, fmt.Errorf("repo: list artifacts: %w", err)
	}
	defer rows.Close()

	var out []domain.Artifact
	for rows.Next() {
		var (
			a    domain.Artifact
			kind string
		)
		if err := rows.Scan(&a.RunID, &kind, &a.StorageKey, &a.Backend, &a.MIME, &a.Bytes, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Kind = domain.ArtifactKind(kind)
		out = append(out, a)
	}
	return out, rows.Err()
}

var _ domain.ArtifactRepository = (*ArtifactRepositoryPG)(nil)
