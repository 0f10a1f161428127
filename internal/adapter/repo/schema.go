package repo

import (
	"context"
	"fmt"

	"neomentor/internal/infra"
	"neomentor/internal/sqlinline"
)

// EnsureSchema creates the tables the api and worker use. It is safe to run
// on every start.
func EnsureSchema(ctx context.Context, sql infra.SQLExecutor) error {
	for i, stmt := range sqlinline.Schema {
		if _, err := sql.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("repo: schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
