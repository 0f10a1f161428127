package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"neomentor/internal/domain"
	"neomentor/internal/sqlinline"
)

type stubExecutor struct {
	row     pgx.Row
	tag     pgconn.CommandTag
	err     error
	queries []string
	args    [][]any
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.queries = append(s.queries, query)
	s.args = append(s.args, args)
	return s.tag, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.queries = append(s.queries, query)
	s.args = append(s.args, args)
	return s.row
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

// valuesRow assigns values positionally into scan destinations.
type valuesRow struct {
	values []any
	err    error
}

func (r valuesRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(r.values))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *int:
			*p = r.values[i].(int)
		case *time.Time:
			*p = r.values[i].(time.Time)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

func runValues(status string) []any {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return []any{
		"run-1", "Photosynthesis", 15, 3, 8, status, 40, "segments", "", "", "", 0,
		"/w/img.jpg", "/w/ref.wav", "/w", "en", "ID", "req-1", now, now,
	}
}

func TestRunRepositoryCreateDefaultsToQueued(t *testing.T) {
	now := time.Now().UTC()
	exec := &stubExecutor{row: valuesRow{values: []any{now, now}}}
	repo := NewRunRepository(exec)
	run := &domain.Run{ID: "run-1", Topic: "Photosynthesis", RequestedSeconds: 15, SegmentCount: 3, ClipSeconds: 8, WorkDir: "/w"}
	if err := repo.Create(context.Background(), run); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if run.Status != domain.RunStatusQueued {
		t.Fatalf("Status = %q, want queued", run.Status)
	}
	if !run.CreatedAt.Equal(now) {
		t.Fatalf("CreatedAt not populated")
	}
	if exec.queries[0] != sqlinline.QInsertRun {
		t.Fatalf("unexpected query %q", exec.queries[0])
	}
	if got := exec.args[0][5]; got != "queued" {
		t.Fatalf("status arg = %v, want queued", got)
	}
}

func TestRunRepositoryGet(t *testing.T) {
	repo := NewRunRepository(&stubExecutor{row: valuesRow{values: runValues("partial")}})
	run, err := repo.Get(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if run.Status != domain.RunStatusPartial || run.Country != "ID" || run.SegmentCount != 3 {
		t.Fatalf("unexpected run %+v", run)
	}
}

func TestRunRepositoryGetNotFound(t *testing.T) {
	repo := NewRunRepository(&stubExecutor{row: valuesRow{err: pgx.ErrNoRows}})
	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRunRepositoryClaimNextEmptyQueue(t *testing.T) {
	exec := &stubExecutor{row: valuesRow{err: pgx.ErrNoRows}}
	repo := NewRunRepository(exec)
	if _, err := repo.ClaimNext(context.Background()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if !strings.Contains(exec.queries[0], "for update skip locked") {
		t.Fatalf("claim query does not skip locked rows")
	}
}

func TestRunRepositoryFinish(t *testing.T) {
	exec := &stubExecutor{tag: pgconn.NewCommandTag("UPDATE 1")}
	repo := NewRunRepository(exec)
	err := repo.Finish(context.Background(), "run-1", domain.RunUpdate{
		Status:         domain.RunStatusCompleted,
		Progress:       140,
		Stage:          "completed",
		FinalKey:       "runs/run-1/final_output.mp4",
		SegmentsMerged: 3,
	})
	if err != nil {
		t.Fatalf("Finish error: %v", err)
	}
	args := exec.args[0]
	if args[1] != "completed" || args[2] != 100 || args[7] != 3 {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestRunRepositoryFinishMissingRun(t *testing.T) {
	repo := NewRunRepository(&stubExecutor{tag: pgconn.NewCommandTag("UPDATE 0")})
	err := repo.Finish(context.Background(), "gone", domain.RunUpdate{Status: domain.RunStatusFailed})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRunRepositoryDeleteMissingRun(t *testing.T) {
	repo := NewRunRepository(&stubExecutor{tag: pgconn.NewCommandTag("DELETE 0")})
	if err := repo.Delete(context.Background(), "gone"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestClampProgress(t *testing.T) {
	cases := map[int]int{-5: 0, 0: 0, 55: 55, 100: 100, 101: 100}
	for in, want := range cases {
		if got := clampProgress(in); got != want {
			t.Fatalf("clampProgress(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestEnsureSchemaRunsEveryStatement(t *testing.T) {
	exec := &stubExecutor{}
	if err := EnsureSchema(context.Background(), exec); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if len(exec.queries) != len(sqlinline.Schema) {
		t.Fatalf("ran %d statements, want %d", len(exec.queries), len(sqlinline.Schema))
	}

	failing := &stubExecutor{err: errors.New("permission denied")}
	if err := EnsureSchema(context.Background(), failing); err == nil || len(failing.queries) != 1 {
		t.Fatalf("EnsureSchema should stop at the first failure: %v", err)
	}
}
