package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"neomentor/internal/domain"
)

// Memory keeps runs, logs and artifacts in process. The CLI uses it to run
// the worker flow without PostgreSQL.
type Memory struct {
	mu        sync.Mutex
	now       func() time.Time
	seq       int64
	order     map[string]int64
	runs      map[string]*domain.Run
	logs      map[string][]domain.LogLine
	artifacts map[string]map[domain.ArtifactKind]domain.Artifact
}

func NewMemory() *Memory {
	return &Memory{
		now:       time.Now,
		order:     map[string]int64{},
		runs:      map[string]*domain.Run{},
		logs:      map[string][]domain.LogLine{},
		artifacts: map[string]map[domain.ArtifactKind]domain.Artifact{},
	}
}

func (m *Memory) Create(_ context.Context, run *domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.Status == "" {
		run.Status = domain.RunStatusQueued
	}
	now := m.now().UTC()
	run.CreatedAt, run.UpdatedAt = now, now
	cp := *run
	m.seq++
	m.order[run.ID] = m.seq
	m.runs[run.ID] = &cp
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *run
	return &cp, nil
}

// sorted returns copies ordered by creation, then reordered stably by less.
func (m *Memory) sorted(less func(a, b *domain.Run) bool) []domain.Run {
	out := make([]domain.Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] < m.order[out[j].ID] })
	sort.SliceStable(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	return out
}

func (m *Memory) ListRecent(_ context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sorted(func(a, b *domain.Run) bool { return m.order[a.ID] > m.order[b.ID] })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) ClaimNext(_ context.Context) (*domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	queued := m.sorted(func(a, b *domain.Run) bool { return false })
	for _, r := range queued {
		if r.Status != domain.RunStatusQueued {
			continue
		}
		run := m.runs[r.ID]
		run.Status = domain.RunStatusRunning
		run.Stage = "processing"
		run.Progress = max(run.Progress, 25)
		run.UpdatedAt = m.now().UTC()
		cp := *run
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *Memory) UpdateProgress(_ context.Context, id string, progress int, stage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return domain.ErrNotFound
	}
	run.Progress = max(run.Progress, clampProgress(progress))
	run.Stage = stage
	run.UpdatedAt = m.now().UTC()
	return nil
}

func (m *Memory) Finish(_ context.Context, id string, u domain.RunUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return domain.ErrNotFound
	}
	run.Status = u.Status
	run.Progress = clampProgress(u.Progress)
	run.Stage = u.Stage
	run.Message = u.Message
	run.Suggestion = u.Suggestion
	if u.FinalKey != "" {
		run.FinalKey = u.FinalKey
	}
	run.SegmentsMerged = u.SegmentsMerged
	run.UpdatedAt = m.now().UTC()
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.runs, id)
	delete(m.order, id)
	delete(m.logs, id)
	delete(m.artifacts, id)
	return nil
}

func (m *Memory) ListExpired(_ context.Context, olderThanHours int) ([]domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-time.Duration(olderThanHours) * time.Hour)
	var out []domain.Run
	for _, r := range m.sorted(func(a, b *domain.Run) bool { return a.UpdatedAt.Before(b.UpdatedAt) }) {
		if r.Status.Terminal() && r.UpdatedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) AppendLog(_ context.Context, line domain.LogLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	line.Seq = int64(len(m.logs[line.RunID]) + 1)
	if line.CreatedAt.IsZero() {
		line.CreatedAt = m.now().UTC()
	}
	m.logs[line.RunID] = append(m.logs[line.RunID], line)
	return nil
}

func (m *Memory) ListLogs(_ context.Context, runID string) ([]domain.LogLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.LogLine(nil), m.logs[runID]...), nil
}

func (m *Memory) SaveArtifact(_ context.Context, a domain.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.artifacts[a.RunID] == nil {
		m.artifacts[a.RunID] = map[domain.ArtifactKind]domain.Artifact{}
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = m.now().UTC()
	}
	m.artifacts[a.RunID][a.Kind] = a
	return nil
}

func (m *Memory) ListArtifacts(_ context.Context, runID string) ([]domain.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Artifact, 0, len(m.artifacts[runID]))
	for _, a := range m.artifacts[runID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}

var (
	_ domain.RunRepository      = (*Memory)(nil)
	_ domain.LogRepository      = (*Memory)(nil)
	_ domain.ArtifactRepository = (*Memory)(nil)
)
