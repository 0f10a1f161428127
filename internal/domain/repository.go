package domain

import "context"

// RunUpdate carries the mutable fields of a run.
type RunUpdate struct {
	Status         RunStatus
	Progress       int
	Stage          string
	Message        string
	Suggestion     string
	FinalKey       string
	SegmentsMerged int
}

// RunRepository persists runs and claims queued ones for workers.
type RunRepository interface {
	Create(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	ListRecent(ctx context.Context, limit int) ([]Run, error)
	ClaimNext(ctx context.Context) (*Run, error)
	UpdateProgress(ctx context.Context, id string, progress int, stage string) error
	Finish(ctx context.Context, id string, update RunUpdate) error
	Delete(ctx context.Context, id string) error
	ListExpired(ctx context.Context, olderThanHours int) ([]Run, error)
}

// LogRepository stores run log lines.
type LogRepository interface {
	AppendLog(ctx context.Context, line LogLine) error
	ListLogs(ctx context.Context, runID string) ([]LogLine, error)
}

// ArtifactRepository records the files a run produced.
type ArtifactRepository interface {
	SaveArtifact(ctx context.Context, artifact Artifact) error
	ListArtifacts(ctx context.Context, runID string) ([]Artifact, error)
}
