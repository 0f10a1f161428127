// Package worker claims queued runs, executes the pipeline for each one and
// stores the outcome, the uploaded artifacts and the run log.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"neomentor/internal/domain"
	"neomentor/internal/pipeline"
	"neomentor/internal/progress"
	"neomentor/internal/storage"
)

const (
	defaultPollInterval = 2 * time.Second
	uploadPrefix        = "runs/"
)

// PipelineFactory builds a pipeline whose collaborators log through logger.
type PipelineFactory func(logger zerolog.Logger) (*pipeline.Pipeline, error)

// Worker processes runs one at a time.
type Worker struct {
	Runs      domain.RunRepository
	Logs      domain.LogRepository
	Artifacts domain.ArtifactRepository
	Uploads   storage.ObjectStore
	Workspace *storage.FileStore
	Publisher progress.Publisher
	Pipeline  PipelineFactory
	Logger    zerolog.Logger

	// RunLogger returns the logger a run writes through; every line must
	// reach w. Defaults to a JSON logger on w alone.
	RunLogger    func(w io.Writer) zerolog.Logger
	PollInterval time.Duration
}

// Run polls for queued runs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	interval := w.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	w.Logger.Info().Dur("poll_interval", interval).Msg("worker: started")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		run, err := w.Runs.ClaimNext(ctx)
		switch {
		case err == nil:
			w.Process(ctx, run)
			continue
		case errors.Is(err, domain.ErrNotFound):
		case errors.Is(err, context.Canceled):
			return err
		default:
			w.Logger.Error().Err(err).Msg("worker: failed to claim run")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// Process executes one claimed run and records its terminal state.
func (w *Worker) Process(ctx context.Context, run *domain.Run) domain.Report {
	rec := progress.NewRecorder(run.ID, w.Publisher, w.Logs, w.Runs)
	log := w.runLogger(rec).With().Str("run_id", run.ID).Logger()
	log.Info().Str("topic", run.Topic).Int("segments", run.SegmentCount).Msg("worker: picked run")
	rec.Progress(ctx, progress.PctStarted, "processing", "Processing started")

	result, ws := w.execute(ctx, run, rec, log)
	report := pipeline.Report(result)
	// A shutdown mid-run still records the outcome.
	ctx = context.WithoutCancel(ctx)

	update := domain.RunUpdate{
		Status:         result.Outcome.RunStatus(),
		Progress:       progress.PctCompleted,
		Stage:          "completed",
		Message:        report.Message,
		Suggestion:     report.Suggestion,
		SegmentsMerged: report.SegmentsMerged,
	}
	if update.Status == domain.RunStatusFailed {
		update.Stage = "failed"
	}

	if result.Final != nil {
		rec.Progress(ctx, progress.PctProcessed, "processed", "Processing complete")
		rec.Progress(ctx, progress.PctUploading, "uploading", "Uploading final video")
		key, err := w.upload(ctx, run.ID, result.Final.Path, "video/mp4", domain.ArtifactFinalVideo)
		if err != nil {
			log.Error().Err(err).Msg("worker: final video upload failed")
		} else {
			update.FinalKey = key
		}
	}
	if report.Details != "" {
		log.Warn().Str("details", report.Details).Msg("worker: run finished with lost segments")
	}
	w.recordIntermediates(ctx, ws, result, log)

	log.Info().
		Str("status", string(update.Status)).
		Int("segments_merged", update.SegmentsMerged).
		Str("final_key", update.FinalKey).
		Msg("worker: run finished")
	rec.Progress(ctx, progress.PctUploadingLogs, "uploading_logs", "Uploading logs")
	if err := w.uploadLog(ctx, run.ID, rec.Text()); err != nil {
		w.Logger.Error().Err(err).Str("run_id", run.ID).Msg("worker: run log upload failed")
	}

	// The terminal state is stored before the final event so clients that
	// re-read the run after the event see it.
	if err := w.Runs.Finish(ctx, run.ID, update); err != nil {
		w.Logger.Error().Err(err).Str("run_id", run.ID).Msg("worker: failed to store outcome")
	}
	rec.Progress(ctx, progress.PctCompleted, update.Stage, report.Message)
	if n := rec.Failures(); n > 0 {
		w.Logger.Warn().Int("failures", n).Str("run_id", run.ID).Msg("worker: some log or progress writes were lost")
	}
	return report
}

func (w *Worker) execute(ctx context.Context, run *domain.Run, rec *progress.Recorder, log zerolog.Logger) (domain.PipelineRun, pipeline.Workspace) {
	failed := domain.PipelineRun{RunID: run.ID, Outcome: domain.OutcomeFailure}
	ws, err := w.workspace(run)
	if err != nil {
		log.Error().Err(err).Msg("worker: workspace unavailable")
		failed.Err = err
		return failed, ws
	}
	p, err := w.Pipeline(log)
	if err != nil {
		log.Error().Err(err).Msg("worker: pipeline unavailable")
		failed.Err = err
		return failed, ws
	}
	image, err := loadReferenceImage(run.ImagePath)
	if err != nil {
		log.Warn().Err(err).Msg("worker: reference image ignored")
	}
	return p.Run(ctx, pipeline.Input{
		Request: pipeline.Request{
			Topic:        run.Topic,
			Seconds:      run.RequestedSeconds,
			SegmentCount: run.SegmentCount,
			ClipSeconds:  run.ClipSeconds,
		},
		Image:          image,
		ReferenceAudio: run.AudioPath,
		Workspace:      ws,
		Progress:       rec.Progress,
	}), ws
}

func (w *Worker) workspace(run *domain.Run) (pipeline.Workspace, error) {
	if run.WorkDir != "" {
		if err := os.MkdirAll(run.WorkDir, 0o755); err != nil {
			return pipeline.Workspace{}, err
		}
		return pipeline.Workspace{RunID: run.ID, Dir: run.WorkDir}, nil
	}
	return pipeline.NewWorkspace(w.Workspace.BasePath(), run.ID)
}

func (w *Worker) runLogger(rec io.Writer) zerolog.Logger {
	if w.RunLogger != nil {
		return w.RunLogger(rec)
	}
	return zerolog.New(rec).With().Timestamp().Logger()
}

// loadReferenceImage reads the normalized upload. A run without an image
// starts its chain from text alone.
func loadReferenceImage(path string) (*domain.ReferenceImage, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("worker: reference image %s is empty", path)
	}
	return &domain.ReferenceImage{
		Data:       data,
		MIMEType:   "image/jpeg",
		Provenance: domain.ProvenanceUserSupplied,
		Path:       path,
	}, nil
}

func (w *Worker) upload(ctx context.Context, runID, path, contentType string, kind domain.ArtifactKind) (string, error) {
	key, size, err := storage.PutFile(ctx, w.Uploads, uploadPrefix+runID+"/"+filepath.Base(path), path, contentType)
	if err != nil {
		return "", err
	}
	return key, w.Artifacts.SaveArtifact(ctx, domain.Artifact{
		RunID:      runID,
		Kind:       kind,
		StorageKey: key,
		Backend:    w.Uploads.Backend(),
		MIME:       contentType,
		Bytes:      size,
	})
}

func (w *Worker) uploadLog(ctx context.Context, runID string, text []byte) error {
	key, err := w.Uploads.Put(ctx, uploadPrefix+runID+"/run.log", bytes.NewReader(text), int64(len(text)), "text/plain")
	if err != nil {
		return err
	}
	return w.Artifacts.SaveArtifact(ctx, domain.Artifact{
		RunID:      runID,
		Kind:       domain.ArtifactRunLog,
		StorageKey: key,
		Backend:    w.Uploads.Backend(),
		MIME:       "text/plain",
		Bytes:      int64(len(text)),
	})
}

// recordIntermediates registers the per-segment files left in the
// workspace so they can be listed and downloaded with the run.
func (w *Worker) recordIntermediates(ctx context.Context, ws pipeline.Workspace, result domain.PipelineRun, log zerolog.Logger) {
	if w.Workspace == nil || ws.Dir == "" {
		return
	}
	save := func(kind domain.ArtifactKind, path, mime string) {
		if path == "" {
			return
		}
		info, err := os.Stat(path)
		if err != nil || info.Size() == 0 {
			return
		}
		key, err := w.Workspace.Key(path)
		if err != nil {
			log.Debug().Err(err).Str("path", path).Msg("worker: file outside workspace")
			return
		}
		if err := w.Artifacts.SaveArtifact(ctx, domain.Artifact{
			RunID:      ws.RunID,
			Kind:       kind,
			StorageKey: key,
			Backend:    w.Workspace.Backend(),
			MIME:       mime,
			Bytes:      info.Size(),
		}); err != nil {
			log.Warn().Err(err).Str("kind", string(kind)).Msg("worker: artifact not recorded")
		}
	}
	for _, pair := range result.Pairs {
		n := pair.Index + 1
		save(domain.IntermediateVideo(n), pair.VideoPath, "video/mp4")
		save(domain.IntermediateAudio(n), pair.AudioPath, "audio/wav")
		save(domain.Frame(n), ws.FramePath(pair.Index), "image/jpeg")
	}
}
