// Package pipeline chains script segments into narrated clips and merges
// them into one video. Each segment's video is seeded with the last frame of
// the previous one, every clip is stretched to its narration and the clips
// are concatenated in order.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"neomentor/internal/domain"
	"neomentor/internal/progress"
)

// ScriptWriter turns a topic into between 1 and count narration segments.
type ScriptWriter interface {
	WriteScript(ctx context.Context, topic string, count int) ([]domain.ScriptSegment, error)
}

// VoiceCloner speaks text in the voice of the reference recording and
// writes a waveform file, returning its path.
type VoiceCloner interface {
	CloneVoice(ctx context.Context, referenceAudio, text, outPath string) (string, error)
}

// VideoRequest describes one clip to generate.
type VideoRequest struct {
	Topic           string
	Index           int
	Text            string
	Image           *domain.ReferenceImage
	DurationSeconds int
	OutputPath      string
}

// VideoGenerator renders a clip and returns the path of the container file.
type VideoGenerator interface {
	GenerateVideo(ctx context.Context, req VideoRequest) (string, error)
}

// FrameExtractor returns the last frame of a video, or nil.
type FrameExtractor interface {
	ExtractLastFrame(ctx context.Context, videoPath, outPath string) *domain.ReferenceImage
}

// Combiner muxes one segment's video and audio.
type Combiner interface {
	Combine(ctx context.Context, index int, videoPath, audioPath, outPath string) (domain.CombinedSegment, error)
}

// Assembler joins combined segments into the final artifact.
type Assembler interface {
	Assemble(ctx context.Context, segments []domain.CombinedSegment, listPath, outPath string) (domain.FinalArtifact, error)
}

// ProgressFunc receives milestones as the run advances.
type ProgressFunc func(ctx context.Context, pct int, stage, message string)

// Timeouts bound each collaborator call. Zero disables the bound.
type Timeouts struct {
	Script time.Duration
	Audio  time.Duration
	Video  time.Duration
	Media  time.Duration
}

// DefaultTimeouts leave room for the video model's polling window.
var DefaultTimeouts = Timeouts{
	Script: 2 * time.Minute,
	Audio:  5 * time.Minute,
	Video:  12 * time.Minute,
	Media:  3 * time.Minute,
}

// Config wires the collaborators of a pipeline.
type Config struct {
	Script    ScriptWriter
	Voice     VoiceCloner
	Video     VideoGenerator
	Frames    FrameExtractor
	Combiner  Combiner
	Assembler Assembler
	Timeouts  Timeouts
	Logger    zerolog.Logger
}

// Pipeline runs one request end to end. It holds no per-run state, so one
// value may serve concurrent runs in separate workspaces.
type Pipeline struct {
	script    ScriptWriter
	voice     VoiceCloner
	video     VideoGenerator
	frames    FrameExtractor
	combiner  Combiner
	assembler Assembler
	timeouts  Timeouts
	logger    zerolog.Logger
}

// New validates that every collaborator is present. A missing one yields a
// *domain.UnavailableError before any segment is attempted.
func New(cfg Config) (*Pipeline, error) {
	missing := []struct {
		name string
		ok   bool
	}{
		{"script", cfg.Script != nil},
		{"audio", cfg.Voice != nil},
		{"video", cfg.Video != nil},
		{"frame", cfg.Frames != nil},
		{"combine", cfg.Combiner != nil},
		{"assembly", cfg.Assembler != nil},
	}
	for _, m := range missing {
		if !m.ok {
			return nil, &domain.UnavailableError{Collaborator: m.name}
		}
	}
	return &Pipeline{
		script:    cfg.Script,
		voice:     cfg.Voice,
		video:     cfg.Video,
		frames:    cfg.Frames,
		combiner:  cfg.Combiner,
		assembler: cfg.Assembler,
		timeouts:  cfg.Timeouts,
		logger:    cfg.Logger,
	}, nil
}

// Input is everything one run needs.
type Input struct {
	Request        Request
	Image          *domain.ReferenceImage
	ReferenceAudio string
	Workspace      Workspace
	Progress       ProgressFunc
}

// Run executes script, chain, combine and assembly in order. Errors are
// reported on the returned run rather than returned, because a failed run
// still carries the artifacts it produced.
func (p *Pipeline) Run(ctx context.Context, in Input) domain.PipelineRun {
	run := domain.PipelineRun{RunID: in.Workspace.RunID, Outcome: domain.OutcomeFailure}
	report := in.Progress
	if report == nil {
		report = func(context.Context, int, string, string) {}
	}
	log := p.logger.With().Str("run_id", run.RunID).Logger()

	if err := validateInput(in); err != nil {
		run.Err = err
		return run
	}

	log.Info().Str("topic", in.Request.Topic).Int("segments", in.Request.SegmentCount).Msg("pipeline: writing script")
	report(ctx, progress.PctStarted, "script", "Writing narration script")
	script, err := p.writeScript(ctx, in.Request)
	if err != nil {
		log.Error().Err(err).Msg("pipeline: script generation failed")
		run.Err = &domain.SegmentError{Index: 0, Stage: domain.StageScript, Err: err}
		return run
	}
	run.Script = script
	if err := saveScript(in.Workspace.ScriptPath(), in.Request.Topic, script); err != nil {
		log.Warn().Err(err).Msg("pipeline: script not saved")
	}

	chain := p.Chain(ctx, ChainInput{
		Topic:          in.Request.Topic,
		Segments:       script,
		Initial:        in.Image,
		ReferenceAudio: in.ReferenceAudio,
		ClipSeconds:    in.Request.ClipSeconds,
		Workspace:      in.Workspace,
		OnSegment: func(done int) {
			report(ctx, progress.SegmentProgress(done, len(script)), fmt.Sprintf("segment_%d", done), fmt.Sprintf("Segment %d of %d generated", done, len(script)))
		},
	})
	run.Pairs = chain.Pairs
	run.Frames = chain.Frames

	var errs []error
	if chain.Err != nil {
		errs = append(errs, chain.Err)
	}

	if err := ctx.Err(); err != nil {
		// Cancelled runs keep what they produced on disk and stop here.
		if !errors.Is(chain.Err, err) {
			errs = append(errs, err)
		}
		run.Err = errors.Join(errs...)
		run.SegmentsLost = len(script)
		return run
	}

	report(ctx, progress.PctSegmentsEnd, "combining", "Combining audio and video")
	for _, pair := range chain.Pairs {
		if !pair.Usable() {
			continue
		}
		mctx, cancel := withTimeout(ctx, p.timeouts.Media)
		seg, err := p.combiner.Combine(mctx, pair.Index, pair.VideoPath, pair.AudioPath, in.Workspace.CombinedPath(pair.Index))
		cancel()
		if err != nil {
			log.Warn().Err(err).Int("segment", pair.Index+1).Msg("pipeline: segment dropped from assembly")
			errs = append(errs, err)
			continue
		}
		run.Combined = append(run.Combined, seg)
	}
	run.SegmentsLost = len(script) - len(run.Combined)

	mctx, cancel := withTimeout(ctx, p.timeouts.Media)
	final, err := p.assembler.Assemble(mctx, run.Combined, in.Workspace.ConcatListPath(), in.Workspace.FinalPath())
	cancel()
	if err != nil {
		log.Error().Err(err).Int("combined", len(run.Combined)).Msg("pipeline: assembly failed")
		errs = append(errs, err)
		run.Err = errors.Join(errs...)
		return run
	}
	run.Final = &final

	switch {
	case len(errs) == 0 && run.SegmentsLost == 0:
		run.Outcome = domain.OutcomeSuccess
	default:
		run.Outcome = domain.OutcomePartialFailure
		run.Err = errors.Join(errs...)
	}
	log.Info().
		Str("outcome", string(run.Outcome)).
		Int("segments_merged", final.SegmentsMerged).
		Str("path", final.Path).
		Msg("pipeline: run finished")
	return run
}

func (p *Pipeline) writeScript(ctx context.Context, req Request) ([]domain.ScriptSegment, error) {
	sctx, cancel := withTimeout(ctx, p.timeouts.Script)
	defer cancel()
	segments, err := p.script.WriteScript(sctx, req.Topic, req.SegmentCount)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ScriptSegment, 0, len(segments))
	for _, s := range segments {
		if len(out) == req.SegmentCount {
			break
		}
		if s.Text == "" {
			continue
		}
		out = append(out, domain.ScriptSegment{Index: len(out), Text: s.Text})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: script writer returned no segments", domain.ErrProviderFailure)
	}
	return out, nil
}

func validateInput(in Input) error {
	if in.Workspace.Dir == "" {
		return fmt.Errorf("%w: workspace is required", domain.ErrInvalidInput)
	}
	if in.Request.Topic == "" || in.Request.SegmentCount < 1 {
		return fmt.Errorf("%w: request not formatted", domain.ErrInvalidInput)
	}
	if in.ReferenceAudio == "" {
		return fmt.Errorf("%w: reference audio is required", domain.ErrInvalidInput)
	}
	if _, err := os.Stat(in.ReferenceAudio); err != nil {
		return fmt.Errorf("%w: reference audio: %w", domain.ErrInvalidInput, err)
	}
	return nil
}

func saveScript(path, topic string, segments []domain.ScriptSegment) error {
	payload, err := json.MarshalIndent(struct {
		Topic    string                 `json:"topic"`
		Segments []domain.ScriptSegment `json:"segments"`
	}{topic, segments}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
