package media

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"

	"neomentor/internal/domain"
)

// Strategy names how one segment's audio and video are muxed.
type Strategy string

const (
	// StrategyDirect muxes without knowing durations; the shortest stream wins.
	StrategyDirect Strategy = "direct"
	// StrategyCopy keeps the video stream as is and stops at the audio end.
	StrategyCopy Strategy = "copy"
	// StrategyLoop repeats the video and trims to the audio length.
	StrategyLoop Strategy = "loop"
	// StrategyHold clones the last video frame until the audio ends.
	StrategyHold Strategy = "hold"
)

// Plan is the reconciliation decision for one segment.
type Plan struct {
	Strategy Strategy
	Loops    int
	Video    float64
	Audio    float64
}

// Expected is the duration the combined clip should have, or 0 when unknown.
func (p Plan) Expected() float64 {
	if p.Strategy == StrategyDirect {
		return 0
	}
	return p.Audio
}

// PlanCombine decides how to reconcile a video of videoDur seconds with
// narration of audioDur seconds. Narration is never shortened.
func PlanCombine(videoDur, audioDur float64, mode ExtendMode) Plan {
	p := Plan{Video: videoDur, Audio: audioDur}
	switch {
	case videoDur <= 0 || audioDur <= 0:
		p.Strategy = StrategyDirect
	case audioDur <= videoDur:
		p.Strategy = StrategyCopy
	case mode == ExtendHold:
		p.Strategy = StrategyHold
	default:
		p.Strategy = StrategyLoop
		p.Loops = int(math.Floor(audioDur/videoDur)) + 1
	}
	return p
}

// Args renders the ffmpeg arguments for the plan.
func (p Plan) Args(videoPath, audioPath, outPath string) []string {
	switch p.Strategy {
	case StrategyCopy:
		return []string{
			"-y",
			"-i", videoPath,
			"-i", audioPath,
			"-c:v", "copy",
			"-c:a", "aac",
			"-map", "0:v:0",
			"-map", "1:a:0",
			"-shortest",
			outPath,
		}
	case StrategyLoop:
		return []string{
			"-y",
			"-stream_loop", strconv.Itoa(p.Loops),
			"-i", videoPath,
			"-i", audioPath,
			"-c:v", "libx264",
			"-c:a", "aac",
			"-map", "0:v:0",
			"-map", "1:a:0",
			"-t", formatSeconds(p.Audio),
			"-shortest",
			outPath,
		}
	case StrategyHold:
		return []string{
			"-y",
			"-i", videoPath,
			"-i", audioPath,
			"-filter_complex", "[0:v]tpad=stop_mode=clone:stop_duration=" + formatSeconds(p.Audio-p.Video) + "[v]",
			"-map", "[v]",
			"-map", "1:a:0",
			"-c:v", "libx264",
			"-c:a", "aac",
			"-preset", "medium",
			"-crf", "23",
			"-t", formatSeconds(p.Audio),
			outPath,
		}
	default:
		return []string{
			"-y",
			"-i", videoPath,
			"-i", audioPath,
			"-c:v", "copy",
			"-c:a", "aac",
			"-shortest",
			outPath,
		}
	}
}

func formatSeconds(d float64) string {
	return strconv.FormatFloat(d, 'f', 3, 64)
}

// Mux runs ffmpeg for an already computed plan.
func (t *Toolkit) Mux(ctx context.Context, videoPath, audioPath string, plan Plan, outPath string) error {
	if _, err := t.exec.Run(ctx, t.ffmpeg, plan.Args(videoPath, audioPath, outPath)...); err != nil {
		return fmt.Errorf("media: mux %s: %w", plan.Strategy, err)
	}
	if !fileExists(outPath) {
		return fmt.Errorf("media: mux %s: output %s not written", plan.Strategy, outPath)
	}
	return nil
}

// Combine muxes one segment's video and audio into outPath, stretching the
// video when the narration is longer.
func (t *Toolkit) Combine(ctx context.Context, index int, videoPath, audioPath, outPath string) (domain.CombinedSegment, error) {
	for _, in := range []string{videoPath, audioPath} {
		if !fileExists(in) {
			return domain.CombinedSegment{}, &domain.CombineError{Index: index, Err: fmt.Errorf("input %q: %w", in, os.ErrNotExist)}
		}
	}

	videoDur := t.ProbeDuration(ctx, videoPath)
	audioDur := t.ProbeDuration(ctx, audioPath)
	plan := PlanCombine(videoDur, audioDur, t.extend)
	t.logger.Info().
		Int("segment", index+1).
		Float64("video_duration", videoDur).
		Float64("audio_duration", audioDur).
		Str("strategy", string(plan.Strategy)).
		Msg("media: combining segment")

	if err := t.Mux(ctx, videoPath, audioPath, plan, outPath); err != nil {
		return domain.CombinedSegment{}, &domain.CombineError{Index: index, Err: err}
	}

	duration := plan.Expected()
	if duration == 0 {
		duration = t.ProbeDuration(ctx, outPath)
	}
	return domain.CombinedSegment{Index: index, Path: outPath, Duration: duration}, nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}
