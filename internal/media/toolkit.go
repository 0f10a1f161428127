// Package media wraps ffmpeg and ffprobe for duration probing, frame
// extraction, audio/video muxing, concatenation and upload normalization.
package media

import (
	"strings"

	"github.com/rs/zerolog"

	"neomentor/internal/infra"
)

// ExtendMode selects how a video shorter than its narration is stretched.
type ExtendMode string

const (
	// ExtendLoop repeats the clip and trims the result to the audio length.
	ExtendLoop ExtendMode = "loop"
	// ExtendHold freezes the last frame until the audio ends.
	ExtendHold ExtendMode = "hold"
)

// Options configures a Toolkit.
type Options struct {
	FFmpegPath  string
	FFprobePath string
	ExtendMode  ExtendMode
	Executor    Executor
	Logger      *infra.Logger
}

// Toolkit runs the media steps of the pipeline.
type Toolkit struct {
	ffmpeg  string
	ffprobe string
	extend  ExtendMode
	exec    Executor
	logger  zerolog.Logger
}

// New builds a Toolkit, defaulting to the binaries found on PATH.
func New(opts Options) *Toolkit {
	t := &Toolkit{
		ffmpeg:  strings.TrimSpace(opts.FFmpegPath),
		ffprobe: strings.TrimSpace(opts.FFprobePath),
		extend:  opts.ExtendMode,
		exec:    opts.Executor,
		logger:  zerolog.Nop(),
	}
	if t.ffmpeg == "" {
		t.ffmpeg = "ffmpeg"
	}
	if t.ffprobe == "" {
		t.ffprobe = "ffprobe"
	}
	if t.extend != ExtendHold {
		t.extend = ExtendLoop
	}
	if t.exec == nil {
		t.exec = CommandExecutor{}
	}
	if opts.Logger != nil {
		t.logger = *opts.Logger
	}
	return t
}

// WithLogger returns a copy of t that logs through logger.
func (t *Toolkit) WithLogger(logger zerolog.Logger) *Toolkit {
	clone := *t
	clone.logger = logger
	return &clone
}
