package worker

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"neomentor/internal/infra"
	"neomentor/internal/media"
	"neomentor/internal/pipeline"
	"neomentor/internal/providers/gemini"
	"neomentor/internal/providers/script"
	"neomentor/internal/providers/video"
	"neomentor/internal/providers/voice"
)

// Keys are the provider credentials after resolving the token store.
type Keys struct {
	Gemini string
	OpenAI string
}

// Collaborators are the long-lived pipeline dependencies of a worker.
type Collaborators struct {
	Script   pipeline.ScriptWriter
	Voice    pipeline.VoiceCloner
	Video    pipeline.VideoGenerator
	Media    *media.Toolkit
	Timeouts pipeline.Timeouts
}

// Pipeline builds a pipeline for one run. The media steps log through the
// run logger so ffmpeg failures land in the run log.
func (c Collaborators) Pipeline(logger zerolog.Logger) (*pipeline.Pipeline, error) {
	cfg := pipeline.Config{
		Script:   c.Script,
		Voice:    c.Voice,
		Video:    c.Video,
		Timeouts: c.Timeouts,
		Logger:   logger,
	}
	if c.Media != nil {
		tk := c.Media.WithLogger(logger)
		cfg.Frames, cfg.Combiner, cfg.Assembler = tk, tk, tk
	}
	return pipeline.New(cfg)
}

// NewCollaborators wires the configured providers. Without a Gemini key the
// video step renders the reference image as a still clip and the script
// comes from the offline writer; without a voice service URL the audio
// collaborator is left out and runs fail as unavailable.
func NewCollaborators(ctx context.Context, cfg *infra.Config, keys Keys, logger zerolog.Logger) (Collaborators, error) {
	tk := media.New(media.Options{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		ExtendMode:  media.ExtendMode(cfg.ExtendMode),
		Logger:      &logger,
	})
	c := Collaborators{Media: tk, Timeouts: pipeline.DefaultTimeouts}
	if cfg.FFmpegTimeout > 0 {
		c.Timeouts.Media = cfg.FFmpegTimeout
	}
	if cfg.VeoMaxWait > 0 && cfg.VeoMaxWait+2*time.Minute > c.Timeouts.Video {
		c.Timeouts.Video = cfg.VeoMaxWait + 2*time.Minute
	}

	client, err := gemini.NewClient(ctx, gemini.Options{
		APIKey:     keys.Gemini,
		HTTPClient: &http.Client{Timeout: 2 * time.Minute},
	})
	switch {
	case errors.Is(err, gemini.ErrMissingAPIKey):
		logger.Warn().Msg("worker: gemini api key missing, using offline script and still clips")
	case err != nil:
		return Collaborators{}, err
	}

	offline := script.NewOfflineWriter()
	onFallback := func(reason string, err error) {
		logger.Warn().Err(err).Str("reason", reason).Msg("worker: script writer fell back to offline template")
	}
	switch strings.ToLower(cfg.ScriptProvider) {
	case "openai":
		w, err := script.NewOpenAIWriter(script.OpenAIOptions{
			APIKey:     keys.OpenAI,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			Fallback:   offline,
			OnFallback: onFallback,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("worker: openai writer unavailable, using offline script")
			c.Script = offline
		} else {
			c.Script = w
		}
	case "gemini":
		if client == nil {
			c.Script = offline
			break
		}
		w, err := script.NewGeminiWriter(script.GeminiOptions{
			Generator:  client.Models,
			Model:      cfg.GeminiModel,
			Fallback:   offline,
			OnFallback: onFallback,
		})
		if err != nil {
			return Collaborators{}, err
		}
		c.Script = w
	default:
		c.Script = offline
	}

	if client != nil {
		veo, err := video.NewVeoGenerator(video.VeoOptions{
			API:          video.ClientAPI{Client: client},
			Model:        cfg.VeoModel,
			PollInterval: cfg.VeoPollInterval,
			MaxWait:      cfg.VeoMaxWait,
			Logger:       logger,
		})
		if err != nil {
			return Collaborators{}, err
		}
		c.Video = veo
	} else {
		c.Video = video.NewStillGenerator(tk)
	}

	if strings.TrimSpace(cfg.VoiceCloneURL) != "" {
		vc, err := voice.NewClient(voice.Options{
			BaseURL:        cfg.VoiceCloneURL,
			Logger:         &logger,
			RequestTimeout: cfg.VoiceCloneTimeout,
		})
		if err != nil {
			return Collaborators{}, err
		}
		c.Voice = vc
	} else {
		logger.Warn().Msg("worker: VOICE_CLONE_URL not set, runs will fail at the audio step")
	}
	return c, nil
}
