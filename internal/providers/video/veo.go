// Package video generates one clip per narration segment, either with Veo
// or as an offline still-image render.
package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"neomentor/internal/domain"
	"neomentor/internal/pipeline"
	"neomentor/internal/providers/gemini"
)

const (
	defaultVeoModel     = "veo-2.0-generate-001"
	defaultPollInterval = 30 * time.Second
	defaultMaxWait      = 10 * time.Minute

	// Veo accepts clip lengths between these bounds.
	MinClipSeconds = 5
	MaxClipSeconds = 8
)

// ErrTimeout is returned when an operation is still running after MaxWait.
var ErrTimeout = errors.New("veo: operation did not finish in time")

// API is the part of the genai client the generator drives.
type API interface {
	Start(ctx context.Context, model, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
	Poll(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
	Download(ctx context.Context, video *genai.GeneratedVideo) ([]byte, error)
}

// ClientAPI adapts a genai client to API.
type ClientAPI struct {
	Client *genai.Client
}

func (c ClientAPI) Start(ctx context.Context, model, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return c.Client.Models.GenerateVideos(ctx, model, prompt, image, config)
}

func (c ClientAPI) Poll(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return c.Client.Operations.GetVideosOperation(ctx, op, nil)
}

func (c ClientAPI) Download(ctx context.Context, video *genai.GeneratedVideo) ([]byte, error) {
	if video.Video != nil && len(video.Video.VideoBytes) > 0 {
		return video.Video.VideoBytes, nil
	}
	return c.Client.Files.Download(ctx, genai.NewDownloadURIFromGeneratedVideo(video), nil)
}

type VeoOptions struct {
	API          API
	Model        string
	PollInterval time.Duration
	MaxWait      time.Duration
	Logger       zerolog.Logger
}

// VeoGenerator submits an image-to-video request, polls the long running
// operation and writes the first returned clip to the requested path.
type VeoGenerator struct {
	api      API
	model    string
	interval time.Duration
	maxWait  time.Duration
	logger   zerolog.Logger
}

func NewVeoGenerator(opts VeoOptions) (*VeoGenerator, error) {
	if opts.API == nil {
		return nil, errors.New("veo api client is required")
	}
	g := &VeoGenerator{
		api:      opts.API,
		model:    strings.TrimSpace(opts.Model),
		interval: opts.PollInterval,
		maxWait:  opts.MaxWait,
		logger:   opts.Logger,
	}
	if g.model == "" {
		g.model = defaultVeoModel
	}
	if g.interval <= 0 {
		g.interval = defaultPollInterval
	}
	if g.maxWait <= 0 {
		g.maxWait = defaultMaxWait
	}
	return g, nil
}

// ClampSeconds maps a requested clip length onto what Veo accepts.
func ClampSeconds(seconds int) int32 {
	switch {
	case seconds < MinClipSeconds:
		return MinClipSeconds
	case seconds > MaxClipSeconds:
		return MaxClipSeconds
	default:
		return int32(seconds)
	}
}

func (g *VeoGenerator) GenerateVideo(ctx context.Context, req pipeline.VideoRequest) (string, error) {
	if req.OutputPath == "" {
		return "", fmt.Errorf("%w: output path is required", domain.ErrInvalidInput)
	}
	var image *genai.Image
	if !req.Image.Empty() {
		image = &genai.Image{ImageBytes: req.Image.Data, MIMEType: req.Image.MIMEType}
	}
	config := &genai.GenerateVideosConfig{
		NumberOfVideos:   1,
		DurationSeconds:  genai.Ptr(ClampSeconds(req.DurationSeconds)),
		AspectRatio:      "16:9",
		PersonGeneration: "allow_all",
		EnhancePrompt:    true,
	}
	log := g.logger.With().Int("segment", req.Index+1).Str("model", g.model).Logger()

	op, err := g.api.Start(ctx, g.model, BuildPrompt(req.Topic, req.Index, req.Text), image, config)
	if err != nil {
		return "", gemini.WrapError("generate videos", err)
	}
	log.Info().Str("operation", op.Name).Bool("with_image", image != nil).Msg("veo: operation started")

	op, err = g.wait(ctx, op)
	if err != nil {
		return "", err
	}
	if len(op.Error) > 0 {
		return "", fmt.Errorf("%w: veo operation failed: %v", domain.ErrProviderFailure, op.Error["message"])
	}
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0] == nil {
		reason := "no videos returned"
		if op.Response != nil && len(op.Response.RAIMediaFilteredReasons) > 0 {
			reason = "filtered: " + strings.Join(op.Response.RAIMediaFilteredReasons, "; ")
		}
		return "", fmt.Errorf("%w: veo %s", domain.ErrProviderFailure, reason)
	}
	data, err := g.api.Download(ctx, op.Response.GeneratedVideos[0])
	if err != nil {
		return "", gemini.WrapError("download video", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: veo returned an empty video", domain.ErrProviderFailure)
	}
	if err := writeFile(req.OutputPath, data); err != nil {
		return "", err
	}
	log.Info().Int("bytes", len(data)).Str("path", req.OutputPath).Msg("veo: video saved")
	return req.OutputPath, nil
}

func (g *VeoGenerator) wait(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	deadline := time.Now().Add(g.maxWait)
	timer := time.NewTimer(g.interval)
	defer timer.Stop()
	for !op.Done {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %w after %s", domain.ErrProviderFailure, ErrTimeout, g.maxWait)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
		next, err := g.api.Poll(ctx, op)
		if err != nil {
			return nil, gemini.WrapError("poll operation", err)
		}
		op = next
		timer.Reset(g.interval)
	}
	return op, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("veo: create dir: %w", err)
	}
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("veo: write video: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("veo: write video: %w", err)
	}
	return nil
}

var _ pipeline.VideoGenerator = (*VeoGenerator)(nil)
