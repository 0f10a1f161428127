package video

import (
	"context"
	"fmt"
	"os"

	"neomentor/internal/domain"
	"neomentor/internal/pipeline"
)

// StillRenderer is implemented by media.Toolkit.
type StillRenderer interface {
	RenderStill(ctx context.Context, imagePath string, seconds int, outPath string) error
}

// StillGenerator renders the reference image as a static clip. It stands in
// for Veo when no API key is configured.
type StillGenerator struct {
	renderer StillRenderer
}

func NewStillGenerator(renderer StillRenderer) *StillGenerator {
	return &StillGenerator{renderer: renderer}
}

func (s *StillGenerator) GenerateVideo(ctx context.Context, req pipeline.VideoRequest) (string, error) {
	if req.OutputPath == "" {
		return "", fmt.Errorf("%w: output path is required", domain.ErrInvalidInput)
	}
	seconds := req.DurationSeconds
	if seconds <= 0 {
		seconds = MaxClipSeconds
	}
	imagePath := ""
	if !req.Image.Empty() {
		imagePath = req.Image.Path
		if imagePath == "" {
			imagePath = req.OutputPath + ".ref.jpg"
			if err := os.WriteFile(imagePath, req.Image.Data, 0o644); err != nil {
				return "", fmt.Errorf("still: write reference: %w", err)
			}
			defer os.Remove(imagePath)
		}
	}
	if err := s.renderer.RenderStill(ctx, imagePath, seconds, req.OutputPath); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrProviderFailure, err)
	}
	return req.OutputPath, nil
}

var _ pipeline.VideoGenerator = (*StillGenerator)(nil)
