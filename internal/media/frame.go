package media

import (
	"context"
	"mime"
	"os"
	"path/filepath"

	"neomentor/internal/domain"
)

// ExtractLastFrame decodes one frame from the final second of videoPath
// into outPath. It returns nil when nothing usable was produced.
func (t *Toolkit) ExtractLastFrame(ctx context.Context, videoPath, outPath string) *domain.ReferenceImage {
	_ = os.Remove(outPath)
	_, err := t.exec.Run(ctx, t.ffmpeg,
		"-y",
		"-sseof", "-1",
		"-i", videoPath,
		"-update", "1",
		"-q:v", "1",
		"-vframes", "1",
		outPath,
	)
	if err != nil {
		t.logger.Warn().Err(err).Str("path", videoPath).Msg("media: extract last frame failed")
		return nil
	}
	data, err := os.ReadFile(outPath)
	if err != nil || len(data) == 0 {
		t.logger.Warn().Str("path", outPath).Msg("media: extracted frame missing")
		return nil
	}
	return &domain.ReferenceImage{
		Data:       data,
		MIMEType:   mimeForImage(outPath),
		Provenance: domain.ProvenanceExtractedFrame,
		Path:       outPath,
	}
}

func mimeForImage(path string) string {
	if m := mime.TypeByExtension(filepath.Ext(path)); m != "" {
		return m
	}
	return "image/jpeg"
}
