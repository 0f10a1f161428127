package media

import (
	"context"
	"fmt"
	"strconv"
)

// MaxReferenceAudioSeconds bounds the voice sample handed to the cloner.
const MaxReferenceAudioSeconds = 30

// NormalizeImage re-encodes any uploaded image as JPEG.
func (t *Toolkit) NormalizeImage(ctx context.Context, inPath, outPath string) error {
	if _, err := t.exec.Run(ctx, t.ffmpeg, "-y", "-i", inPath, "-q:v", "2", "-frames:v", "1", outPath); err != nil {
		return fmt.Errorf("media: normalize image: %w", err)
	}
	if !fileExists(outPath) {
		return fmt.Errorf("media: normalize image: output %s not written", outPath)
	}
	return nil
}

// NormalizeAudio converts an uploaded voice sample to 44.1 kHz stereo
// 16-bit PCM WAV, trimmed to MaxReferenceAudioSeconds.
func (t *Toolkit) NormalizeAudio(ctx context.Context, inPath, outPath string) error {
	_, err := t.exec.Run(ctx, t.ffmpeg,
		"-y",
		"-i", inPath,
		"-t", strconv.Itoa(MaxReferenceAudioSeconds),
		"-ar", "44100",
		"-ac", "2",
		"-c:a", "pcm_s16le",
		outPath,
	)
	if err != nil {
		return fmt.Errorf("media: normalize audio: %w", err)
	}
	if !fileExists(outPath) {
		return fmt.Errorf("media: normalize audio: output %s not written", outPath)
	}
	return nil
}
