package media

import (
	"context"
	"fmt"
	"strconv"
)

// StillSize is the frame size of rendered placeholder clips.
const StillSize = "1280x720"

// RenderStill encodes a silent H.264 clip of the given length that shows
// imagePath, or a plain background when imagePath is empty.
func (t *Toolkit) RenderStill(ctx context.Context, imagePath string, seconds int, outPath string) error {
	if seconds <= 0 {
		return fmt.Errorf("media: render still: invalid length %d", seconds)
	}
	dur := strconv.Itoa(seconds)
	args := []string{"-y"}
	if imagePath != "" {
		args = append(args, "-loop", "1", "-i", imagePath)
	} else {
		args = append(args, "-f", "lavfi", "-i", "color=c=0x1d3557:s="+StillSize+":r=24")
	}
	args = append(args,
		"-t", dur,
		"-vf", "scale="+StillSize+":force_original_aspect_ratio=decrease,pad="+StillSize+":(ow-iw)/2:(oh-ih)/2,format=yuv420p",
		"-c:v", "libx264",
		"-r", "24",
		"-an",
		outPath,
	)
	if _, err := t.exec.Run(ctx, t.ffmpeg, args...); err != nil {
		return fmt.Errorf("media: render still: %w", err)
	}
	if !fileExists(outPath) {
		return fmt.Errorf("media: render still: output %s not written", outPath)
	}
	return nil
}
