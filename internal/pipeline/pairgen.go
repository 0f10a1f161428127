package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"neomentor/internal/domain"
)

// generatePair produces the audio then the video of one segment. Video is
// never requested unless the audio exists on disk. A video failure leaves the
// audio file in place but the pair is not usable.
func (p *Pipeline) generatePair(ctx context.Context, topic string, seg domain.ScriptSegment, image *domain.ReferenceImage, refAudio string, clipSeconds int, ws Workspace) (domain.SegmentArtifactPair, error) {
	pair := domain.SegmentArtifactPair{Index: seg.Index, Status: domain.PairPending}
	log := p.logger.With().Str("run_id", ws.RunID).Int("segment", seg.Index+1).Logger()

	actx, cancel := withTimeout(ctx, p.timeouts.Audio)
	audioPath, err := p.voice.CloneVoice(actx, refAudio, seg.Text, ws.AudioPath(seg.Index))
	cancel()
	if err == nil && !nonEmptyFile(audioPath) {
		err = fmt.Errorf("audio output %q missing", audioPath)
	}
	if err != nil {
		pair.Status = domain.PairFailed
		log.Error().Err(err).Msg("pipeline: audio generation failed, skipping video")
		return pair, &domain.SegmentError{Index: seg.Index, Stage: domain.StageAudio, Err: err}
	}
	pair.AudioPath = audioPath
	pair.Status = domain.PairAudioDone
	log.Info().Str("path", audioPath).Msg("pipeline: audio generated")

	vctx, cancel := withTimeout(ctx, p.timeouts.Video)
	videoPath, err := p.video.GenerateVideo(vctx, VideoRequest{
		Topic:           topic,
		Index:           seg.Index,
		Text:            seg.Text,
		Image:           image,
		DurationSeconds: clipSeconds,
		OutputPath:      ws.VideoPath(seg.Index),
	})
	cancel()
	if err == nil {
		err = checkVideo(videoPath)
	}
	if err != nil {
		pair.Status = domain.PairFailed
		log.Error().Err(err).Str("audio", audioPath).Msg("pipeline: video generation failed")
		return pair, &domain.SegmentError{Index: seg.Index, Stage: domain.StageVideo, Err: err}
	}
	pair.VideoPath = videoPath
	pair.Status = domain.PairVideoDone
	log.Info().Str("path", videoPath).Msg("pipeline: video generated")
	return pair, nil
}

func checkVideo(path string) error {
	if !nonEmptyFile(path) {
		return fmt.Errorf("video output %q missing", path)
	}
	if !strings.EqualFold(filepath.Ext(path), ".mp4") {
		return fmt.Errorf("video output %q is not an mp4 container", path)
	}
	return nil
}

func nonEmptyFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}
