package pipeline

import (
	"context"

	"neomentor/internal/domain"
)

// ChainInput drives one chain over the script.
type ChainInput struct {
	Topic          string
	Segments       []domain.ScriptSegment
	Initial        *domain.ReferenceImage
	ReferenceAudio string
	ClipSeconds    int
	Workspace      Workspace
	// OnSegment is called with the number of completed segments.
	OnSegment func(done int)
}

// ChainResult holds the pairs in segment order. Err is the
// *domain.SegmentError that stopped the chain, if any; the pair at that
// index is present and marked failed. A chain cancelled between segments
// reports the context error instead and has no pair for the next index.
type ChainResult struct {
	Pairs  []domain.SegmentArtifactPair
	Frames []string
	Err    error
}

// Chain generates segments strictly in order. The reference image is threaded
// through the loop: segment 0 gets the initial image, each later segment the
// last frame of the previous video, or the initial image again when no frame
// could be extracted.
func (p *Pipeline) Chain(ctx context.Context, in ChainInput) ChainResult {
	var res ChainResult
	current := in.Initial
	for i, seg := range in.Segments {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		pair, err := p.generatePair(ctx, in.Topic, seg, current, in.ReferenceAudio, in.ClipSeconds, in.Workspace)
		res.Pairs = append(res.Pairs, pair)
		if err != nil {
			res.Err = err
			return res
		}
		if in.OnSegment != nil {
			in.OnSegment(i + 1)
		}
		if i == len(in.Segments)-1 {
			break
		}
		current = p.nextReference(ctx, pair, in)
		if current != nil && current.Provenance == domain.ProvenanceExtractedFrame {
			res.Frames = append(res.Frames, current.Path)
		}
	}
	return res
}

// nextReference never fails the chain; continuity is best effort.
func (p *Pipeline) nextReference(ctx context.Context, pair domain.SegmentArtifactPair, in ChainInput) *domain.ReferenceImage {
	fctx, cancel := withTimeout(ctx, p.timeouts.Media)
	defer cancel()
	frame := p.frames.ExtractLastFrame(fctx, pair.VideoPath, in.Workspace.FramePath(pair.Index))
	if frame.Empty() {
		p.logger.Warn().
			Str("run_id", in.Workspace.RunID).
			Int("segment", pair.Index+1).
			Msg("pipeline: frame extraction failed, reusing initial image")
		return in.Initial
	}
	return frame
}
