package pipeline

import (
	"context"
	"errors"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"neomentor/internal/domain"
)

func TestNewRejectsMissingCollaborators(t *testing.T) {
	h := newHarness(t, 6, 5)
	_, err := New(Config{Script: h.script, Voice: h.voice, Frames: h.frames, Combiner: h.combiner, Assembler: h.assembler})
	if !errors.Is(err, domain.ErrCollaboratorUnavailable) {
		t.Fatalf("err = %v, want ErrCollaboratorUnavailable", err)
	}
	var unavailable *domain.UnavailableError
	if !errors.As(err, &unavailable) || unavailable.Collaborator != "video" {
		t.Fatalf("err = %#v, want video unavailable", err)
	}
	if len(h.voice.calls) != 0 {
		t.Fatalf("no segment should start before construction succeeds")
	}

	if _, err := New(Config{Video: h.video}); err == nil || !strings.Contains(err.Error(), "script") {
		t.Fatalf("err = %v, want script unavailable", err)
	}
}

func TestRunAllSegmentsStretchedToNarration(t *testing.T) {
	h := newHarness(t, 6, 5)
	run := h.run(t, 3)

	if run.Outcome != domain.OutcomeSuccess || run.Err != nil {
		t.Fatalf("outcome = %s err = %v, want success", run.Outcome, run.Err)
	}
	if len(run.Combined) != 3 {
		t.Fatalf("combined = %d, want 3", len(run.Combined))
	}
	for i, seg := range run.Combined {
		if seg.Index != i || seg.Duration != 6.0 {
			t.Fatalf("combined[%d] = %+v, want index %d duration 6.0", i, seg, i)
		}
	}
	if got := h.ledger.get(run.Final.Path); math.Abs(got-18.0) > 0.2 {
		t.Fatalf("final duration = %.2f, want 18.0", got)
	}
	if run.Final.SegmentsMerged != 3 || !h.assembler.concat {
		t.Fatalf("final = %+v concat=%v", run.Final, h.assembler.concat)
	}
	if _, err := os.Stat(h.ws.ScriptPath()); err != nil {
		t.Fatalf("script not saved: %v", err)
	}
	rep := Report(run)
	if rep.Status != StatusCompleted || rep.SegmentsMerged != 3 || rep.FinalVideo != h.ws.FinalPath() {
		t.Fatalf("report = %+v", rep)
	}
}

func TestRunVideoFailureAbortsChainButAssemblesEarlierSegments(t *testing.T) {
	h := newHarness(t, 6, 5)
	h.video.failAt[1] = true
	run := h.run(t, 3)

	if run.Outcome != domain.OutcomePartialFailure {
		t.Fatalf("outcome = %s, want partial_failure", run.Outcome)
	}
	var segErr *domain.SegmentError
	if !errors.As(run.Err, &segErr) || segErr.Index != 1 || segErr.Stage != domain.StageVideo {
		t.Fatalf("err = %v, want segment 2 video failure", run.Err)
	}
	if len(h.video.requests) != 2 {
		t.Fatalf("video requests = %d, want 2 (chain must stop)", len(h.video.requests))
	}
	if len(run.Pairs) != 2 || run.Pairs[1].Status != domain.PairFailed {
		t.Fatalf("pairs = %+v", run.Pairs)
	}
	if _, err := os.Stat(run.Pairs[1].AudioPath); err != nil {
		t.Fatalf("audio of failed pair should stay on disk: %v", err)
	}
	if len(h.assembler.received) != 1 || h.assembler.received[0].Index != 0 {
		t.Fatalf("assembler received %+v, want only segment 0", h.assembler.received)
	}
	if run.Final == nil || run.Final.SegmentsMerged != 1 || run.SegmentsLost != 2 {
		t.Fatalf("final = %+v lost = %d", run.Final, run.SegmentsLost)
	}
	rep := Report(run)
	if rep.Status != StatusError || rep.Suggestion != RetrySuggestion || rep.SegmentsMerged != 1 {
		t.Fatalf("report = %+v", rep)
	}
	if !strings.HasPrefix(rep.Message, "Pipeline error: segment 2: video generation failed") {
		t.Fatalf("message = %q", rep.Message)
	}
}

func TestRunFirstSegmentFailureIsTotalFailure(t *testing.T) {
	h := newHarness(t, 6, 5)
	h.video.failAt[0] = true
	run := h.run(t, 3)

	if run.Outcome != domain.OutcomeFailure || run.Final != nil {
		t.Fatalf("outcome = %s final = %+v, want failure", run.Outcome, run.Final)
	}
	if !errors.Is(run.Err, domain.ErrSegmentGeneration) || !errors.Is(run.Err, domain.ErrNoValidSegments) {
		t.Fatalf("err = %v, want segment and assembly failures", run.Err)
	}
	if rep := Report(run); rep.Status != StatusError || rep.FinalVideo != "" {
		t.Fatalf("report = %+v", rep)
	}
}

func TestRunSingleSegmentMatchingDurations(t *testing.T) {
	h := newHarness(t, 4.5, 4.5)
	run := h.run(t, 1)
	if run.Outcome != domain.OutcomeSuccess {
		t.Fatalf("outcome = %s err = %v", run.Outcome, run.Err)
	}
	if h.assembler.concat {
		t.Fatalf("single segment must not be concatenated")
	}
	if got := h.ledger.get(run.Final.Path); math.Abs(got-4.5) > 0.2 {
		t.Fatalf("final duration = %.2f, want 4.5", got)
	}
	if h.frames.calls != 0 {
		t.Fatalf("no frame is needed after the last segment, got %d extractions", h.frames.calls)
	}
}

func TestChainFallsBackToInitialImageWhenExtractionFails(t *testing.T) {
	h := newHarness(t, 6, 5)
	h.frames.failAt[0] = true
	run := h.run(t, 3)
	if run.Outcome != domain.OutcomeSuccess {
		t.Fatalf("outcome = %s err = %v", run.Outcome, run.Err)
	}
	reqs := h.video.requests
	if len(reqs) != 3 {
		t.Fatalf("video requests = %d", len(reqs))
	}
	if reqs[0].Image != h.image || reqs[1].Image != h.image {
		t.Fatalf("segments 1 and 2 must use the user image")
	}
	if reqs[2].Image == nil || reqs[2].Image.Provenance != domain.ProvenanceExtractedFrame {
		t.Fatalf("segment 3 should use the frame of segment 2, got %+v", reqs[2].Image)
	}
	if reqs[2].Image.Path != h.ws.FramePath(1) {
		t.Fatalf("frame path = %q, want %q", reqs[2].Image.Path, h.ws.FramePath(1))
	}
	if len(run.Frames) != 1 {
		t.Fatalf("frames = %v, want one extracted frame", run.Frames)
	}
}

func TestChainThreadsExtractedFrames(t *testing.T) {
	h := newHarness(t, 6, 5)
	h.run(t, 3)
	for i, req := range h.video.requests[1:] {
		if req.Image == nil || req.Image.Path != h.ws.FramePath(i) {
			t.Fatalf("segment %d image = %+v, want frame of segment %d", i+2, req.Image, i+1)
		}
	}
	if h.video.requests[0].DurationSeconds != DefaultClipSeconds || h.video.requests[0].Topic != "Photosynthesis" {
		t.Fatalf("request = %+v", h.video.requests[0])
	}
}

func TestAudioFailureSkipsVideo(t *testing.T) {
	h := newHarness(t, 6, 5)
	h.voice.failAt[0] = true
	run := h.run(t, 2)
	if len(h.video.requests) != 0 {
		t.Fatalf("video must not be requested after audio failed")
	}
	var segErr *domain.SegmentError
	if !errors.As(run.Err, &segErr) || segErr.Stage != domain.StageAudio {
		t.Fatalf("err = %v, want audio failure", run.Err)
	}
	if run.Pairs[0].Status != domain.PairFailed || run.Pairs[0].AudioPath != "" {
		t.Fatalf("pair = %+v", run.Pairs[0])
	}
}

func TestVideoMustBeMP4(t *testing.T) {
	h := newHarness(t, 6, 5)
	h.video.ext = ".webm"
	run := h.run(t, 1)
	if run.Outcome != domain.OutcomeFailure {
		t.Fatalf("outcome = %s, want failure", run.Outcome)
	}
	if !strings.Contains(run.Err.Error(), "not an mp4 container") {
		t.Fatalf("err = %v", run.Err)
	}
}

func TestCombineFailureDropsOnlyThatSegment(t *testing.T) {
	h := newHarness(t, 6, 5)
	h.combiner.failAt[1] = true
	run := h.run(t, 3)
	if run.Outcome != domain.OutcomePartialFailure {
		t.Fatalf("outcome = %s, want partial_failure", run.Outcome)
	}
	if len(h.video.requests) != 3 {
		t.Fatalf("combine failures must not abort the chain")
	}
	if got := h.assembler.received; len(got) != 2 || got[0].Index != 0 || got[1].Index != 2 {
		t.Fatalf("assembled %+v, want segments 0 and 2", got)
	}
	if !errors.Is(run.Err, domain.ErrCombine) {
		t.Fatalf("err = %v, want ErrCombine", run.Err)
	}
}

func TestRunScriptFailure(t *testing.T) {
	h := newHarness(t, 6, 5)
	h.script.err = errors.New("quota exhausted")
	run := h.run(t, 2)
	if run.Outcome != domain.OutcomeFailure || len(h.voice.calls) != 0 {
		t.Fatalf("outcome = %s voice calls = %d", run.Outcome, len(h.voice.calls))
	}
	var segErr *domain.SegmentError
	if !errors.As(run.Err, &segErr) || segErr.Stage != domain.StageScript {
		t.Fatalf("err = %v, want script stage", run.Err)
	}
}

func TestRunTrimsScriptToRequestedCount(t *testing.T) {
	h := newHarness(t, 6, 5)
	h.script.segments = []domain.ScriptSegment{{Text: "one"}, {Text: ""}, {Text: "two"}, {Text: "three"}}
	run := h.run(t, 2)
	if len(run.Script) != 2 || run.Script[1].Text != "two" || run.Script[1].Index != 1 {
		t.Fatalf("script = %+v", run.Script)
	}
}

func TestRunRequiresReferenceAudio(t *testing.T) {
	h := newHarness(t, 6, 5)
	h.refAudio = h.ws.Dir + "/missing.wav"
	run := h.run(t, 1)
	if !errors.Is(run.Err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", run.Err)
	}
}

func TestRunWithoutImageGeneratesFromText(t *testing.T) {
	h := newHarness(t, 6, 5)
	h.image = nil
	h.frames.failAt[0] = true
	run := h.run(t, 2)
	if run.Outcome != domain.OutcomeSuccess {
		t.Fatalf("outcome = %s err = %v", run.Outcome, run.Err)
	}
	if h.video.requests[0].Image != nil || h.video.requests[1].Image != nil {
		t.Fatalf("expected text-only requests")
	}
}

func TestRunReportsProgress(t *testing.T) {
	h := newHarness(t, 6, 5)
	var pcts []int
	p := h.pipeline(t)
	p.Run(context.Background(), Input{
		Request:        Request{Topic: "Tides", SegmentCount: 2, ClipSeconds: 8},
		ReferenceAudio: h.refAudio,
		Workspace:      h.ws,
		Progress: func(_ context.Context, pct int, _, _ string) {
			pcts = append(pcts, pct)
		},
	})
	want := []int{25, 50, 75, 75}
	if len(pcts) != len(want) {
		t.Fatalf("progress = %v, want %v", pcts, want)
	}
	for i := range want {
		if pcts[i] != want[i] {
			t.Fatalf("progress = %v, want %v", pcts, want)
		}
	}
}

func TestRunCancelledKeepsArtifacts(t *testing.T) {
	h := newHarness(t, 6, 5)
	ctx, cancel := context.WithCancel(context.Background())
	p, _ := New(Config{
		Script:    h.script,
		Voice:     cancellingVoice{inner: h.voice, cancel: cancel},
		Video:     h.video,
		Frames:    h.frames,
		Combiner:  h.combiner,
		Assembler: h.assembler,
		Logger:    zerolog.Nop(),
	})
	run := p.Run(ctx, Input{
		Request:        Request{Topic: "Tides", SegmentCount: 3, ClipSeconds: 8},
		ReferenceAudio: h.refAudio,
		Workspace:      h.ws,
	})
	if !errors.Is(run.Err, context.Canceled) || run.Outcome != domain.OutcomeFailure {
		t.Fatalf("outcome = %s err = %v", run.Outcome, run.Err)
	}
	if _, err := os.Stat(h.ws.VideoPath(0)); err != nil {
		t.Fatalf("first segment video should remain: %v", err)
	}
}

// cancellingVoice cancels the run once the first segment's audio exists.
type cancellingVoice struct {
	inner  *fakeVoice
	cancel context.CancelFunc
}

func (c cancellingVoice) CloneVoice(ctx context.Context, ref, text, out string) (string, error) {
	path, err := c.inner.CloneVoice(ctx, ref, text, out)
	if len(c.inner.calls) == 1 {
		defer c.cancel()
	}
	return path, err
}

func TestChainCancelledBetweenSegments(t *testing.T) {
	h := newHarness(t, 6, 5)
	ctx, cancel := context.WithCancel(context.Background())
	segments := []domain.ScriptSegment{{Index: 0, Text: "one"}, {Index: 1, Text: "two"}, {Index: 2, Text: "three"}}

	res := h.pipeline(t).Chain(ctx, ChainInput{
		Topic:          "Tides",
		Segments:       segments,
		Initial:        h.image,
		ReferenceAudio: h.refAudio,
		ClipSeconds:    DefaultClipSeconds,
		Workspace:      h.ws,
		OnSegment: func(done int) {
			if done == 1 {
				cancel()
			}
		},
	})
	if !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", res.Err)
	}
	var segErr *domain.SegmentError
	if errors.As(res.Err, &segErr) {
		t.Fatalf("cancellation reported as segment %d %s failure", segErr.Index+1, segErr.Stage)
	}
	if len(res.Pairs) != 1 || !res.Pairs[0].Usable() {
		t.Fatalf("pairs = %+v, want the finished first segment only", res.Pairs)
	}
	if len(h.voice.calls) != 1 {
		t.Fatalf("voice calls = %d, want 1", len(h.voice.calls))
	}
}
