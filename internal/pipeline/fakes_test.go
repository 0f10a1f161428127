package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"neomentor/internal/domain"
	"neomentor/internal/media"
)

// mediaLedger remembers the simulated duration of every file the fakes write.
type mediaLedger struct {
	mu        sync.Mutex
	durations map[string]float64
}

func (l *mediaLedger) set(path string, d float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.durations[path] = d
}

func (l *mediaLedger) get(path string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.durations[path]
}

type fakeScript struct {
	segments []domain.ScriptSegment
	err      error
}

func (f *fakeScript) WriteScript(_ context.Context, topic string, count int) ([]domain.ScriptSegment, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.segments != nil {
		return f.segments, nil
	}
	out := make([]domain.ScriptSegment, count)
	for i := range out {
		out[i] = domain.ScriptSegment{Index: i, Text: fmt.Sprintf("%s part %d", topic, i+1)}
	}
	return out, nil
}

type fakeVoice struct {
	ledger   *mediaLedger
	duration float64
	failAt   map[int]bool
	calls    []string
}

func (f *fakeVoice) CloneVoice(_ context.Context, _, text, outPath string) (string, error) {
	f.calls = append(f.calls, outPath)
	if f.failAt[len(f.calls)-1] {
		return "", errors.New("voice service unavailable")
	}
	if err := os.WriteFile(outPath, []byte("wav:"+text), 0o644); err != nil {
		return "", err
	}
	f.ledger.set(outPath, f.duration)
	return outPath, nil
}

type fakeVideo struct {
	ledger   *mediaLedger
	duration float64
	failAt   map[int]bool
	ext      string
	requests []VideoRequest
}

func (f *fakeVideo) GenerateVideo(_ context.Context, req VideoRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.failAt[req.Index] {
		return "", errors.New("veo: operation failed")
	}
	out := req.OutputPath
	if f.ext != "" {
		out = out[:len(out)-len(filepath.Ext(out))] + f.ext
	}
	if err := os.WriteFile(out, []byte("mp4:"+req.Text), 0o644); err != nil {
		return "", err
	}
	f.ledger.set(out, f.duration)
	return out, nil
}

type fakeFrames struct {
	failAt map[int]bool
	calls  int
}

func (f *fakeFrames) ExtractLastFrame(_ context.Context, _, outPath string) *domain.ReferenceImage {
	idx := f.calls
	f.calls++
	if f.failAt[idx] {
		return nil
	}
	if err := os.WriteFile(outPath, []byte("jpeg"), 0o644); err != nil {
		return nil
	}
	return &domain.ReferenceImage{Data: []byte("jpeg"), MIMEType: "image/jpeg", Provenance: domain.ProvenanceExtractedFrame, Path: outPath}
}

// fakeCombiner applies the real reconciliation plan to simulated durations.
type fakeCombiner struct {
	ledger *mediaLedger
	failAt map[int]bool
}

func (f *fakeCombiner) Combine(_ context.Context, index int, videoPath, audioPath, outPath string) (domain.CombinedSegment, error) {
	if f.failAt[index] {
		return domain.CombinedSegment{}, &domain.CombineError{Index: index, Err: errors.New("ffmpeg exited 1")}
	}
	plan := media.PlanCombine(f.ledger.get(videoPath), f.ledger.get(audioPath), media.ExtendLoop)
	if err := os.WriteFile(outPath, []byte("combined"), 0o644); err != nil {
		return domain.CombinedSegment{}, err
	}
	d := plan.Expected()
	f.ledger.set(outPath, d)
	return domain.CombinedSegment{Index: index, Path: outPath, Duration: d}, nil
}

type fakeAssembler struct {
	ledger   *mediaLedger
	received []domain.CombinedSegment
	concat   bool
}

func (f *fakeAssembler) Assemble(_ context.Context, segments []domain.CombinedSegment, _, outPath string) (domain.FinalArtifact, error) {
	f.received = segments
	if len(segments) == 0 {
		return domain.FinalArtifact{}, &domain.AssemblyError{Reason: "no valid segments", Err: domain.ErrNoValidSegments}
	}
	f.concat = len(segments) > 1
	total := 0.0
	for _, s := range segments {
		total += s.Duration
	}
	if err := os.WriteFile(outPath, []byte("final"), 0o644); err != nil {
		return domain.FinalArtifact{}, err
	}
	f.ledger.set(outPath, total)
	return domain.FinalArtifact{Path: outPath, SegmentsMerged: len(segments)}, nil
}

type harness struct {
	ledger    *mediaLedger
	script    *fakeScript
	voice     *fakeVoice
	video     *fakeVideo
	frames    *fakeFrames
	combiner  *fakeCombiner
	assembler *fakeAssembler
	ws        Workspace
	refAudio  string
	image     *domain.ReferenceImage
}

func newHarness(t *testing.T, audioDur, videoDur float64) *harness {
	t.Helper()
	ledger := &mediaLedger{durations: map[string]float64{}}
	ws, err := NewWorkspace(t.TempDir(), "run1")
	if err != nil {
		t.Fatalf("NewWorkspace error: %v", err)
	}
	ref := filepath.Join(ws.Dir, "reference_audio.wav")
	if err := os.WriteFile(ref, []byte("ref"), 0o644); err != nil {
		t.Fatal(err)
	}
	return &harness{
		ledger:    ledger,
		script:    &fakeScript{},
		voice:     &fakeVoice{ledger: ledger, duration: audioDur, failAt: map[int]bool{}},
		video:     &fakeVideo{ledger: ledger, duration: videoDur, failAt: map[int]bool{}},
		frames:    &fakeFrames{failAt: map[int]bool{}},
		combiner:  &fakeCombiner{ledger: ledger, failAt: map[int]bool{}},
		assembler: &fakeAssembler{ledger: ledger},
		ws:        ws,
		refAudio:  ref,
		image:     &domain.ReferenceImage{Data: []byte("png"), MIMEType: "image/png", Provenance: domain.ProvenanceUserSupplied},
	}
}

func (h *harness) pipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := New(Config{
		Script:    h.script,
		Voice:     h.voice,
		Video:     h.video,
		Frames:    h.frames,
		Combiner:  h.combiner,
		Assembler: h.assembler,
		Logger:    zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return p
}

func (h *harness) run(t *testing.T, segments int) domain.PipelineRun {
	t.Helper()
	req := Request{Topic: "Photosynthesis", Seconds: segments * SecondsPerSegment, SegmentCount: segments, ClipSeconds: DefaultClipSeconds}
	return h.pipeline(t).Run(context.Background(), Input{
		Request:        req,
		Image:          h.image,
		ReferenceAudio: h.refAudio,
		Workspace:      h.ws,
	})
}
