package media

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"neomentor/internal/domain"
)

func TestPlanCombine(t *testing.T) {
	tests := []struct {
		name     string
		video    float64
		audio    float64
		mode     ExtendMode
		strategy Strategy
		loops    int
	}{
		{name: "unknown video", video: 0, audio: 4, strategy: StrategyDirect},
		{name: "unknown audio", video: 5, audio: 0, strategy: StrategyDirect},
		{name: "audio shorter", video: 5, audio: 4.2, strategy: StrategyCopy},
		{name: "equal", video: 4.5, audio: 4.5, strategy: StrategyCopy},
		{name: "audio longer", video: 5, audio: 6, strategy: StrategyLoop, loops: 2},
		{name: "audio much longer", video: 2, audio: 9.5, strategy: StrategyLoop, loops: 5},
		{name: "exact multiple", video: 2, audio: 8, strategy: StrategyLoop, loops: 5},
		{name: "hold mode", video: 5, audio: 6, mode: ExtendHold, strategy: StrategyHold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PlanCombine(tt.video, tt.audio, tt.mode)
			if p.Strategy != tt.strategy {
				t.Fatalf("strategy = %q, want %q", p.Strategy, tt.strategy)
			}
			if p.Loops != tt.loops {
				t.Fatalf("loops = %d, want %d", p.Loops, tt.loops)
			}
		})
	}
}

func TestPlanArgsLoopTrimsToAudio(t *testing.T) {
	p := PlanCombine(5, 6, ExtendLoop)
	args := p.Args("v.mp4", "a.wav", "out.mp4")
	want := []string{"-y", "-stream_loop", "2", "-i", "v.mp4", "-i", "a.wav", "-c:v", "libx264", "-c:a", "aac",
		"-map", "0:v:0", "-map", "1:a:0", "-t", "6.000", "-shortest", "out.mp4"}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestPlanArgsCopyUsesStreamCopy(t *testing.T) {
	args := PlanCombine(5, 4, ExtendLoop).Args("v.mp4", "a.wav", "out.mp4")
	if !contains(args, "copy") || contains(args, "libx264") || contains(args, "-stream_loop") {
		t.Fatalf("unexpected copy args: %v", args)
	}
}

func TestCombineDurationFollowsAudio(t *testing.T) {
	pairs := []struct{ video, audio float64 }{
		{5, 6}, {5, 4.5}, {4.5, 4.5}, {2, 9.7}, {8, 8.01}, {1.3, 30}, {6, 1},
	}
	for _, mode := range []ExtendMode{ExtendLoop, ExtendHold} {
		for _, pair := range pairs {
			dir := t.TempDir()
			exec := newFakeExecutor()
			video := writeFile(t, dir, "video.mp4")
			audio := writeFile(t, dir, "audio.wav")
			exec.durations[video] = pair.video
			exec.durations[audio] = pair.audio
			tk := New(Options{Executor: exec, ExtendMode: mode})

			out := filepath.Join(dir, "combined_segment_1.mp4")
			seg, err := tk.Combine(context.Background(), 0, video, audio, out)
			if err != nil {
				t.Fatalf("%s %v: Combine error: %v", mode, pair, err)
			}
			if math.Abs(seg.Duration-pair.audio) > 0.2 {
				t.Fatalf("%s %v: reported duration = %.3f, want %.3f", mode, pair, seg.Duration, pair.audio)
			}
			if got := tk.ProbeDuration(context.Background(), out); math.Abs(got-pair.audio) > 0.2 {
				t.Fatalf("%s %v: output duration = %.3f, want %.3f", mode, pair, got, pair.audio)
			}
			if pair.audio <= pair.video {
				for _, args := range exec.commands("ffmpeg") {
					if contains(args, "-stream_loop") || contains(args, "-filter_complex") {
						t.Fatalf("%s %v: video stretched although audio fits: %v", mode, pair, args)
					}
				}
			}
		}
	}
}

func TestCombineFallsBackToDirectMuxWhenProbeFails(t *testing.T) {
	dir := t.TempDir()
	exec := newFakeExecutor()
	video := writeFile(t, dir, "video.mp4")
	audio := writeFile(t, dir, "audio.wav")
	exec.durations[video] = 5
	tk := New(Options{Executor: exec})

	seg, err := tk.Combine(context.Background(), 2, video, audio, filepath.Join(dir, "out.mp4"))
	if err != nil {
		t.Fatalf("Combine error: %v", err)
	}
	if seg.Index != 2 {
		t.Fatalf("index = %d, want 2", seg.Index)
	}
	muxes := exec.commands("ffmpeg")
	if len(muxes) != 1 {
		t.Fatalf("ffmpeg calls = %d, want 1", len(muxes))
	}
	if contains(muxes[0], "-map") || !contains(muxes[0], "-shortest") {
		t.Fatalf("expected direct mux args, got %v", muxes[0])
	}
}

func TestCombineMissingInput(t *testing.T) {
	dir := t.TempDir()
	tk := New(Options{Executor: newFakeExecutor()})
	audio := writeFile(t, dir, "audio.wav")

	_, err := tk.Combine(context.Background(), 1, filepath.Join(dir, "missing.mp4"), audio, filepath.Join(dir, "out.mp4"))
	if !errors.Is(err, domain.ErrCombine) {
		t.Fatalf("err = %v, want ErrCombine", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want os.ErrNotExist in chain", err)
	}
	var ce *domain.CombineError
	if !errors.As(err, &ce) || ce.Index != 1 {
		t.Fatalf("expected CombineError for index 1, got %#v", err)
	}
}

func TestCombineMuxFailure(t *testing.T) {
	dir := t.TempDir()
	exec := newFakeExecutor()
	video := writeFile(t, dir, "video.mp4")
	audio := writeFile(t, dir, "audio.wav")
	exec.durations[video] = 5
	exec.durations[audio] = 6
	exec.failTool["ffmpeg"] = errors.New("exit status 1")
	tk := New(Options{Executor: exec})

	_, err := tk.Combine(context.Background(), 0, video, audio, filepath.Join(dir, "out.mp4"))
	if !errors.Is(err, domain.ErrCombine) {
		t.Fatalf("err = %v, want ErrCombine", err)
	}
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("data:"+name), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func contains(args []string, v string) bool {
	for _, a := range args {
		if a == v {
			return true
		}
	}
	return false
}
