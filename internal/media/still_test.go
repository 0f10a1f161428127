package media

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestRenderStillFromImage(t *testing.T) {
	exec := newFakeExecutor()
	tk := New(Options{Executor: exec})
	dir := t.TempDir()
	img := writeFile(t, dir, "reference_image.jpg")
	out := filepath.Join(dir, "video_segment_run_1.mp4")

	if err := tk.RenderStill(context.Background(), img, 8, out); err != nil {
		t.Fatalf("RenderStill error: %v", err)
	}
	args := exec.commands("ffmpeg")[0]
	for _, want := range []string{"-loop", img, "libx264", "8", out} {
		if !contains(args, want) {
			t.Fatalf("args %v missing %q", args, want)
		}
	}
	if !fileExists(out) {
		t.Fatalf("output not written")
	}
}

func TestRenderStillWithoutImageUsesColorSource(t *testing.T) {
	exec := newFakeExecutor()
	tk := New(Options{Executor: exec})
	out := filepath.Join(t.TempDir(), "clip.mp4")

	if err := tk.RenderStill(context.Background(), "", 5, out); err != nil {
		t.Fatalf("RenderStill error: %v", err)
	}
	args := exec.commands("ffmpeg")[0]
	if !contains(args, "lavfi") || contains(args, "-loop") {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestRenderStillErrors(t *testing.T) {
	tk := New(Options{Executor: newFakeExecutor()})
	if err := tk.RenderStill(context.Background(), "", 0, "x.mp4"); err == nil {
		t.Fatalf("expected error for zero length")
	}
	failing := newFakeExecutor()
	failing.failTool["ffmpeg"] = errors.New("exit status 1")
	out := filepath.Join(t.TempDir(), "clip.mp4")
	err := New(Options{Executor: failing}).RenderStill(context.Background(), "", 5, out)
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("err = %v, want ToolError", err)
	}
}
