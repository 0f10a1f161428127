package media

import (
	"context"
	"errors"
	"testing"
)

func TestParseProbeDuration(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
	}{
		{name: "json", in: `{"format":{"duration":"6.048000"}}`, want: 6.048},
		{name: "csv", in: "4.500000\n", want: 4.5},
		{name: "empty", in: "", want: 0},
		{name: "missing duration", in: `{"format":{}}`, want: 0},
		{name: "na", in: "N/A", want: 0},
		{name: "garbage json", in: `{"format":`, want: 0},
		{name: "negative", in: "-3", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseProbeDuration([]byte(tt.in)); got != tt.want {
				t.Fatalf("parseProbeDuration(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestProbeDurationFailureIsZero(t *testing.T) {
	exec := newFakeExecutor()
	exec.failTool["ffprobe"] = errors.New("exit status 1")
	tk := New(Options{Executor: exec})
	if got := tk.ProbeDuration(context.Background(), "clip.mp4"); got != 0 {
		t.Fatalf("ProbeDuration = %v, want 0", got)
	}
	calls := exec.commands("ffprobe")
	if len(calls) != 1 || calls[0][len(calls[0])-1] != "clip.mp4" {
		t.Fatalf("unexpected ffprobe calls: %v", calls)
	}
}

func TestNewUsesConfiguredBinaries(t *testing.T) {
	exec := newFakeExecutor()
	exec.durations["a.wav"] = 2
	tk := New(Options{Executor: exec, FFprobePath: " /opt/bin/ffprobe "})
	_ = tk.ProbeDuration(context.Background(), "a.wav")
	if len(exec.calls) != 1 || exec.calls[0][0] != "/opt/bin/ffprobe" {
		t.Fatalf("calls = %v", exec.calls)
	}
}
