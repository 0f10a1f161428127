package media

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
)

// fakeExecutor emulates just enough ffmpeg/ffprobe behaviour for the
// reconciliation rules: it tracks durations per path and derives the
// duration of every file ffmpeg "writes".
type fakeExecutor struct {
	mu        sync.Mutex
	calls     [][]string
	durations map[string]float64
	failTool  map[string]error
	noOutput  bool
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{durations: map[string]float64{}, failTool: map[string]error{}}
}

func (f *fakeExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string{name}, args...))
	if err := f.failTool[name]; err != nil {
		return nil, &ToolError{Tool: name, Err: err, Stderr: "boom"}
	}
	if name == "ffprobe" {
		path := args[len(args)-1]
		d, ok := f.durations[path]
		if !ok {
			return nil, &ToolError{Tool: name, Err: errors.New("exit status 1")}
		}
		return []byte(fmt.Sprintf(`{"format":{"filename":%q,"duration":"%.6f"}}`, path, d)), nil
	}
	out := outputArg(args)
	if f.noOutput {
		return nil, nil
	}
	if err := os.WriteFile(out, []byte("media:"+out), 0o644); err != nil {
		return nil, err
	}
	f.durations[out] = f.simulate(args)
	return nil, nil
}

func (f *fakeExecutor) commands(tool string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]string
	for _, c := range f.calls {
		if c[0] == tool {
			out = append(out, c[1:])
		}
	}
	return out
}

func outputArg(args []string) string {
	if len(args) >= 2 && args[len(args)-1] == "-y" {
		return args[len(args)-2]
	}
	return args[len(args)-1]
}

// simulate computes the resulting duration of an ffmpeg mux invocation.
func (f *fakeExecutor) simulate(args []string) float64 {
	var inputs []string
	loops := 0
	trim := math.Inf(1)
	shortest := false
	pad := 0.0
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-i":
			inputs = append(inputs, args[i+1])
			i++
		case "-stream_loop":
			loops, _ = strconv.Atoi(args[i+1])
			i++
		case "-t":
			trim, _ = strconv.ParseFloat(args[i+1], 64)
			i++
		case "-shortest":
			shortest = true
		case "-filter_complex":
			if idx := strings.Index(args[i+1], "stop_duration="); idx >= 0 {
				v := strings.TrimSuffix(args[i+1][idx+len("stop_duration="):], "[v]")
				pad, _ = strconv.ParseFloat(v, 64)
			}
			i++
		}
	}
	if len(inputs) < 2 {
		if len(inputs) == 1 {
			return math.Min(f.durations[inputs[0]], trim)
		}
		return 0
	}
	video := f.durations[inputs[0]]*float64(loops+1) + pad
	audio := f.durations[inputs[1]]
	result := math.Max(video, audio)
	if shortest {
		result = math.Min(video, audio)
	}
	return math.Min(result, trim)
}

var _ Executor = (*fakeExecutor)(nil)
