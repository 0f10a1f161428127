package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"neomentor/internal/domain"
)

// Milestones reported over a run's lifetime.
const (
	PctInitialized   = 5
	PctSaved         = 15
	PctFilesUploaded = 20
	PctStarted       = 25
	PctSegmentsEnd   = 75
	PctProcessed     = 80
	PctUploading     = 90
	PctUploadingLogs = 95
	PctCompleted     = 100
)

// SegmentProgress spreads segment completion across the 25..75 band.
func SegmentProgress(done, total int) int {
	if total <= 0 {
		return PctStarted
	}
	if done > total {
		done = total
	}
	return PctStarted + (PctSegmentsEnd-PctStarted)*done/total
}

// ProgressStore persists the progress column of a run.
type ProgressStore interface {
	UpdateProgress(ctx context.Context, id string, progress int, stage string) error
}

// LogStore persists run log lines.
type LogStore interface {
	AppendLog(ctx context.Context, line domain.LogLine) error
}

// Recorder captures one run's log lines and progress. It is an io.Writer
// for zerolog JSON output: every line is kept in memory, appended to the log
// store and published as a log event. Nil stores are skipped.
type Recorder struct {
	runID     string
	publisher Publisher
	logs      LogStore
	runs      ProgressStore
	timeout   time.Duration

	mu       sync.Mutex
	lines    []domain.LogLine
	progress int
	failures int
}

func NewRecorder(runID string, publisher Publisher, logs LogStore, runs ProgressStore) *Recorder {
	if publisher == nil {
		publisher = Discard{}
	}
	return &Recorder{runID: runID, publisher: publisher, logs: logs, runs: runs, timeout: 5 * time.Second}
}

// Write implements io.Writer. It never fails so logging is not interrupted.
func (r *Recorder) Write(p []byte) (int, error) {
	for _, raw := range bytes.Split(p, []byte("\n")) {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			continue
		}
		r.record(parseLine(r.runID, raw))
	}
	return len(p), nil
}

func (r *Recorder) record(line domain.LogLine) {
	r.mu.Lock()
	line.Seq = int64(len(r.lines) + 1)
	r.lines = append(r.lines, line)
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if r.logs != nil {
		if err := r.logs.AppendLog(ctx, line); err != nil {
			r.fail()
		}
	}
	_ = r.publisher.Publish(ctx, domain.Event{
		Type:      domain.EventLog,
		RunID:     r.runID,
		Message:   line.Message,
		Timestamp: line.CreatedAt,
	})
}

// Progress stores and publishes a milestone. Values below the last reported
// one are ignored so the bar never moves backwards.
func (r *Recorder) Progress(ctx context.Context, pct int, stage, message string) {
	r.mu.Lock()
	if pct < r.progress {
		r.mu.Unlock()
		return
	}
	r.progress = pct
	r.mu.Unlock()

	if r.runs != nil {
		if err := r.runs.UpdateProgress(ctx, r.runID, pct, stage); err != nil {
			r.fail()
		}
	}
	_ = r.publisher.Publish(ctx, domain.Event{
		Type:      domain.EventProgress,
		RunID:     r.runID,
		Message:   message,
		Progress:  pct,
		Stage:     stage,
		Timestamp: time.Now().UTC(),
	})
}

// Lines returns a copy of everything recorded so far.
func (r *Recorder) Lines() []domain.LogLine {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.LogLine, len(r.lines))
	copy(out, r.lines)
	return out
}

// Text renders the run log as plain text, one line per entry.
func (r *Recorder) Text() []byte {
	return FormatLog(r.Lines())
}

// Failures counts store writes that did not succeed.
func (r *Recorder) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

func (r *Recorder) fail() {
	r.mu.Lock()
	r.failures++
	r.mu.Unlock()
}

// FormatLog renders log lines the way the run.log artifact stores them.
func FormatLog(lines []domain.LogLine) []byte {
	var buf bytes.Buffer
	for _, l := range lines {
		fmt.Fprintf(&buf, "%s %-5s %s\n", l.CreatedAt.UTC().Format(time.RFC3339), strings.ToUpper(l.Level), l.Message)
	}
	return buf.Bytes()
}

var reserved = map[string]bool{"level": true, "time": true, "message": true, "run_id": true}

// parseLine turns a zerolog JSON line into a log line. Structured fields are
// appended as key=value pairs; lines that are not JSON are kept verbatim.
func parseLine(runID string, raw []byte) domain.LogLine {
	line := domain.LogLine{RunID: runID, Level: "info", CreatedAt: time.Now().UTC()}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		line.Message = string(raw)
		return line
	}
	if lvl, ok := fields["level"].(string); ok && lvl != "" {
		line.Level = lvl
	}
	if ts, ok := fields["time"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			line.CreatedAt = parsed.UTC()
		}
	}
	msg, _ := fields["message"].(string)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !reserved[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(msg)
	for _, k := range keys {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, fields[k])
	}
	line.Message = b.String()
	return line
}
