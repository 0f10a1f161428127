package domain

import (
	"fmt"
	"time"
)

// ArtifactKind names a file a run produced.
type ArtifactKind string

const (
	ArtifactFinalVideo  ArtifactKind = "final_video"
	ArtifactRunLog      ArtifactKind = "run_log"
	ArtifactClonedVoice ArtifactKind = "cloned_voice"
)

// IntermediateVideo returns the artifact kind of segment n's generated video.
func IntermediateVideo(n int) ArtifactKind {
	return ArtifactKind(fmt.Sprintf("intermediate_video_%d", n))
}

// IntermediateAudio returns the artifact kind of segment n's generated audio.
func IntermediateAudio(n int) ArtifactKind {
	return ArtifactKind(fmt.Sprintf("intermediate_audio_%d", n))
}

// Frame returns the artifact kind of segment n's extracted frame.
func Frame(n int) ArtifactKind {
	return ArtifactKind(fmt.Sprintf("frame_%d", n))
}

// Artifact is a persisted reference to one produced file.
type Artifact struct {
	RunID      string
	Kind       ArtifactKind
	StorageKey string
	Backend    string
	MIME       string
	Bytes      int64
	CreatedAt  time.Time
}

// LogLine is one captured line of a run log.
type LogLine struct {
	RunID     string    `json:"run_id"`
	Seq       int64     `json:"seq"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// EventType distinguishes progress events from log events.
type EventType string

const (
	EventLog      EventType = "log"
	EventProgress EventType = "progress"
)

// Event is streamed to clients watching a run.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	Message   string    `json:"message,omitempty"`
	Progress  int       `json:"progress,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
