package domain

import "time"

// RunStatus enumerates run lifecycle states as persisted.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusPartial, RunStatusFailed:
		return true
	default:
		return false
	}
}

// Run is the persisted record of one pipeline request.
type Run struct {
	ID               string
	Topic            string
	RequestedSeconds int
	SegmentCount     int
	ClipSeconds      int
	Status           RunStatus
	Progress         int
	Stage            string
	Message          string
	Suggestion       string
	FinalKey         string
	SegmentsMerged   int
	ImagePath        string
	AudioPath        string
	WorkDir          string
	Locale           string
	Country          string
	RequestID        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Outcome is the overall result of a pipeline execution.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomePartialFailure Outcome = "partial_failure"
	OutcomeFailure        Outcome = "failure"
)

// RunStatus maps an outcome to the persisted status.
func (o Outcome) RunStatus() RunStatus {
	switch o {
	case OutcomeSuccess:
		return RunStatusCompleted
	case OutcomePartialFailure:
		return RunStatusPartial
	default:
		return RunStatusFailed
	}
}

// ScriptSegment is one narration unit.
type ScriptSegment struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Provenance records where a reference image came from.
type Provenance string

const (
	ProvenanceUserSupplied   Provenance = "user_supplied"
	ProvenanceExtractedFrame Provenance = "extracted_frame"
)

// ReferenceImage seeds a video generation call. Values are never mutated; a
// new image supersedes the previous one.
type ReferenceImage struct {
	Data       []byte
	MIMEType   string
	Provenance Provenance
	Path       string
}

// Empty reports whether the image carries no payload.
func (r *ReferenceImage) Empty() bool {
	return r == nil || len(r.Data) == 0
}

// PairStatus tracks one segment's generation progress.
type PairStatus string

const (
	PairPending   PairStatus = "pending"
	PairAudioDone PairStatus = "audio_done"
	PairVideoDone PairStatus = "video_done"
	PairFailed    PairStatus = "failed"
)

// SegmentArtifactPair holds the generated media of one segment.
type SegmentArtifactPair struct {
	Index     int
	VideoPath string
	AudioPath string
	Status    PairStatus
}

// Usable reports whether both media files were produced.
func (p SegmentArtifactPair) Usable() bool {
	return p.Status == PairVideoDone && p.VideoPath != "" && p.AudioPath != ""
}

// CombinedSegment is one muxed clip ready for assembly.
type CombinedSegment struct {
	Index    int
	Path     string
	Duration float64
}

// FinalArtifact is the assembled output of a run.
type FinalArtifact struct {
	Path           string
	SegmentsMerged int
}

// PipelineRun aggregates everything one execution produced.
type PipelineRun struct {
	RunID        string
	Script       []ScriptSegment
	Pairs        []SegmentArtifactPair
	Combined     []CombinedSegment
	Frames       []string
	Final        *FinalArtifact
	Outcome      Outcome
	Err          error
	SegmentsLost int
}

// Report is the user-facing summary of a terminal run.
type Report struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	FinalVideo     string `json:"final_video,omitempty"`
	SegmentsMerged int    `json:"segments_merged"`
	Details        string `json:"details,omitempty"`
	Suggestion     string `json:"suggestion,omitempty"`
}
