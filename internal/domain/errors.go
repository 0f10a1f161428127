package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                = errors.New("not found")
	ErrInvalidInput            = errors.New("invalid input")
	ErrProviderFailure         = errors.New("provider failure")
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	ErrSegmentGeneration       = errors.New("segment generation failed")
	ErrCombine                 = errors.New("combine failed")
	ErrAssembly                = errors.New("assembly failed")
	ErrConcatenation           = errors.New("concatenation failed")
	ErrNoValidSegments         = errors.New("no valid segments")
)

// Stage names the step of a segment that produced an error.
type Stage string

const (
	StageScript   Stage = "script"
	StageAudio    Stage = "audio"
	StageVideo    Stage = "video"
	StageFrame    Stage = "frame"
	StageCombine  Stage = "combine"
	StageAssemble Stage = "assemble"
)

// UnavailableError reports a collaborator that was not supplied when the
// pipeline was constructed.
type UnavailableError struct {
	Collaborator string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s generation unavailable", e.Collaborator)
}

func (e *UnavailableError) Unwrap() error { return ErrCollaboratorUnavailable }

// SegmentError aborts a chain at Index. Segments before Index stay usable.
type SegmentError struct {
	Index int
	Stage Stage
	Err   error
}

func (e *SegmentError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("segment %d: %s generation failed", e.Index+1, e.Stage)
	}
	return fmt.Sprintf("segment %d: %s generation failed: %v", e.Index+1, e.Stage, e.Err)
}

func (e *SegmentError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSegmentGeneration}
	}
	return []error{ErrSegmentGeneration, e.Err}
}

// CombineError is local to one segment; the segment is dropped from assembly.
type CombineError struct {
	Index int
	Err   error
}

func (e *CombineError) Error() string {
	return fmt.Sprintf("segment %d: combine failed: %v", e.Index+1, e.Err)
}

func (e *CombineError) Unwrap() []error { return []error{ErrCombine, e.Err} }

// AssemblyError is terminal for a run: either nothing could be assembled or
// the concatenation itself failed.
type AssemblyError struct {
	Reason string
	Err    error
}

func (e *AssemblyError) Error() string {
	if e.Err == nil {
		return "assembly failed: " + e.Reason
	}
	return fmt.Sprintf("assembly failed: %s: %v", e.Reason, e.Err)
}

func (e *AssemblyError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAssembly}
	}
	return []error{ErrAssembly, e.Err}
}
