package pipeline

import (
	"fmt"
	"strings"

	"neomentor/internal/domain"
)

const (
	StatusCompleted = "completed"
	StatusError     = "error"

	RetrySuggestion = "Please check your inputs and try again."
)

// Report maps a finished run onto the status shown to the user.
func Report(run domain.PipelineRun) domain.Report {
	if run.Outcome == domain.OutcomeSuccess && run.Final != nil {
		return domain.Report{
			Status:         StatusCompleted,
			Message:        fmt.Sprintf("Video generated successfully from %d segments", run.Final.SegmentsMerged),
			FinalVideo:     run.Final.Path,
			SegmentsMerged: run.Final.SegmentsMerged,
		}
	}

	msg := "unknown failure"
	if run.Err != nil {
		msg = firstLine(run.Err.Error())
	}
	rep := domain.Report{
		Status:     StatusError,
		Message:    "Pipeline error: " + msg,
		Suggestion: RetrySuggestion,
	}
	if run.Final != nil {
		rep.FinalVideo = run.Final.Path
		rep.SegmentsMerged = run.Final.SegmentsMerged
		rep.Details = fmt.Sprintf("Partial video assembled from %d of %d segments", run.Final.SegmentsMerged, len(run.Script))
	}
	return rep
}

// errors.Join separates messages with newlines; the first is the root cause.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
