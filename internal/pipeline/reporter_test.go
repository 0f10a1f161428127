package pipeline

import (
	"errors"
	"testing"

	"neomentor/internal/domain"
)

func TestReportSuccess(t *testing.T) {
	rep := Report(domain.PipelineRun{
		Outcome: domain.OutcomeSuccess,
		Final:   &domain.FinalArtifact{Path: "/w/final_output.mp4", SegmentsMerged: 2},
	})
	if rep.Status != "completed" || rep.FinalVideo != "/w/final_output.mp4" || rep.SegmentsMerged != 2 {
		t.Fatalf("report = %+v", rep)
	}
	if rep.Suggestion != "" {
		t.Fatalf("success should not carry a suggestion")
	}
}

func TestReportFailureUsesFirstError(t *testing.T) {
	err := errors.Join(
		&domain.SegmentError{Index: 0, Stage: domain.StageAudio, Err: errors.New("timeout")},
		&domain.AssemblyError{Reason: "no valid segments"},
	)
	rep := Report(domain.PipelineRun{Outcome: domain.OutcomeFailure, Err: err})
	if rep.Status != "error" {
		t.Fatalf("status = %q", rep.Status)
	}
	if rep.Message != "Pipeline error: segment 1: audio generation failed: timeout" {
		t.Fatalf("message = %q", rep.Message)
	}
	if rep.Suggestion != "Please check your inputs and try again." {
		t.Fatalf("suggestion = %q", rep.Suggestion)
	}
	if rep.FinalVideo != "" || rep.Details != "" {
		t.Fatalf("failure without artifact should not reference one: %+v", rep)
	}
}

func TestReportPartialFailureKeepsArtifact(t *testing.T) {
	rep := Report(domain.PipelineRun{
		Outcome: domain.OutcomePartialFailure,
		Script:  make([]domain.ScriptSegment, 3),
		Final:   &domain.FinalArtifact{Path: "/w/final_output.mp4", SegmentsMerged: 1},
		Err:     errors.New("segment 2: video generation failed"),
	})
	if rep.Status != "error" || rep.FinalVideo == "" || rep.Details != "Partial video assembled from 1 of 3 segments" {
		t.Fatalf("report = %+v", rep)
	}
}

func TestReportWithoutError(t *testing.T) {
	rep := Report(domain.PipelineRun{Outcome: domain.OutcomeFailure})
	if rep.Message != "Pipeline error: unknown failure" {
		t.Fatalf("message = %q", rep.Message)
	}
}
