package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"neomentor/internal/domain"
	"neomentor/internal/middleware"
	"neomentor/internal/pipeline"
	"neomentor/internal/progress"
)

const (
	SuggestCloneText      = "Please enter the text to speak."
	SuggestReferenceVoice = "Please upload a recording of the voice to clone."
)

type voiceCloneResponse struct {
	RunID      string `json:"run_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
	AudioURL   string `json:"audio_url,omitempty"`
}

// CloneVoice speaks the text field in the voice of reference_audio, or of
// DefaultVoice when no recording is uploaded. The result is recorded as the
// cloned_voice artifact of a run that never enters the queue.
func (a *App) CloneVoice(w http.ResponseWriter, r *http.Request) {
	if a.Voice == nil {
		a.fail(w, http.StatusServiceUnavailable, "unavailable", "voice cloning is not configured", SuggestRetryLater)
		return
	}
	limit := a.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUpload
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.fail(w, http.StatusRequestEntityTooLarge, "too_large", "upload exceeds the size limit", SuggestSmallerUpload)
			return
		}
		a.fail(w, http.StatusBadRequest, "bad_request", "expected a multipart form", SuggestCloneText)
		return
	}
	defer r.MultipartForm.RemoveAll()

	text := strings.TrimSpace(r.FormValue("text"))
	if text == "" {
		a.fail(w, http.StatusBadRequest, "invalid_input", "text is required", SuggestCloneText)
		return
	}
	voiceName := strings.TrimSpace(r.FormValue("voice_name"))
	if voiceName == "" {
		voiceName = "default"
	}

	refFile, refHeader, err := r.FormFile("reference_audio")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		refFile = nil
		if a.DefaultVoice == "" {
			a.fail(w, http.StatusBadRequest, "invalid_input", "reference audio is required for voice cloning", SuggestReferenceVoice)
			return
		}
		if _, statErr := os.Stat(a.DefaultVoice); statErr != nil {
			a.Logger.Warn().Err(statErr).Str("path", a.DefaultVoice).Msg("handlers: default voice unavailable")
			a.fail(w, http.StatusBadRequest, "invalid_input", "reference audio is required for voice cloning", SuggestReferenceVoice)
			return
		}
	case err != nil:
		a.fail(w, http.StatusBadRequest, "bad_request", "could not read reference audio", SuggestReuploadAudio)
		return
	default:
		defer refFile.Close()
		if !audioExtensions[strings.ToLower(filepath.Ext(refHeader.Filename))] {
			a.fail(w, http.StatusBadRequest, "invalid_input", "unsupported audio format", SuggestAudioFormat)
			return
		}
	}

	runID := uuid.NewString()
	ctx := r.Context()
	ws, err := pipeline.NewWorkspace(a.Workspace.BasePath(), runID)
	if err != nil {
		a.Logger.Error().Err(err).Str("run_id", runID).Msg("handlers: create workspace")
		a.fail(w, http.StatusInternalServerError, "internal", "failed to prepare workspace", SuggestRetryLater)
		return
	}

	refPath := a.DefaultVoice
	if refFile != nil {
		refPath, err = a.storeUpload(r, ws, "audio", refFile, refHeader, ws.ReferenceAudioPath())
		if err != nil {
			_ = os.RemoveAll(ws.Dir)
			a.fail(w, http.StatusBadRequest, "invalid_input", "the voice recording could not be decoded", SuggestReuploadAudio)
			return
		}
	}

	// Created as running so workers leave it alone.
	run := &domain.Run{
		ID:           runID,
		Topic:        text,
		SegmentCount: 1,
		Status:       domain.RunStatusRunning,
		AudioPath:    refPath,
		WorkDir:      ws.Dir,
		Locale:       middleware.LocaleFromContext(ctx),
		Country:      middleware.CountryFromContext(ctx),
		RequestID:    middleware.RequestIDFromContext(ctx),
	}
	if err := a.Runs.Create(ctx, run); err != nil {
		_ = os.RemoveAll(ws.Dir)
		a.Logger.Error().Err(err).Str("run_id", runID).Msg("handlers: insert voice clone run")
		a.fail(w, http.StatusInternalServerError, "internal", "failed to start voice cloning", SuggestRetryLater)
		return
	}
	rec := progress.NewRecorder(runID, a.Publisher, a.Logs, a.Runs)
	rec.Progress(ctx, 10, "voice_clone_started", "Starting voice cloning")
	rec.Progress(ctx, 30, "processing_audio", "Cloning voice")

	logger := a.Logger.With().Str("run_id", runID).Str("voice_name", voiceName).Logger()
	out, err := a.Voice.CloneVoice(ctx, refPath, text, filepath.Join(ws.Dir, "cloned_voice_"+runID+".wav"))
	if err == nil {
		err = a.recordClone(r, runID, out)
	}
	if err != nil {
		logger.Error().Err(err).Msg("voice cloning failed")
		suggestion := SuggestRetryLater
		if errors.Is(err, domain.ErrInvalidInput) {
			suggestion = SuggestReuploadAudio
		}
		msg := "Failed to generate cloned voice"
		_ = a.Runs.Finish(ctx, runID, domain.RunUpdate{
			Status:     domain.RunStatusFailed,
			Progress:   progress.PctCompleted,
			Stage:      "failed",
			Message:    msg,
			Suggestion: suggestion,
		})
		a.publish(ctx, runID, progress.PctCompleted, "failed", msg)
		a.json(w, http.StatusBadGateway, voiceCloneResponse{RunID: runID, Status: string(domain.RunStatusFailed), Message: msg, Suggestion: suggestion})
		return
	}

	msg := "Voice cloning completed successfully"
	if err := a.Runs.Finish(ctx, runID, domain.RunUpdate{
		Status:         domain.RunStatusCompleted,
		Progress:       progress.PctCompleted,
		Stage:          "completed",
		Message:        msg,
		SegmentsMerged: 1,
	}); err != nil {
		logger.Warn().Err(err).Msg("handlers: finish voice clone run")
	}
	a.publish(ctx, runID, progress.PctCompleted, "completed", msg)
	logger.Info().Int("chars", len(text)).Msg("voice cloned")
	a.json(w, http.StatusOK, voiceCloneResponse{
		RunID:    runID,
		Status:   string(domain.RunStatusCompleted),
		Message:  msg,
		AudioURL: a.url("/v1/runs/%s/artifacts/%s", runID, domain.ArtifactClonedVoice),
	})
}

func (a *App) recordClone(r *http.Request, runID, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	key, err := a.Workspace.Key(path)
	if err != nil {
		return err
	}
	return a.Artifacts.SaveArtifact(r.Context(), domain.Artifact{
		RunID:      runID,
		Kind:       domain.ArtifactClonedVoice,
		StorageKey: key,
		Backend:    a.Workspace.Backend(),
		MIME:       "audio/wav",
		Bytes:      info.Size(),
	})
}
