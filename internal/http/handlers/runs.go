package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"neomentor/internal/domain"
	"neomentor/internal/middleware"
	"neomentor/internal/pipeline"
	"neomentor/internal/progress"
)

const defaultMaxUpload = 50 << 20

var (
	imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".bmp": true, ".gif": true}
	audioExtensions = map[string]bool{".wav": true, ".mp3": true, ".m4a": true, ".ogg": true, ".flac": true, ".aac": true, ".webm": true}
)

// Suggestions returned with rejected uploads.
const (
	SuggestMultipart     = "Please submit the form as multipart/form-data with a topic and an audio file."
	SuggestSmallerUpload = "Please upload smaller files."
	SuggestTopic         = "Please enter the main topic of the lesson."
	SuggestAudio         = "Please upload an audio file of the voice to use for narration."
	SuggestAudioFormat   = "Please upload the voice recording as WAV, MP3, M4A, OGG, FLAC, AAC or WEBM."
	SuggestImageFormat   = "Please upload the image as JPG, PNG, WEBP, BMP or GIF."
	SuggestReuploadAudio = "Please re-upload your audio file."
	SuggestReuploadImage = "Please re-upload your image file."
	SuggestRetryLater    = "Please try again in a few moments."
)

type createRunResponse struct {
	RunID        string `json:"run_id"`
	Status       string `json:"status"`
	SegmentCount int    `json:"segment_count"`
	WebsocketURL string `json:"websocket_url"`
	StatusURL    string `json:"status_url"`
}

type runView struct {
	ID               string           `json:"run_id"`
	Topic            string           `json:"topic"`
	RequestedSeconds int              `json:"requested_seconds"`
	SegmentCount     int              `json:"segment_count"`
	ClipSeconds      int              `json:"clip_seconds"`
	Status           domain.RunStatus `json:"status"`
	Progress         int              `json:"progress"`
	Stage            string           `json:"stage"`
	Message          string           `json:"message,omitempty"`
	Suggestion       string           `json:"suggestion,omitempty"`
	SegmentsMerged   int              `json:"segments_merged"`
	FinalVideo       string           `json:"final_video,omitempty"`
	Locale           string           `json:"locale,omitempty"`
	Country          string           `json:"country,omitempty"`
	CreatedAt        string           `json:"created_at"`
	UpdatedAt        string           `json:"updated_at"`
	Files            []pipeline.File  `json:"files,omitempty"`
}

func (a *App) view(run *domain.Run) runView {
	v := runView{
		ID:               run.ID,
		Topic:            run.Topic,
		RequestedSeconds: run.RequestedSeconds,
		SegmentCount:     run.SegmentCount,
		ClipSeconds:      run.ClipSeconds,
		Status:           run.Status,
		Progress:         run.Progress,
		Stage:            run.Stage,
		Message:          run.Message,
		Suggestion:       run.Suggestion,
		SegmentsMerged:   run.SegmentsMerged,
		Locale:           run.Locale,
		Country:          run.Country,
		CreatedAt:        run.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        run.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if run.FinalKey != "" {
		v.FinalVideo = a.url("/v1/runs/%s/artifacts/%s", run.ID, domain.ArtifactFinalVideo)
	}
	return v
}

func (a *App) url(format string, args ...any) string {
	return strings.TrimRight(a.PublicBaseURL, "/") + fmt.Sprintf(format, args...)
}

func (a *App) websocketURL(runID string) string {
	base := strings.TrimRight(a.PublicBaseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/v1/ws/" + runID
}

// CreateRun accepts a multipart form with topic, requested_time (or
// duration), an optional image and a required voice sample, stores the
// uploads in a fresh workspace and queues the run.
func (a *App) CreateRun(w http.ResponseWriter, r *http.Request) {
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
		a.fail(w, http.StatusBadRequest, "bad_request", "expected a multipart form", SuggestMultipart)
		return
	}
	defer r.MultipartForm.RemoveAll()

	runID := uuid.NewString()
	ctx := r.Context()
	a.publish(ctx, runID, progress.PctInitialized, "initialization", "Starting NeoMentor processing")

	topic := r.FormValue("topic")
	if strings.TrimSpace(topic) == "" {
		topic = r.FormValue("prompt")
	}
	req, err := pipeline.FormatRequest(topic, requestedTime(r))
	if err != nil {
		a.fail(w, http.StatusBadRequest, "invalid_input", "Main Topic is required", SuggestTopic)
		return
	}

	audioFile, audioHeader, err := r.FormFile("audio")
	if err != nil {
		a.fail(w, http.StatusBadRequest, "invalid_input", "a reference voice recording is required", SuggestAudio)
		return
	}
	defer audioFile.Close()
	if !audioExtensions[strings.ToLower(filepath.Ext(audioHeader.Filename))] {
		a.fail(w, http.StatusBadRequest, "invalid_input", "unsupported audio format", SuggestAudioFormat)
		return
	}
	imageFile, imageHeader, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		imageFile = nil
	case err != nil:
		a.fail(w, http.StatusBadRequest, "bad_request", "could not read image upload", SuggestReuploadImage)
		return
	default:
		defer imageFile.Close()
		if !imageExtensions[strings.ToLower(filepath.Ext(imageHeader.Filename))] {
			a.fail(w, http.StatusBadRequest, "invalid_input", "unsupported image format", SuggestImageFormat)
			return
		}
	}

	ws, err := pipeline.NewWorkspace(a.Workspace.BasePath(), runID)
	if err != nil {
		a.Logger.Error().Err(err).Str("run_id", runID).Msg("handlers: create workspace")
		a.fail(w, http.StatusInternalServerError, "internal", "failed to prepare workspace", SuggestRetryLater)
		return
	}
	cleanup := func() { _ = os.RemoveAll(ws.Dir) }

	audioPath, err := a.storeUpload(r, ws, "audio", audioFile, audioHeader, ws.ReferenceAudioPath())
	if err != nil {
		cleanup()
		a.fail(w, http.StatusBadRequest, "invalid_input", "the voice recording could not be decoded", SuggestReuploadAudio)
		return
	}
	imagePath := ""
	if imageFile != nil {
		imagePath, err = a.storeUpload(r, ws, "image", imageFile, imageHeader, ws.ReferenceImagePath())
		if err != nil {
			cleanup()
			a.fail(w, http.StatusBadRequest, "invalid_input", "the reference image could not be decoded", SuggestReuploadImage)
			return
		}
	}

	run := &domain.Run{
		ID:               runID,
		Topic:            req.Topic,
		RequestedSeconds: req.Seconds,
		SegmentCount:     req.SegmentCount,
		ClipSeconds:      req.ClipSeconds,
		Status:           domain.RunStatusQueued,
		ImagePath:        imagePath,
		AudioPath:        audioPath,
		WorkDir:          ws.Dir,
		Locale:           middleware.LocaleFromContext(ctx),
		Country:          middleware.CountryFromContext(ctx),
		RequestID:        middleware.RequestIDFromContext(ctx),
	}
	if err := a.Runs.Create(ctx, run); err != nil {
		cleanup()
		a.Logger.Error().Err(err).Str("run_id", runID).Msg("handlers: insert run")
		a.fail(w, http.StatusInternalServerError, "internal", "failed to queue run", SuggestRetryLater)
		return
	}
	rec := progress.NewRecorder(runID, a.Publisher, a.Logs, a.Runs)
	rec.Progress(ctx, progress.PctSaved, "run_saved", "Run saved")
	rec.Progress(ctx, progress.PctFilesUploaded, "files_uploaded", "Reference files stored")

	a.Logger.Info().
		Str("run_id", runID).
		Str("topic", req.Topic).
		Int("segments", req.SegmentCount).
		Bool("has_image", imagePath != "").
		Msg("run queued")
	a.json(w, http.StatusAccepted, createRunResponse{
		RunID:        runID,
		Status:       string(domain.RunStatusQueued),
		SegmentCount: req.SegmentCount,
		WebsocketURL: a.websocketURL(runID),
		StatusURL:    a.url("/v1/runs/%s/status", runID),
	})
}

// requestedTime prefers requested_time; a numeric duration is accepted when
// it is one of the supported clip lengths.
func requestedTime(r *http.Request) string {
	if v := strings.TrimSpace(r.FormValue("requested_time")); v != "" {
		return v
	}
	if d, err := strconv.Atoi(strings.TrimSpace(r.FormValue("duration"))); err == nil {
		return fmt.Sprintf("%ds", pipeline.NormalizeClipSeconds(d))
	}
	return ""
}

func (a *App) storeUpload(r *http.Request, ws pipeline.Workspace, kind string, src multipart.File, hdr *multipart.FileHeader, outPath string) (string, error) {
	raw := ws.UploadPath(kind, hdr.Filename)
	dst, err := os.Create(raw)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}
	normalize := a.Media.NormalizeAudio
	if kind == "image" {
		normalize = a.Media.NormalizeImage
	}
	if err := normalize(r.Context(), raw, outPath); err != nil {
		a.Logger.Warn().Err(err).Str("kind", kind).Str("file", hdr.Filename).Msg("handlers: normalize upload")
		return "", err
	}
	return outPath, nil
}

func (a *App) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := a.Runs.ListRecent(r.Context(), limit)
	if err != nil {
		a.storeError(w, err, "runs")
		return
	}
	items := make([]runView, 0, len(runs))
	for i := range runs {
		items = append(items, a.view(&runs[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) loadRun(w http.ResponseWriter, r *http.Request) (*domain.Run, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		a.error(w, http.StatusNotFound, "not_found", "run not found")
		return nil, false
	}
	run, err := a.Runs.Get(r.Context(), id)
	if err != nil {
		a.storeError(w, err, "run")
		return nil, false
	}
	return run, true
}

// GetRun returns the run record together with the files in its workspace.
func (a *App) GetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := a.loadRun(w, r)
	if !ok {
		return
	}
	v := a.view(run)
	if run.WorkDir != "" {
		ws := pipeline.Workspace{RunID: run.ID, Dir: run.WorkDir}
		if files, err := ws.Files(); err == nil {
			v.Files = files
		}
	}
	a.json(w, http.StatusOK, v)
}

func (a *App) RunStatus(w http.ResponseWriter, r *http.Request) {
	run, ok := a.loadRun(w, r)
	if !ok {
		return
	}
	v := a.view(run)
	a.json(w, http.StatusOK, map[string]any{
		"run_id":          run.ID,
		"status":          run.Status,
		"progress":        run.Progress,
		"stage":           run.Stage,
		"message":         run.Message,
		"suggestion":      run.Suggestion,
		"segments_merged": run.SegmentsMerged,
		"final_video":     v.FinalVideo,
	})
}

func (a *App) RunLogs(w http.ResponseWriter, r *http.Request) {
	run, ok := a.loadRun(w, r)
	if !ok {
		return
	}
	lines, err := a.Logs.ListLogs(r.Context(), run.ID)
	if err != nil {
		a.storeError(w, err, "logs")
		return
	}
	if lines == nil {
		lines = []domain.LogLine{}
	}
	a.json(w, http.StatusOK, map[string]any{
		"run_id": run.ID,
		"logs":   string(progress.FormatLog(lines)),
		"lines":  lines,
	})
}

func (a *App) DownloadLogs(w http.ResponseWriter, r *http.Request) {
	run, ok := a.loadRun(w, r)
	if !ok {
		return
	}
	lines, err := a.Logs.ListLogs(r.Context(), run.ID)
	if err != nil {
		a.storeError(w, err, "logs")
		return
	}
	if len(lines) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "run has no logs yet")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="run_%s_logs.txt"`, run.ID))
	_, _ = w.Write(progress.FormatLog(lines))
}

// DeleteRun removes a finished or queued run together with its workspace
// and stored artifacts.
func (a *App) DeleteRun(w http.ResponseWriter, r *http.Request) {
	run, ok := a.loadRun(w, r)
	if !ok {
		return
	}
	if run.Status == domain.RunStatusRunning {
		a.error(w, http.StatusConflict, "conflict", "run is still processing")
		return
	}
	ctx := r.Context()
	artifacts, err := a.Artifacts.ListArtifacts(ctx, run.ID)
	if err != nil {
		a.storeError(w, err, "artifacts")
		return
	}
	for _, art := range artifacts {
		store, err := a.Stores.Get(art.Backend)
		if err != nil {
			continue
		}
		if err := store.Delete(ctx, art.StorageKey); err != nil {
			a.Logger.Warn().Err(err).Str("run_id", run.ID).Str("key", art.StorageKey).Msg("handlers: delete artifact")
		}
	}
	if a.Workspace != nil {
		if err := a.Workspace.RemoveAll(run.ID); err != nil {
			a.Logger.Warn().Err(err).Str("run_id", run.ID).Msg("handlers: remove workspace")
		}
	}
	if err := a.Runs.Delete(ctx, run.ID); err != nil {
		a.storeError(w, err, "run")
		return
	}
	a.Logger.Info().Str("run_id", run.ID).Int("artifacts", len(artifacts)).Msg("run deleted")
	w.WriteHeader(http.StatusNoContent)
}
