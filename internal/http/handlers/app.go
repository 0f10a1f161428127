// Package handlers implements the run API: creating runs from uploads,
// reading their state, logs and artifacts, and streaming progress.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"neomentor/internal/domain"
	"neomentor/internal/pipeline"
	"neomentor/internal/progress"
	"neomentor/internal/storage"
)

// Normalizer converts uploaded reference media to the formats the pipeline
// expects. media.Toolkit implements it.
type Normalizer interface {
	NormalizeImage(ctx context.Context, inPath, outPath string) error
	NormalizeAudio(ctx context.Context, inPath, outPath string) error
}

// Check reports the health of one dependency.
type Check func(ctx context.Context) error

type App struct {
	Runs      domain.RunRepository
	Logs      domain.LogRepository
	Artifacts domain.ArtifactRepository
	Stores    storage.Backends
	Workspace *storage.FileStore
	Media     Normalizer
	Voice     pipeline.VoiceCloner
	Publisher progress.Publisher
	Hub       *progress.Hub
	Checks    map[string]Check
	Logger    zerolog.Logger

	PublicBaseURL  string
	MaxUploadBytes int64

	// DefaultVoice is cloned when a voice request carries no recording.
	DefaultVoice string
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.fail(w, code, kind, message, "")
}

// fail writes an error together with what the caller can do about it.
func (a *App) fail(w http.ResponseWriter, code int, kind, message, suggestion string) {
	a.json(w, code, errorBody{Error: kind, Message: message, Suggestion: suggestion})
}

// storeError maps repository errors onto responses.
func (a *App) storeError(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, domain.ErrNotFound) {
		a.error(w, http.StatusNotFound, "not_found", what+" not found")
		return
	}
	a.Logger.Error().Err(err).Str("what", what).Msg("handlers: store failure")
	a.error(w, http.StatusInternalServerError, "internal", "failed to load "+what)
}

func (a *App) publish(ctx context.Context, runID string, pct int, stage, message string) {
	if a.Publisher == nil {
		return
	}
	_ = a.Publisher.Publish(ctx, domain.Event{
		Type:      domain.EventProgress,
		RunID:     runID,
		Message:   message,
		Progress:  pct,
		Stage:     stage,
		Timestamp: time.Now().UTC(),
	})
}
