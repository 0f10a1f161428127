package handlers

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"neomentor/internal/domain"
	"neomentor/pkg/zip"
)

type artifactView struct {
	Kind        domain.ArtifactKind `json:"kind"`
	Backend     string              `json:"backend"`
	MIME        string              `json:"mime"`
	Bytes       int64               `json:"bytes"`
	DownloadURL string              `json:"download_url"`
	CreatedAt   string              `json:"created_at"`
}

func (a *App) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	run, ok := a.loadRun(w, r)
	if !ok {
		return
	}
	artifacts, err := a.Artifacts.ListArtifacts(r.Context(), run.ID)
	if err != nil {
		a.storeError(w, err, "artifacts")
		return
	}
	items := make([]artifactView, 0, len(artifacts))
	for _, art := range artifacts {
		items = append(items, artifactView{
			Kind:        art.Kind,
			Backend:     art.Backend,
			MIME:        art.MIME,
			Bytes:       art.Bytes,
			DownloadURL: a.url("/v1/runs/%s/artifacts/%s", run.ID, art.Kind),
			CreatedAt:   art.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	a.json(w, http.StatusOK, map[string]any{"run_id": run.ID, "items": items})
}

func findArtifact(artifacts []domain.Artifact, kind string) (domain.Artifact, bool) {
	for _, art := range artifacts {
		if string(art.Kind) == kind {
			return art, true
		}
	}
	return domain.Artifact{}, false
}

// DownloadArtifact streams one artifact from whichever backend holds it.
func (a *App) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	run, ok := a.loadRun(w, r)
	if !ok {
		return
	}
	artifacts, err := a.Artifacts.ListArtifacts(r.Context(), run.ID)
	if err != nil {
		a.storeError(w, err, "artifacts")
		return
	}
	art, found := findArtifact(artifacts, chi.URLParam(r, "kind"))
	if !found {
		a.error(w, http.StatusNotFound, "not_found", "artifact not found")
		return
	}
	body, err := a.Stores.Open(r.Context(), art.Backend, art.StorageKey)
	if err != nil {
		a.Logger.Warn().Err(err).Str("run_id", run.ID).Str("kind", string(art.Kind)).Msg("handlers: open artifact")
		a.error(w, http.StatusNotFound, "not_found", "artifact content unavailable")
		return
	}
	defer body.Close()

	ct := art.MIME
	if ct == "" {
		ct = mime.TypeByExtension(path.Ext(art.StorageKey))
	}
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	if art.Bytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(art.Bytes, 10))
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, path.Base(art.StorageKey)))
	if _, err := io.Copy(w, body); err != nil {
		a.Logger.Debug().Err(err).Str("run_id", run.ID).Msg("handlers: artifact stream interrupted")
	}
}

// Archive zips every recorded artifact of a run.
func (a *App) Archive(w http.ResponseWriter, r *http.Request) {
	run, ok := a.loadRun(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	artifacts, err := a.Artifacts.ListArtifacts(ctx, run.ID)
	if err != nil {
		a.storeError(w, err, "artifacts")
		return
	}
	if len(artifacts) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "run has no artifacts")
		return
	}
	entries := make([]zip.Entry, 0, len(artifacts))
	for _, art := range artifacts {
		art := art
		entries = append(entries, zip.Entry{
			Filename: string(art.Kind) + path.Ext(art.StorageKey),
			Modified: art.CreatedAt,
			Open: func() (io.ReadCloser, error) {
				return a.Stores.Open(ctx, art.Backend, art.StorageKey)
			},
		})
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="run_%s.zip"`, run.ID))
	if err := zip.Write(w, entries); err != nil {
		a.Logger.Warn().Err(err).Str("run_id", run.ID).Msg("handlers: archive incomplete")
	}
}
