package handlers

import (
	"net/http"
	"time"

	"neomentor/internal/domain"
)

// Stream upgrades to a websocket and relays the run's log and progress
// events. The current state is sent first.
func (a *App) Stream(w http.ResponseWriter, r *http.Request) {
	run, ok := a.loadRun(w, r)
	if !ok {
		return
	}
	if a.Hub == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "progress streaming is not configured")
		return
	}
	stage := run.Stage
	if run.Status == domain.RunStatusFailed {
		stage = "failed"
	}
	snapshot := &domain.Event{
		Type:      domain.EventProgress,
		RunID:     run.ID,
		Message:   run.Message,
		Progress:  run.Progress,
		Stage:     stage,
		Timestamp: time.Now().UTC(),
	}
	if err := a.Hub.Serve(w, r, run.ID, snapshot); err != nil {
		a.Logger.Debug().Err(err).Str("run_id", run.ID).Msg("ws: session ended")
	}
}
