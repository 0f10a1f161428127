package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(a.Checks))
	for name := range a.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status, code := "ok", http.StatusOK
	services := make(map[string]string, len(names))
	for _, name := range names {
		if err := a.Checks[name](ctx); err != nil {
			services[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		services[name] = "ok"
	}
	a.json(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"services":  services,
	})
}
