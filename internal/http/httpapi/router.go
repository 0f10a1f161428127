package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"neomentor/internal/http/handlers"
	"neomentor/internal/middleware"
)

// Options carries the cross-cutting settings of the router.
type Options struct {
	Logger          zerolog.Logger
	AllowedOrigins  []string
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/v1/healthz", app.Health)

	// Run creation and voice cloning share one budget per client.
	limited := middleware.RateLimit(opts.RateLimitPerMin, time.Minute)
	r.With(limited).Post("/v1/voice/clone", app.CloneVoice)

	r.Route("/v1/runs", func(r chi.Router) {
		r.With(limited).Post("/", app.CreateRun)
		r.Get("/", app.ListRuns)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", app.GetRun)
			r.Delete("/", app.DeleteRun)
			r.Get("/status", app.RunStatus)
			r.Get("/logs", app.RunLogs)
			r.Get("/logs/download", app.DownloadLogs)
			r.Get("/artifacts", app.ListArtifacts)
			r.Get("/artifacts/{kind}", app.DownloadArtifact)
			r.Get("/archive", app.Archive)
		})
	})

	r.Get("/v1/ws/{id}", app.Stream)

	return r
}
