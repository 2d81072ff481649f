package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"stickerforge/internal/http/handlers"
	"stickerforge/internal/infra"
	"stickerforge/internal/middleware"
)

// Options configures cross-cutting router behaviour.
type Options struct {
	Logger          *infra.Logger
	CORSOrigins     []string
	RateLimitPerMin int
	Metrics         http.Handler
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(*logger),
		chimw.Recoverer,
		middleware.CORS(opts.CORSOrigins),
	)

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	limited := middleware.RateLimit(opts.RateLimitPerMin, time.Minute)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/session", app.GetSession)
		r.Get("/events", app.Events)

		r.Put("/reference", app.PutReference)
		r.Delete("/reference", app.DeleteReference)

		r.Get("/labels", app.GetLabels)
		r.Put("/labels", app.PutLabels)

		r.With(limited).Post("/batches", app.StartBatch)

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", app.ListJobs)
			r.Get("/{id}", app.GetJob)
			r.Get("/{id}/image", app.JobImage)
			r.With(limited).Post("/{id}/retry", app.RetryJob)
		})

		r.Get("/pack.zip", app.DownloadPack)
	})

	return r
}
