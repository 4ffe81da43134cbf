package app

import (
	"io/fs"
	"log"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/slooze/slooze-web/internal/dashboard"
	"github.com/slooze/slooze-web/internal/observability"
	"github.com/slooze/slooze-web/internal/platform/httpx"
	"github.com/slooze/slooze-web/internal/shared"
	"github.com/slooze/slooze-web/web"
)

func init() {
	if mime.TypeByExtension(".css") == "" {
		if err := mime.AddExtensionType(".css", "text/css; charset=utf-8"); err != nil {
			log.Printf("app: register MIME type for .css: %v", err)
		}
	}
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	DashboardHandler *dashboard.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with the default middleware stack.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	// Probes, metrics and assets skip the session and CSRF layers.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.Group(func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:         params.Logger,
			Config:         params.Config,
			SessionManager: params.SessionManager,
			CSRFManager:    params.CSRFManager,
			Metrics:        params.Metrics,
		}) {
			r.Use(mw)
		}
		r.Use(chimw.Logger)

		params.DashboardHandler.MountRoutes(r)
	})

	return r
}

// staticCacheHandler caches embedded assets in the browser for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
