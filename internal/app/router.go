package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/spacekimchi/tradesalsa/internal/auth"
	"github.com/spacekimchi/tradesalsa/internal/platform/httpx"
	"github.com/spacekimchi/tradesalsa/internal/session"
	"github.com/spacekimchi/tradesalsa/internal/view"
	"github.com/spacekimchi/tradesalsa/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *session.Manager
	CSRFManager    *session.CSRFManager
	AuthHandler    *auth.Handler
	AuthMiddleware auth.Middleware
}

// NewRouter constructs the chi.Router.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
	}) {
		r.Use(mw)
	}
	r.Use(params.AuthMiddleware.LoadCurrentUser)

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Landing page for unauthenticated visitors.
	r.Get("/welcome", func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())
		csrfToken := ""
		var flash *session.FlashMessage
		if sess != nil {
			csrfToken, _ = params.CSRFManager.EnsureToken(sess)
			flash = sess.PopFlash()
		}
		data := view.TemplateData{
			Title:     "Welcome",
			CSRFToken: csrfToken,
			Flash:     flash,
		}
		if err := params.Templates.Render(w, "pages/landing.html", data); err != nil {
			params.Logger.Error("render landing", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})

	// Protected home.
	r.Group(func(r chi.Router) {
		r.Use(params.AuthMiddleware.RequireAuth)
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			sess := session.FromContext(r.Context())
			user := auth.UserFromContext(r.Context())
			csrfToken := ""
			var flash *session.FlashMessage
			if sess != nil {
				csrfToken, _ = params.CSRFManager.EnsureToken(sess)
				flash = sess.PopFlash()
			}
			data := view.TemplateData{
				Title:     "Home",
				CSRFToken: csrfToken,
				Flash:     flash,
				Data:      user,
			}
			if err := params.Templates.Render(w, "pages/home.html", data); err != nil {
				params.Logger.Error("render home", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		})
	})

	params.AuthHandler.MountRoutes(r)

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
