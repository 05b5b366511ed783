package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/spacekimchi/tradesalsa/internal/session"
)

type userContextKey struct{}

// ContextWithUser stores the resolved user in ctx.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext extracts the current user, nil when anonymous.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey{}).(*User)
	return user
}

// Middleware resolves the session's user id to a User once per request and
// gates protected routes.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// LoadCurrentUser attaches the authenticated user, if any, to the request
// context. A session naming a vanished user stays anonymous; a storage
// failure is logged and the request continues anonymously.
func (m Middleware) LoadCurrentUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())
		if sess == nil || sess.UserID() == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := uuid.Parse(sess.UserID())
		if err != nil {
			m.Logger.Warn("malformed user id in session", slog.Any("error", err))
			next.ServeHTTP(w, r)
			return
		}
		user, err := m.Service.LoadUser(r.Context(), id)
		if err != nil {
			m.Logger.Error("load current user", slog.Any("error", err))
			next.ServeHTTP(w, r)
			return
		}
		if user == nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

// RequireAuth redirects anonymous requests to the login page, preserving the
// requested path as the post-login target.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			target := "/login"
			if r.URL.Path != "/" && r.URL.Path != "" {
				target += "?next=" + url.QueryEscape(r.URL.Path)
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
