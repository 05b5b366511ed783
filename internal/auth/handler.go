package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/spacekimchi/tradesalsa/internal/domain"
	"github.com/spacekimchi/tradesalsa/internal/session"
	"github.com/spacekimchi/tradesalsa/internal/shared"
	"github.com/spacekimchi/tradesalsa/internal/view"
)

// WelcomeMailer dispatches the post-registration welcome notification.
// Delivery runs out of band; a failure never fails the registration.
type WelcomeMailer interface {
	EnqueueWelcome(ctx context.Context, email string) error
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *session.Manager
	csrfManager    *session.CSRFManager
	mailer         WelcomeMailer
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *session.Manager, csrf *session.CSRFManager, mailer WelcomeMailer) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		mailer:         mailer,
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Get("/register", h.showRegister)
	r.Post("/register", h.handleRegister)
	r.Post("/logout", h.handleLogout)
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	h.renderAuthPage(w, r, "pages/login.html", "Log in")
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	h.renderAuthPage(w, r, "pages/register.html", "Register")
}

func (h *Handler) renderAuthPage(w http.ResponseWriter, r *http.Request, page, title string) {
	sess := session.FromContext(r.Context())
	csrfToken := ""
	if sess != nil {
		csrfToken, _ = h.csrfManager.EnsureToken(sess)
	}
	var flash *session.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	data := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Next:        r.URL.Query().Get("next"),
	}
	if err := h.templates.Render(w, page, data); err != nil {
		h.logger.Error("render "+page, slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := session.FromContext(r.Context())

	creds := domain.Credentials{
		Email:    r.PostFormValue("email"),
		Password: domain.NewSecret(r.PostFormValue("password")),
		Next:     r.PostFormValue("next"),
	}

	if creds.Email == "" || creds.Password.Expose() == "" {
		h.rejectLogin(w, r, sess, creds.Next)
		return
	}

	user, err := h.service.Authenticate(r.Context(), creds)
	if err != nil {
		h.logger.Error("authenticate", slog.String("path", r.URL.Path), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if user == nil {
		h.rejectLogin(w, r, sess, creds.Next)
		return
	}

	if sess != nil {
		sess.Login(user.ID.String())
		sess.AddFlash(session.FlashMessage{Kind: "success", Message: "Successfully logged in as " + user.Email})
	} else {
		h.logger.Error("session missing during login")
	}

	http.Redirect(w, r, safeNext(creds.Next), http.StatusSeeOther)
}

// rejectLogin answers every bad-credentials shape identically: generic flash
// and a redirect back to the form, keeping the intended target.
func (h *Handler) rejectLogin(w http.ResponseWriter, r *http.Request, sess *session.Session, next string) {
	if sess != nil {
		sess.AddFlash(session.FlashMessage{Kind: "error", Message: "Invalid Credentials"})
	}
	target := "/login"
	if next != "" {
		target += "?next=" + url.QueryEscape(next)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := session.FromContext(r.Context())

	newUser, err := domain.ParseNewUser(r.PostFormValue("email"), r.PostFormValue("password"))
	if err != nil {
		if !shared.IsValidation(err) {
			h.logger.Error("parse registration", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if sess != nil {
			sess.AddFlash(session.FlashMessage{Kind: "error", Message: err.Error()})
		}
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	}

	user, err := h.service.Register(r.Context(), newUser)
	if err != nil {
		if errors.Is(err, shared.ErrEmailTaken) {
			if sess != nil {
				sess.AddFlash(session.FlashMessage{Kind: "error", Message: "That email is already registered"})
			}
			http.Redirect(w, r, "/register", http.StatusSeeOther)
			return
		}
		h.logger.Error("register", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if h.mailer != nil {
		if err := h.mailer.EnqueueWelcome(r.Context(), user.Email); err != nil {
			h.logger.Warn("enqueue welcome email", slog.String("email", user.Email), slog.Any("error", err))
		}
	}

	if sess != nil {
		sess.AddFlash(session.FlashMessage{Kind: "success", Message: "Successfully registered account!"})
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := session.FromContext(r.Context()); sess != nil {
		sess.Logout()
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// safeNext confines post-login redirects to local paths so the next
// parameter cannot bounce users to another origin.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}
