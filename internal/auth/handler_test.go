package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacekimchi/tradesalsa/internal/auth"
	"github.com/spacekimchi/tradesalsa/internal/session"
	"github.com/spacekimchi/tradesalsa/internal/view"
)

type stubMailer struct {
	enqueued []string
	failWith error
}

func (m *stubMailer) EnqueueWelcome(ctx context.Context, email string) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.enqueued = append(m.enqueued, email)
	return nil
}

type authHarness struct {
	server  *httptest.Server
	client  *http.Client
	manager *session.Manager
	store   session.Store
	repo    *stubRepo
	hasher  *auth.Hasher
	mailer  *stubMailer
}

// newAuthHarness stands up the auth routes behind a real session round trip
// backed by miniredis, mirroring how the request middleware wires them.
func newAuthHarness(t *testing.T) *authHarness {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := session.NewRedisStore(client)
	manager := session.NewManager(store, "tradesalsa_session", time.Hour, false)
	csrf := session.NewCSRFManager("test-csrf-secret")

	templates, err := view.NewEngine()
	require.NoError(t, err)

	repo := &stubRepo{}
	hasher := auth.NewHasher(2, 4)
	service := auth.NewService(repo, hasher)
	mailer := &stubMailer{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := auth.NewHandler(logger, service, templates, manager, csrf, mailer)

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, _ := manager.Load(r.Context(), r)
			ctx := session.NewContext(r.Context(), sess)
			rec := httptest.NewRecorder()
			next.ServeHTTP(rec, r.WithContext(ctx))
			for key, vals := range rec.Header() {
				for _, v := range vals {
					w.Header().Add(key, v)
				}
			}
			require.NoError(t, manager.Commit(ctx, w, sess))
			w.WriteHeader(rec.Code)
			_, _ = w.Write(rec.Body.Bytes())
		})
	})
	handler.MountRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	// Redirects stay visible to assertions instead of being followed.
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &authHarness{
		server:  server,
		client:  client,
		manager: manager,
		store:   store,
		repo:    repo,
		hasher:  hasher,
		mailer:  mailer,
	}
}

// postForm submits a form without following redirects, threading an optional
// session cookie through.
func (h *authHarness) postForm(t *testing.T, path string, form url.Values, cookie *http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, h.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := h.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (h *authHarness) get(t *testing.T, path string, cookie *http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.server.URL+path, nil)
	require.NoError(t, err)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := h.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func sessionCookie(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("response carries no %q cookie", name)
	return nil
}

// loadSession reads the committed session back through the manager, the same
// way the next request would see it.
func (h *authHarness) loadSession(t *testing.T, cookie *http.Cookie) *session.Session {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	sess, err := h.manager.Load(context.Background(), req)
	require.NoError(t, err)
	return sess
}

func TestLoginSuccess(t *testing.T) {
	h := newAuthHarness(t)
	user := seedUser(t, h.hasher, h.repo, "user@test.local", "Correct1Pass!")

	resp := h.postForm(t, "/login", url.Values{
		"email":    {"user@test.local"},
		"password": {"Correct1Pass!"},
	}, nil)

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	cookie := sessionCookie(t, resp, "tradesalsa_session")
	assert.True(t, cookie.HttpOnly)

	sess := h.loadSession(t, cookie)
	assert.Equal(t, user.ID.String(), sess.UserID())
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "success", flash.Kind)
}

func TestLoginRotatesSessionToken(t *testing.T) {
	h := newAuthHarness(t)
	seedUser(t, h.hasher, h.repo, "user@test.local", "Correct1Pass!")

	// First visit establishes an anonymous session.
	first := h.get(t, "/login", nil)
	require.Equal(t, http.StatusOK, first.StatusCode)
	anon := sessionCookie(t, first, "tradesalsa_session")

	resp := h.postForm(t, "/login", url.Values{
		"email":    {"user@test.local"},
		"password": {"Correct1Pass!"},
	}, anon)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	authed := sessionCookie(t, resp, "tradesalsa_session")
	assert.NotEqual(t, anon.Value, authed.Value)

	// The pre-login token must be dead.
	_, _, err := h.store.Load(context.Background(), anon.Value)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestLoginWrongPassword(t *testing.T) {
	h := newAuthHarness(t)
	seedUser(t, h.hasher, h.repo, "user@test.local", "Correct1Pass!")

	resp := h.postForm(t, "/login", url.Values{
		"email":    {"user@test.local"},
		"password": {"Wrong1Pass!!"},
	}, nil)

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	sess := h.loadSession(t, sessionCookie(t, resp, "tradesalsa_session"))
	assert.Empty(t, sess.UserID())
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "error", flash.Kind)
	assert.Equal(t, "Invalid Credentials", flash.Message)
}

func TestLoginUnknownEmailLooksIdentical(t *testing.T) {
	h := newAuthHarness(t)

	resp := h.postForm(t, "/login", url.Values{
		"email":    {"nobody@test.local"},
		"password": {"Whatever1!"},
	}, nil)

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	flash := h.loadSession(t, sessionCookie(t, resp, "tradesalsa_session")).PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Invalid Credentials", flash.Message)
}

func TestLoginNextRedirect(t *testing.T) {
	h := newAuthHarness(t)
	seedUser(t, h.hasher, h.repo, "user@test.local", "Correct1Pass!")

	tests := []struct {
		name string
		next string
		want string
	}{
		{"local path honoured", "/reports", "/reports"},
		{"empty falls back to home", "", "/"},
		{"absolute url rejected", "https://evil.example", "/"},
		{"protocol-relative rejected", "//evil.example", "/"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := h.postForm(t, "/login", url.Values{
				"email":    {"user@test.local"},
				"password": {"Correct1Pass!"},
				"next":     {tc.next},
			}, nil)
			require.Equal(t, http.StatusSeeOther, resp.StatusCode)
			assert.Equal(t, tc.want, resp.Header.Get("Location"))
		})
	}
}

func TestLoginFailureKeepsNext(t *testing.T) {
	h := newAuthHarness(t)

	resp := h.postForm(t, "/login", url.Values{
		"email":    {"user@test.local"},
		"password": {"Wrong1Pass!!"},
		"next":     {"/reports"},
	}, nil)

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?next=%2Freports", resp.Header.Get("Location"))
}

func TestRegisterSuccess(t *testing.T) {
	h := newAuthHarness(t)

	resp := h.postForm(t, "/register", url.Values{
		"email":    {"fresh@test.local"},
		"password": {"Valid1Password!"},
	}, nil)

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Equal(t, 1, h.repo.createCalls)
	require.NotNil(t, h.repo.lastCreated)
	assert.Equal(t, "fresh@test.local", h.repo.lastCreated.Email)
	assert.Equal(t, []string{"fresh@test.local"}, h.mailer.enqueued)

	flash := h.loadSession(t, sessionCookie(t, resp, "tradesalsa_session")).PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Successfully registered account!", flash.Message)
}

func TestRegisterWeakPassword(t *testing.T) {
	h := newAuthHarness(t)

	resp := h.postForm(t, "/register", url.Values{
		"email":    {"fresh@test.local"},
		"password": {"a"},
	}, nil)

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/register", resp.Header.Get("Location"))
	assert.Zero(t, h.repo.createCalls)
	assert.Empty(t, h.mailer.enqueued)

	flash := h.loadSession(t, sessionCookie(t, resp, "tradesalsa_session")).PopFlash()
	require.NotNil(t, flash)
	assert.Contains(t, flash.Message, "at least 8 characters")
}

func TestRegisterInvalidEmail(t *testing.T) {
	h := newAuthHarness(t)

	resp := h.postForm(t, "/register", url.Values{
		"email":    {"not-an-email"},
		"password": {"Valid1Password!"},
	}, nil)

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/register", resp.Header.Get("Location"))
	assert.Zero(t, h.repo.createCalls)
}

func TestRegisterDuplicateEmailFlashes(t *testing.T) {
	h := newAuthHarness(t)
	seedUser(t, h.hasher, h.repo, "taken@test.local", "Correct1Pass!")

	resp := h.postForm(t, "/register", url.Values{
		"email":    {"taken@test.local"},
		"password": {"Valid1Password!"},
	}, nil)

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/register", resp.Header.Get("Location"))
	assert.Empty(t, h.mailer.enqueued)

	flash := h.loadSession(t, sessionCookie(t, resp, "tradesalsa_session")).PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "That email is already registered", flash.Message)
}

func TestRegisterMailFailureDoesNotFailRequest(t *testing.T) {
	h := newAuthHarness(t)
	h.mailer.failWith = assert.AnError

	resp := h.postForm(t, "/register", url.Values{
		"email":    {"fresh@test.local"},
		"password": {"Valid1Password!"},
	}, nil)

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Equal(t, 1, h.repo.createCalls)
}

func TestLogoutDestroysSession(t *testing.T) {
	h := newAuthHarness(t)
	seedUser(t, h.hasher, h.repo, "user@test.local", "Correct1Pass!")

	login := h.postForm(t, "/login", url.Values{
		"email":    {"user@test.local"},
		"password": {"Correct1Pass!"},
	}, nil)
	cookie := sessionCookie(t, login, "tradesalsa_session")

	resp := h.postForm(t, "/logout", nil, cookie)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	cleared := sessionCookie(t, resp, "tradesalsa_session")
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)

	// The record is gone, so a replayed cookie is anonymous.
	_, _, err := h.store.Load(context.Background(), cookie.Value)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestLoginAndRegisterPagesRender(t *testing.T) {
	h := newAuthHarness(t)

	for _, path := range []string{"/login", "/register"} {
		resp := h.get(t, path, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
