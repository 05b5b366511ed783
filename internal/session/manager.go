package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// FlashMessage is a one-time notification carried in session data.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Manager binds the cookie-carried token of an inbound request to a Store
// record for the duration of that request.
type Manager struct {
	store      Store
	cookieName string
	ttl        time.Duration
	secure     bool
}

// NewManager constructs a Manager on top of a Store.
func NewManager(store Store, cookieName string, ttl time.Duration, secure bool) *Manager {
	return &Manager{store: store, cookieName: cookieName, ttl: ttl, secure: secure}
}

// Session is the in-request view of one stored record.
type Session struct {
	token      string
	values     map[string]string
	userID     string
	flashes    []FlashMessage
	isNew      bool
	dirty      bool
	destroyed  bool
	staleToken string
}

type payload struct {
	Values  map[string]string `json:"values"`
	UserID  string            `json:"user_id"`
	Flashes []FlashMessage    `json:"flashes"`
}

// Load resolves the request cookie to a session. A missing cookie, an
// unknown token, and a logically expired record all yield a fresh anonymous
// session. A store failure also yields an anonymous session, for
// availability, with the error returned alongside so the caller can log it;
// it must never be mistaken for a successful authentication.
func (m *Manager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return m.newSession(), nil
	}

	data, _, err := m.store.Load(ctx, cookie.Value)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return m.newSession(), nil
		}
		return m.newSession(), fmt.Errorf("session: load %q: %w", m.cookieName, err)
	}

	var stored payload
	if err := json.Unmarshal(data, &stored); err != nil {
		return m.newSession(), fmt.Errorf("session: corrupt record: %w", err)
	}

	sess := &Session{
		token:   cookie.Value,
		values:  stored.Values,
		userID:  stored.UserID,
		flashes: stored.Flashes,
	}
	if sess.values == nil {
		sess.values = make(map[string]string)
	}
	return sess, nil
}

// Commit persists the session and writes cookie headers. Authenticated
// sessions get their expiry window refreshed on every commit.
func (m *Manager) Commit(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.destroyed {
		if sess.token != "" {
			if err := m.store.Delete(ctx, sess.token); err != nil {
				return err
			}
		}
		http.SetCookie(w, &http.Cookie{
			Name:     m.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteLaxMode,
		})
		return nil
	}

	// A rotated session leaves its pre-login row behind; remove it so the
	// anonymous token can never act as the authenticated one.
	if sess.staleToken != "" {
		if err := m.store.Delete(ctx, sess.staleToken); err != nil {
			return err
		}
		sess.staleToken = ""
	}

	expiry := time.Now().Add(m.ttl)
	if sess.token == "" || sess.dirty || sess.userID != "" {
		data, err := json.Marshal(payload{Values: sess.values, UserID: sess.userID, Flashes: sess.flashes})
		if err != nil {
			return fmt.Errorf("session: encode: %w", err)
		}
		if sess.token == "" {
			token, err := m.store.Create(ctx, data, expiry)
			if err != nil {
				return err
			}
			sess.token = token
		} else if err := m.store.Save(ctx, sess.token, data, expiry); err != nil {
			return err
		}
		sess.dirty = false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    sess.token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expiry,
	})
	return nil
}

// TTL exposes the configured session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (m *Manager) CookieName() string {
	return m.cookieName
}

func (m *Manager) newSession() *Session {
	return &Session{
		values: make(map[string]string),
		isNew:  true,
		dirty:  true,
	}
}

// Token returns the stored token, empty until the first commit of a fresh
// session.
func (s *Session) Token() string {
	return s.token
}

// UserID returns the authenticated user id, empty for anonymous sessions.
func (s *Session) UserID() string {
	return s.userID
}

// Login binds the session to a user and rotates the token: the pre-login
// anonymous token must never become the authenticated token.
func (s *Session) Login(userID string) {
	if s.token != "" {
		s.staleToken = s.token
		s.token = ""
	}
	s.userID = userID
	s.dirty = true
}

// Logout marks the session record for deletion and the cookie for clearing.
func (s *Session) Logout() {
	s.destroyed = true
}

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.dirty = true
	}
}

// AddFlash queues a one-time message.
func (s *Session) AddFlash(msg FlashMessage) {
	s.flashes = append(s.flashes, msg)
	s.dirty = true
}

// PopFlash retrieves and clears the oldest flash message.
func (s *Session) PopFlash() *FlashMessage {
	if len(s.flashes) == 0 {
		return nil
	}
	msg := s.flashes[0]
	s.flashes = s.flashes[1:]
	s.dirty = true
	return &msg
}
