package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacekimchi/tradesalsa/internal/session"
)

func TestCSRFTokenRoundTrip(t *testing.T) {
	manager := newManager(t)
	csrf := session.NewCSRFManager("csrfsecret")
	ctx := context.Background()

	sess, err := manager.Load(ctx, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.NoError(t, err)

	token, err := csrf.EnsureToken(sess)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Stable across calls within the same session.
	again, err := csrf.EnsureToken(sess)
	require.NoError(t, err)
	assert.Equal(t, token, again)

	assert.NoError(t, csrf.VerifyToken(sess, token))
	assert.ErrorIs(t, csrf.VerifyToken(sess, "forged"), session.ErrCSRFTokenMismatch)
	assert.ErrorIs(t, csrf.VerifyToken(sess, ""), session.ErrCSRFTokenMissing)
}

func TestCSRFTokenSurvivesCommit(t *testing.T) {
	manager := newManager(t)
	csrf := session.NewCSRFManager("csrfsecret")
	ctx := context.Background()

	sess, err := manager.Load(ctx, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.NoError(t, err)
	token, err := csrf.EnsureToken(sess)
	require.NoError(t, err)

	res := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, res, sess))

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.AddCookie(&http.Cookie{Name: manager.CookieName(), Value: sess.Token()})
	reloaded, err := manager.Load(ctx, req)
	require.NoError(t, err)
	assert.NoError(t, csrf.VerifyToken(reloaded, token))
}
