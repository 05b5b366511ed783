// Package session provides durable cookie-backed sessions: a Store
// abstraction over Postgres or Redis rows, a per-request Manager binding the
// cookie token to a stored record, and a background Reaper that deletes
// expired rows.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoSession is returned by Load when no live record exists for a
	// token. A logically expired row is reported the same way even when it
	// has not been physically deleted yet.
	ErrNoSession = errors.New("session: no such session")
)

// Store is the minimal capability set for session persistence. All
// operations are atomic at the row level; exactly one row exists per token.
type Store interface {
	// Create persists data under a freshly generated token and returns it.
	Create(ctx context.Context, data []byte, expiry time.Time) (string, error)
	// Load returns the data and expiry for token, or ErrNoSession.
	Load(ctx context.Context, token string) ([]byte, time.Time, error)
	// Save upserts the record for token.
	Save(ctx context.Context, token string, data []byte, expiry time.Time) error
	// Delete removes the record for token. Deleting an absent token is not
	// an error.
	Delete(ctx context.Context, token string) error
	// DeleteExpired removes every record with expiry <= before and returns
	// the number of rows deleted.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

const tokenBytes = 32

// generateToken draws 256 bits from crypto/rand, well past the guessing
// threshold for an opaque session key.
func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
