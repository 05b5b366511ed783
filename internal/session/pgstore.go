package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements Store on the sessions table.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PostgreSQL-backed store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Create inserts a new row under a fresh token.
func (s *PGStore) Create(ctx context.Context, data []byte, expiry time.Time) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO sessions (token, data, expiry) VALUES ($1, $2, $3)`,
		token, data, expiry.UTC())
	if err != nil {
		return "", fmt.Errorf("session: create: %w", err)
	}
	return token, nil
}

// Load fetches a live row. Rows whose expiry has passed are reported as
// absent regardless of whether the reaper has removed them yet.
func (s *PGStore) Load(ctx context.Context, token string) ([]byte, time.Time, error) {
	var data []byte
	var expiry time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT data, expiry FROM sessions WHERE token = $1 AND expiry > $2`,
		token, time.Now().UTC()).Scan(&data, &expiry)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, time.Time{}, ErrNoSession
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("session: load: %w", err)
	}
	return data, expiry, nil
}

// Save upserts the row for token.
func (s *PGStore) Save(ctx context.Context, token string, data []byte, expiry time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (token, data, expiry) VALUES ($1, $2, $3)
		 ON CONFLICT (token) DO UPDATE SET data = EXCLUDED.data, expiry = EXCLUDED.expiry`,
		token, data, expiry.UTC())
	if err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

// Delete removes the row for token.
func (s *PGStore) Delete(ctx context.Context, token string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

// DeleteExpired removes rows with expiry <= before.
func (s *PGStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expiry <= $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("session: delete expired: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ Store = (*PGStore)(nil)
