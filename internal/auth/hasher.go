package auth

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/spacekimchi/tradesalsa/internal/domain"
)

// Hasher computes and verifies bcrypt password hashes on a bounded worker
// pool. Hashing is deliberately expensive, so it must never run inline on a
// request-serving goroutine where it would stall unrelated requests; callers
// block on the pooled result or on their context.
type Hasher struct {
	sem  *semaphore.Weighted
	cost int
}

// NewHasher builds a Hasher with at most workers concurrent hash operations.
// workers <= 0 defaults to the number of CPUs; cost outside bcrypt's valid
// range defaults to bcrypt.DefaultCost.
func NewHasher(workers int64, cost int) *Hasher {
	if workers <= 0 {
		workers = int64(runtime.NumCPU())
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{sem: semaphore.NewWeighted(workers), cost: cost}
}

// Hash produces a salted bcrypt hash of the password. The salt is embedded
// in the returned string.
func (h *Hasher) Hash(ctx context.Context, password domain.UserPassword) (string, error) {
	var hash string
	err := h.dispatch(ctx, func() error {
		b, err := bcrypt.GenerateFromPassword([]byte(password.Secret().Expose()), h.cost)
		if err != nil {
			return fmt.Errorf("hasher: %w", err)
		}
		hash = string(b)
		return nil
	})
	if err != nil {
		return "", err
	}
	return hash, nil
}

// Verify reports whether password matches hash. A malformed stored hash is a
// mismatch, never an error; only pool or cancellation failures error out.
func (h *Hasher) Verify(ctx context.Context, hash string, password domain.Secret) (bool, error) {
	var match bool
	err := h.dispatch(ctx, func() error {
		match = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password.Expose())) == nil
		return nil
	})
	if err != nil {
		return false, err
	}
	return match, nil
}

// dispatch runs fn on the pool and waits for it, or for ctx.
func (h *Hasher) dispatch(ctx context.Context, fn func() error) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("hasher: acquire worker: %w", err)
	}
	done := make(chan error, 1)
	go func() {
		defer h.sem.Release(1)
		done <- fn()
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("hasher: %w", ctx.Err())
	case err := <-done:
		return err
	}
}
