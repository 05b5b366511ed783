package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/spacekimchi/tradesalsa/internal/domain"
	"github.com/spacekimchi/tradesalsa/internal/shared"
)

// dummyHash is a real bcrypt digest that matches no issued password. When a
// login names an unknown email we still verify against it, so the response
// latency does not reveal whether the email exists.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	hasher *Hasher
}

// NewService constructs a new Service.
func NewService(repo Repository, hasher *Hasher) *Service {
	return &Service{repo: repo, hasher: hasher}
}

// Authenticate verifies login credentials. A wrong password and an unknown
// email both return (nil, nil): "no such credentials" is not an error and
// the two cases are indistinguishable to the caller. Only infrastructure
// failures return an error.
func (s *Service) Authenticate(ctx context.Context, creds domain.Credentials) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, domain.FoldEmail(creds.Email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Burn the same hashing work as the wrong-password path.
			if _, verr := s.hasher.Verify(ctx, dummyHash, creds.Password); verr != nil {
				return nil, shared.Internal(verr)
			}
			return nil, nil
		}
		return nil, shared.Internal(err)
	}

	match, err := s.hasher.Verify(ctx, user.PasswordHash, creds.Password)
	if err != nil {
		return nil, shared.Internal(err)
	}
	if !match {
		return nil, nil
	}
	return user, nil
}

// LoadUser fetches a user by id. An unknown id returns (nil, nil) so callers
// can treat vanished accounts as anonymous sessions.
func (s *Service) LoadUser(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, shared.Internal(err)
	}
	return user, nil
}

// Register hashes the validated password and creates the user row.
func (s *Service) Register(ctx context.Context, newUser domain.NewUser) (*User, error) {
	hash, err := s.hasher.Hash(ctx, newUser.Password)
	if err != nil {
		return nil, shared.Internal(err)
	}
	user := &User{
		ID:           uuid.New(),
		Email:        newUser.Email.String(),
		PasswordHash: hash,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, shared.ErrEmailTaken) {
			return nil, shared.ErrEmailTaken
		}
		return nil, shared.Internal(fmt.Errorf("register: %w", err))
	}
	return user, nil
}
