package domain

import (
	"github.com/spacekimchi/tradesalsa/internal/shared"
)

const minPasswordLength = 8

// UserPassword is a password that satisfied every strength rule at
// construction time. Instances exist only through ParsePassword.
type UserPassword struct {
	secret Secret
}

// ParsePassword checks every strength rule and reports all that failed.
// Rules are independent and order-insensitive.
func ParsePassword(raw string) (UserPassword, error) {
	var failed []string
	if len(raw) < minPasswordLength {
		failed = append(failed, "must be at least 8 characters long")
	}
	var lower, upper, digit, special bool
	for _, c := range raw {
		switch {
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= '0' && c <= '9':
			digit = true
		default:
			special = true
		}
	}
	if !lower {
		failed = append(failed, "must contain at least one lowercase letter")
	}
	if !upper {
		failed = append(failed, "must contain at least one uppercase letter")
	}
	if !digit {
		failed = append(failed, "must contain at least one digit")
	}
	if !special {
		failed = append(failed, "must contain at least one special character")
	}
	if len(failed) > 0 {
		return UserPassword{}, shared.NewValidationError(shared.WeakPassword, failed...)
	}
	return UserPassword{secret: NewSecret(raw)}, nil
}

// Secret returns the wrapped credential for handoff to the hasher.
func (p UserPassword) Secret() Secret {
	return p.secret
}

func (p UserPassword) String() string {
	return redacted
}

func (p UserPassword) GoString() string {
	return redacted
}
