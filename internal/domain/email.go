package domain

import (
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"

	"github.com/spacekimchi/tradesalsa/internal/shared"
)

var (
	emailValidator = validator.New()
	emailFolder    = cases.Fold()
)

// UserEmail is a syntactically valid email address. Instances exist only
// through ParseEmail.
type UserEmail struct {
	address string
	folded  string
}

// ParseEmail validates raw as an email address. The empty string always
// fails.
func ParseEmail(raw string) (UserEmail, error) {
	if err := emailValidator.Var(raw, "required,email"); err != nil {
		return UserEmail{}, shared.NewValidationError(shared.InvalidEmail, "is not a valid email address")
	}
	return UserEmail{address: raw, folded: emailFolder.String(raw)}, nil
}

// String returns the address exactly as it was supplied.
func (e UserEmail) String() string {
	return e.address
}

// Folded returns the case-folded form used for case-insensitive comparison
// and lookups.
func (e UserEmail) Folded() string {
	return e.folded
}

// FoldEmail case-folds an arbitrary email string for lookups where no parsed
// UserEmail is available, such as login submissions.
func FoldEmail(raw string) string {
	return emailFolder.String(raw)
}
