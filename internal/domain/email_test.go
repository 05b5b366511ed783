package domain_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacekimchi/tradesalsa/internal/domain"
	"github.com/spacekimchi/tradesalsa/internal/shared"
)

func TestParseEmailValid(t *testing.T) {
	for _, raw := range []string{
		"ursula@domain.com",
		"first.last@sub.example.org",
		"User@Example.COM",
	} {
		email, err := domain.ParseEmail(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, raw, email.String())
	}
}

func TestParseEmailInvalid(t *testing.T) {
	for _, raw := range []string{
		"",
		"ursuladomain.com",
		"@domain.com",
		"ursula@",
		"not an email",
	} {
		_, err := domain.ParseEmail(raw)
		require.Error(t, err, "expected %q to be rejected", raw)
		var ve *shared.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, shared.InvalidEmail, ve.Kind)
	}
}

func TestFoldedComparesCaseInsensitively(t *testing.T) {
	a, err := domain.ParseEmail("Ursula@Example.COM")
	require.NoError(t, err)
	b, err := domain.ParseEmail("ursula@example.com")
	require.NoError(t, err)
	assert.Equal(t, a.Folded(), b.Folded())
	assert.NotEqual(t, a.String(), b.String())
}

func TestSecretNeverPrints(t *testing.T) {
	secret := domain.NewSecret("hunter2!A")
	assert.NotContains(t, fmt.Sprintf("%s %v %#v", secret, secret, secret), "hunter2")
	assert.Equal(t, "hunter2!A", secret.Expose())
}
