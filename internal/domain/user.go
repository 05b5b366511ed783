package domain

// NewUser is a validated registration payload. Both fields are only
// constructible through their parse functions, so an instance can never
// carry data that failed validation.
type NewUser struct {
	Email    UserEmail
	Password UserPassword
}

// ParseNewUser assembles a NewUser from raw registration input. It returns
// the first validation failure encountered.
func ParseNewUser(email, password string) (NewUser, error) {
	e, err := ParseEmail(email)
	if err != nil {
		return NewUser{}, err
	}
	p, err := ParsePassword(password)
	if err != nil {
		return NewUser{}, err
	}
	return NewUser{Email: e, Password: p}, nil
}

// Credentials is the transient payload of a login submission. It lives only
// for the duration of one request and is never persisted.
type Credentials struct {
	Email    string
	Password Secret
	// Next is an optional post-login redirect target.
	Next string
}
