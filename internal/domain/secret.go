package domain

import "log/slog"

const redacted = "[REDACTED]"

// Secret is an opaque holder for a raw credential. The wrapped value is
// reachable only through Expose, which exists for the hashing boundary.
// Every formatting path prints a redaction marker instead of the value.
type Secret struct {
	raw string
}

// NewSecret wraps a raw credential without validating it. Login submissions
// carry arbitrary passwords; strength rules apply only at registration.
func NewSecret(raw string) Secret {
	return Secret{raw: raw}
}

// Expose returns the wrapped value. Callers outside the hashing and
// persistence boundary have no business invoking this.
func (s Secret) Expose() string {
	return s.raw
}

func (s Secret) String() string {
	return redacted
}

func (s Secret) GoString() string {
	return redacted
}

// MarshalText keeps secrets out of serialized payloads.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// LogValue keeps secrets out of slog output.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(redacted)
}
