package security

import "github.com/google/uuid"

// NewSessionID returns an opaque, fixed-length session identifier drawn from
// a cryptographically secure random source.
func NewSessionID() string {
	return uuid.NewString()
}
