package auth

import "github.com/google/uuid"

// NewSessionToken mints an opaque session token. Tokens must be unguessable:
// uuid.NewString draws from crypto/rand.
func NewSessionToken() string {
	return uuid.NewString()
}
