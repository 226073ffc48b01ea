package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashPassword returns the hex encoded SHA-256 digest of the password.
// The digest format is part of the stored state: existing account records
// must keep verifying across server versions.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// VerifyPassword compares a plain text password against a stored digest.
// Constant time comparison to prevent timing attacks.
func VerifyPassword(password, storedDigest string) bool {
	digest := HashPassword(password)
	return subtle.ConstantTimeCompare([]byte(digest), []byte(storedDigest)) == 1
}
