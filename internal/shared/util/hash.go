package util

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// HashUserKey maps a user identifier (an email in listing contexts) to a
// fixed-length hex directory name so raw identities never appear in keys.
func HashUserKey(userID string) string {
	digest := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(digest[:])
}

// RandomID returns a random 32-character hex string.
func RandomID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
