package util

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
)

// HashUserKey returns a filesystem-safe identifier for a user ID.
func HashUserKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ScopedKey builds a storage key namespaced by the hashed user ID.
func ScopedKey(namespace, userID string, parts ...string) string {
	elems := append([]string{namespace, HashUserKey(userID)}, parts...)
	return path.Join(elems...)
}
