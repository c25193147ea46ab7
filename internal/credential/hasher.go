// Package credential implements the password digest scheme used by the
// account registry: a deterministic SHA-256 over the concatenation of
// password, application pepper, and deployment salt. Determinism is load
// bearing: login verification recomputes the digest from the plaintext
// alone, so no per-record salt is persisted.
package credential

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

// pepper is the application-wide secret mixed into every digest.
const pepper = "finnova_secret_pepper"

// DefaultSalt is used when no deployment salt is configured via
// FINNOVA_PASSWORD_SALT.
const DefaultSalt = "default_salt_value"

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = errors.New("password cannot be empty")

// Hasher produces and compares password digests.
type Hasher struct {
	salt string
}

// NewHasher creates a Hasher with the given deployment salt, falling back
// to DefaultSalt when salt is empty.
func NewHasher(salt string) *Hasher {
	if salt == "" {
		salt = DefaultSalt
	}
	return &Hasher{salt: salt}
}

// Hash returns the hex SHA-256 digest of password+pepper+salt.
// It fails only on an empty password.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	sum := sha256.Sum256([]byte(password + pepper + h.salt))
	return hex.EncodeToString(sum[:]), nil
}

// Compare reports whether digest is the digest of password. The comparison
// is constant-time in the digest contents.
func (h *Hasher) Compare(digest, password string) bool {
	if digest == "" {
		return false
	}
	computed, err := h.Hash(password)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}
