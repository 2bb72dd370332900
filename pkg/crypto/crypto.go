// Package crypto hashes and verifies user passwords.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	saltLength = 16
	keyLength  = 32
	scheme     = "argon2id"
)

var ErrMalformedHash = errors.New("crypto: malformed password hash")

// GenerateSalt returns saltLength random bytes.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("crypto: generate salt: %w", err)
	}
	return salt, nil
}

// HashPassword hashes a password using Argon2id and encodes it together
// with its salt as "argon2id$<salt>$<key>".
func HashPassword(password string) (string, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return "", err
	}
	return encode(salt, derive(password, salt)), nil
}

// VerifyPassword reports whether password matches an encoded hash.
func VerifyPassword(encoded, password string) (bool, error) {
	salt, key, err := decode(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(key, derive(password, salt)) == 1, nil
}

// IsHashed reports whether s already looks like an encoded hash.
func IsHashed(s string) bool {
	_, _, err := decode(s)
	return err == nil
}

func derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, keyLength)
}

func encode(salt, key []byte) string {
	return scheme + "$" + hex.EncodeToString(salt) + "$" + hex.EncodeToString(key)
}

func decode(encoded string) (salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 3 || parts[0] != scheme {
		return nil, nil, ErrMalformedHash
	}
	if salt, err = hex.DecodeString(parts[1]); err != nil || len(salt) != saltLength {
		return nil, nil, ErrMalformedHash
	}
	if key, err = hex.DecodeString(parts[2]); err != nil || len(key) != keyLength {
		return nil, nil, ErrMalformedHash
	}
	return salt, key, nil
}
