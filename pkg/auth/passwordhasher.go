package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// Hasher defines the interface for password hashing implementations
type Hasher interface {
	// Hash hashes a password
	Hash(password string) (string, error)

	// Verify checks if the provided password matches the stored hash
	Verify(password, encodedHash string) (bool, error)
}

const (
	saltLength = 16
	keyLength  = 64

	scryptN = 32768
	scryptR = 8
	scryptP = 1
)

// ScryptHasher hashes passwords with scrypt, binding each hash to a fresh
// random salt. The encoded form is "<hexHash>.<hexSalt>".
type ScryptHasher struct{}

// NewScryptHasher creates a new scrypt-based password hasher
func NewScryptHasher() *ScryptHasher {
	return &ScryptHasher{}
}

// Hash derives an encoded hash from the plaintext password
func (h *ScryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(key) + "." + hex.EncodeToString(salt), nil
}

// Verify recomputes the hash with the stored salt and compares in constant
// time. Malformed stored hashes fail closed: the result is false, never a
// panic.
func (h *ScryptHasher) Verify(password, encodedHash string) (bool, error) {
	if password == "" || encodedHash == "" {
		return false, nil
	}

	parts := strings.Split(encodedHash, ".")
	if len(parts) != 2 {
		return false, nil
	}

	storedKey, err := hex.DecodeString(parts[0])
	if err != nil {
		return false, nil
	}
	salt, err := hex.DecodeString(parts[1])
	if err != nil {
		return false, nil
	}
	if len(storedKey) != keyLength {
		return false, nil
	}

	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare(storedKey, key) == 1, nil
}
