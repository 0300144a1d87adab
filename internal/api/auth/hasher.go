package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = errors.New("password cannot be empty")

// PasswordHasher provides one-way password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted hash of the password. Two calls with the same
	// input yield different strings.
	Hash(password string) (string, error)

	// Verify reports whether the password matches the hash. A malformed
	// hash fails closed: the result is false, never an error.
	Verify(password, hash string) bool
}

// BcryptHasher implements PasswordHasher using bcrypt.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{cost: bcrypt.DefaultCost}
}

// Hash produces a bcrypt hash with a random salt.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify recomputes the hash using the salt embedded in it and compares in
// constant time.
func (h *BcryptHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
