// Package auth provides credential checking and login tokens.
package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Credentials stores and verifies account passwords.
type Credentials interface {
	// Hash returns the value to persist for a password.
	Hash(password string) (string, error)
	// Matches reports whether password corresponds to the stored value.
	Matches(stored, password string) bool
}

// Plaintext keeps passwords as given and compares them exactly.
type Plaintext struct{}

// Hash returns the password unchanged.
func (Plaintext) Hash(password string) (string, error) { return password, nil }

// Matches compares in constant time.
func (Plaintext) Matches(stored, password string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

// Bcrypt stores bcrypt hashes.
type Bcrypt struct {
	Cost int
}

// Hash returns the bcrypt hash of password.
func (b Bcrypt) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

// Matches reports whether password hashes to stored.
func (Bcrypt) Matches(stored, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}

// NewCredentials returns bcrypt hashing when hash is set, plaintext otherwise.
func NewCredentials(hash bool) Credentials {
	if hash {
		return Bcrypt{}
	}
	return Plaintext{}
}
