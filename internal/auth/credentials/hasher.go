package credentials

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"tecbook-auth/internal/utils"
)

// MinPasswordLength is enforced on registration only; stored hashes are
// verified regardless of the password policy in force when they were made.
const MinPasswordLength = 8

var ErrPasswordTooShort = errors.New("password too short")

// HashPassword hashes a plaintext password using bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}

	bytes, err := bcrypt.GenerateFromPassword(
		[]byte(password),
		bcrypt.DefaultCost,
	)
	if err != nil {
		return "", err
	}

	return string(bytes), nil
}

// VerifyPassword compares plaintext password with stored hash.
func VerifyPassword(hash string, password string) error {
	return bcrypt.CompareHashAndPassword(
		[]byte(hash),
		[]byte(password),
	)
}

// RandomPasswordHash returns the hash of a random secret that is never
// disclosed. Federated accounts carry it so the record is complete while
// direct-credential login stays impossible.
func RandomPasswordHash() (string, error) {
	secret, err := utils.RandomString(32)
	if err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return HashPassword(secret)
}

// dummyHash is compared against when there is no real hash to check, so
// that every failed login costs one bcrypt comparison.
var dummyHash = sync.OnceValue(func() string {
	b, _ := bcrypt.GenerateFromPassword([]byte("tecbook-no-account"), bcrypt.DefaultCost)
	return string(b)
})
