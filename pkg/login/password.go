package login

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength rejects trivially short passwords before hashing.
const MinPasswordLength = 6

var ErrPasswordTooShort = errors.New("password must be at least 6 characters")

// HashPassword hashes the plaintext with bcrypt at the default cost.
func HashPassword(password string) ([]byte, error) {
	if len(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

// CheckPasswordHash reports whether the plaintext matches the stored hash.
// A mismatch is a false result, not an error.
func CheckPasswordHash(password string, hashedPassword []byte) (bool, error) {
	if password == "" || len(hashedPassword) == 0 {
		return false, errors.New("password and hashed password cannot be empty")
	}

	err := bcrypt.CompareHashAndPassword(hashedPassword, []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
