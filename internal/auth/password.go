package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// VerifyPassword reports whether plain matches the stored bcrypt digest.
// A mismatch is an ordinary false result. A digest bcrypt cannot parse
// is an error: it means the stored credential data is corrupt.
func VerifyPassword(plain, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("compare password digest: %w", err)
}

func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
