package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost     = 12
	SessionKeyLen  = 32 // 256 bits
	MinPasswordLen = 6
	MaxPasswordLen = 128
)

// HashSecret bcrypt-hashes a credential with a fresh random salt. Used for
// both passwords and registration numbers; two calls with the same input
// never produce equal hashes.
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("secret cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(secret), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hashedBytes), nil
}

// CompareSecret reports whether plaintext matches a stored bcrypt hash.
func CompareSecret(hashedSecret, secret string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedSecret), []byte(secret))
}

// RegistrationIndex computes a keyed deterministic digest of a registration
// number. Unlike the bcrypt hash it is stable across calls, so it serves as
// a unique lookup column without exposing the raw number. It is never used
// to authenticate; that is always the salted hash.
func RegistrationIndex(regNo string, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(regNo))
	return hex.EncodeToString(mac.Sum(nil))
}

// GenerateSessionToken returns a random opaque session token.
func GenerateSessionToken() (string, error) {
	bytes := make([]byte, SessionKeyLen)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// HashSessionToken derives the storage key for a session token. SHA-256 is
// enough here: the token is high-entropy random, not a password.
func HashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidatePassword enforces password length bounds.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLen)
	}
	if len(password) > MaxPasswordLen {
		return fmt.Errorf("password must be at most %d characters", MaxPasswordLen)
	}
	return nil
}
