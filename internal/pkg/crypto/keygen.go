package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	// SecretSize is the byte length of generated signing secrets.
	SecretSize = 32

	// passwordChars contains characters used in generated passwords.
	passwordChars = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"
)

// GenerateSecret generates a random 32-byte secret for token signing.
// Returns the secret as a 64-character hex string.
func GenerateSecret() (string, error) {
	key := make([]byte, SecretSize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// GeneratePassword generates a random password of the given length
// from an unambiguous alphanumeric alphabet.
func GeneratePassword(length int) (string, error) {
	return generateRandomString(length, passwordChars)
}

// generateRandomString generates a random string of the specified length
// using characters from the provided character set.
func generateRandomString(length int, charset string) (string, error) {
	result := make([]byte, length)
	charsetLen := len(charset)

	// Generate random bytes
	randomBytes := make([]byte, length)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	// Map to charset
	for i := 0; i < length; i++ {
		result[i] = charset[int(randomBytes[i])%charsetLen]
	}

	return string(result), nil
}
