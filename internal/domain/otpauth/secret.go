package otpauth

import (
	"crypto/rand"
	"fmt"
)

const base32Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// DefaultSecretLength is the length of generated secrets: 32 base32
// characters carry 160 bits, the HMAC-SHA1 key size RFC 4226 recommends.
const DefaultSecretLength = 32

// GenerateSecret returns a random unpadded base32 secret of length characters.
func GenerateSecret(length int) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("secret length must be positive, got %d", length)
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	// 256 is a multiple of 32, so masking keeps the distribution uniform.
	for i, b := range buf {
		buf[i] = base32Alphabet[b&31]
	}
	return string(buf), nil
}
