package common

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// TokenFingerprint returns the hex SHA-256 of a token string. It is used as a
// compact key wherever the raw token must not be stored verbatim (cache keys, logs).
func TokenFingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
// The scheme is matched case-insensitively.
func BearerToken(value string) (string, bool) {
	if len(value) < len(BearerPrefix) || !strings.EqualFold(value[:len(BearerPrefix)], BearerPrefix) {
		return "", false
	}

	token := strings.TrimSpace(value[len(BearerPrefix):])
	if token == "" {
		return "", false
	}

	return token, true
}

// WipeByteArray zeroes b in place. Used for passwords read from the terminal.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
