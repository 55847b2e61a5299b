package helpers

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashAPIKey hashes a Basic token for storage in the allowed keys list.
func HashAPIKey(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// MatchAPIKey reports whether token equals one of allowed. Entries starting
// with "$2" are bcrypt hashes; the rest are compared literally.
func MatchAPIKey(allowed []string, token string) bool {
	for _, k := range allowed {
		if strings.HasPrefix(k, "$2") {
			if bcrypt.CompareHashAndPassword([]byte(k), []byte(token)) == nil {
				return true
			}
			continue
		}
		if subtle.ConstantTimeCompare([]byte(k), []byte(token)) == 1 {
			return true
		}
	}
	return false
}
