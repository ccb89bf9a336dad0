/*
Package randx provides cryptographically secure random identifiers and key material.

It generates API key ids and signing secrets in Base62, token ids (jti) as UUIDs and
proof-of-work nonces.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// APIKeyPrefix starts every generated API key id.
	APIKeyPrefix = "API"

	// APIKeyRawLength is the number of random Base62 characters after APIKeyPrefix.
	APIKeyRawLength = 12

	// APISecretLength yields roughly 256 bits of entropy.
	APISecretLength = 43
)

// Base62 returns a random Base62 string of length n drawn from crypto/rand.
func Base62(n int) (string, error) {
	result := make([]byte, n)

	for i := range n {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// APIKey generates a new signing key id such as "APIa1B2c3D4e5F6".
func APIKey() (string, error) {
	raw, err := Base62(APIKeyRawLength)
	if err != nil {
		return "", err
	}
	return APIKeyPrefix + raw, nil
}

// APISecret generates a new HMAC signing secret.
func APISecret() (string, error) {
	return Base62(APISecretLength)
}

// TokenID generates a standard UUID v4 string used as the jti of an issued token.
func TokenID() string {
	return uuid.New().String()
}

// Nonce generates a UUID v4 string for proof-of-work challenges.
func Nonce() string {
	return uuid.New().String()
}

// IsValidAPIKey reports whether key has the shape produced by APIKey.
func IsValidAPIKey(key string) bool {
	if !strings.HasPrefix(key, APIKeyPrefix) {
		return false
	}

	raw := key[len(APIKeyPrefix):]
	if len(raw) != APIKeyRawLength {
		return false
	}

	for _, char := range raw {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}
