/*
Package jwt signs and parses room access tokens.

Tokens are compact JWS strings (header.payload.signature) signed with HMAC-SHA-256.
Claim-level checks such as expiry are left to the caller, which owns the clock.
*/
package jwt

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt"
)

// Algorithm is the only signing algorithm accepted on either side.
const Algorithm = "HS256"

var (
	// ErrMalformed means the token is not three decodable segments with a JSON payload.
	ErrMalformed = errors.New("token is malformed")

	// ErrSignature means the signature does not verify or the algorithm is not HS256.
	ErrSignature = errors.New("token signature is invalid")

	// ErrEmptySecret is returned when signing or parsing is attempted without a key.
	ErrEmptySecret = errors.New("signing secret is empty")
)

var parser = &jwt.Parser{
	ValidMethods:         []string{Algorithm},
	SkipClaimsValidation: true,
}

// GenerateToken signs claims with secretKey and returns the encoded token.
func GenerateToken(claims *Claims, secretKey string) (string, error) {
	if secretKey == "" {
		return "", ErrEmptySecret
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies the signature of tokenString with secretKey and decodes its claims.
// Every failure maps to ErrMalformed or ErrSignature; the library's error text is kept
// as wrapped context for server-side logs only.
func ParseToken(tokenString string, secretKey string) (*Claims, error) {
	if secretKey == "" {
		return nil, ErrEmptySecret
	}

	claims := &Claims{}

	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, classify(err)
	}

	if !token.Valid {
		return nil, ErrSignature
	}

	return claims, nil
}

func classify(err error) error {
	var vErr *jwt.ValidationError
	if errors.As(err, &vErr) && vErr.Errors&jwt.ValidationErrorMalformed != 0 {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return fmt.Errorf("%w: %v", ErrSignature, err)
}
