package token

import (
	"time"

	"roomtoken/internal/pkg/auth/jwt"
)

// PublicInvalidMessage is the only failure text ever shown to callers of Validate.
// Expired, forged and garbled tokens are deliberately indistinguishable.
const PublicInvalidMessage = "invalid or expired token"

// Credential is the result of a successful Issue.
type Credential struct {
	Token     string
	Identity  string
	Room      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Reason tells why a token failed validation. It is meant for logs and metrics.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonMalformed     Reason = "malformed"
	ReasonBadSignature  Reason = "bad_signature"
	ReasonUnknownIssuer Reason = "unknown_issuer"
	ReasonExpired       Reason = "expired"
	ReasonNotYetValid   Reason = "not_yet_valid"
)

// ValidationResult is the outcome of Validate. Claim fields are only set when Valid.
type ValidationResult struct {
	Valid  bool
	Reason Reason

	Identity  string
	Name      string
	Room      string
	Grants    jwt.VideoGrant
	Metadata  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// PublicError returns the caller-facing failure message, or "" for a valid token.
func (r ValidationResult) PublicError() string {
	if r.Valid {
		return ""
	}
	return PublicInvalidMessage
}

func invalid(reason Reason) ValidationResult {
	return ValidationResult{Reason: reason}
}
