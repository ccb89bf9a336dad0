/*
Package token implements the room access token authority.

An Authority mints HS256 tokens granting a participant access to one room with a set of
capabilities, and validates tokens it (or any holder of the same key) issued. It keeps
no state besides its immutable key material, so one Authority can serve any number of
concurrent callers.
*/
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt"

	"roomtoken/internal/pkg/auth/jwt"
	"roomtoken/internal/pkg/logx"
	"roomtoken/internal/pkg/randx"
)

// DefaultTTL is the token lifetime used when none is configured.
const DefaultTTL = 24 * time.Hour

// Service is the contract shared by Authority and its decorators.
type Service interface {
	Issue(ctx context.Context, req CredentialRequest) (*Credential, error)
	Validate(ctx context.Context, token string) ValidationResult
}

// Authority issues and validates room access tokens.
type Authority struct {
	keyID  string
	secret string
	ttl    time.Duration
	now    func() time.Time
	newID  func() string
}

// Option customizes an Authority.
type Option func(*Authority)

// WithClock replaces time.Now. Tests use it to pin issuance and validation times.
func WithClock(now func() time.Time) Option {
	return func(a *Authority) {
		a.now = now
	}
}

// WithIDGenerator replaces the jti generator.
func WithIDGenerator(newID func() string) Option {
	return func(a *Authority) {
		a.newID = newID
	}
}

// NewAuthority returns an Authority signing with secret under the key id keyID.
// ttl must be at least one second so that exp is always after iat.
func NewAuthority(keyID, secret string, ttl time.Duration, opts ...Option) (*Authority, error) {
	switch {
	case keyID == "":
		return nil, fmt.Errorf("%w: key id is empty", ErrInvalidConfig)
	case secret == "":
		return nil, fmt.Errorf("%w: secret is empty", ErrInvalidConfig)
	case ttl < time.Second:
		return nil, fmt.Errorf("%w: ttl %s is shorter than one second", ErrInvalidConfig, ttl)
	}

	a := &Authority{
		keyID:  keyID,
		secret: secret,
		ttl:    ttl.Truncate(time.Second),
		now:    time.Now,
		newID:  randx.TokenID,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// KeyID returns the issuer written into every token.
func (a *Authority) KeyID() string {
	return a.keyID
}

// TTL returns the lifetime given to issued tokens.
func (a *Authority) TTL() time.Duration {
	return a.ttl
}

// Issue validates req, resolves the room and signs a new token.
func (a *Authority) Issue(ctx context.Context, req CredentialRequest) (*Credential, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	issuedAt := a.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(a.ttl)

	room := req.Room
	if room == "" {
		hint := req.IdentityHint
		if hint == "" {
			hint = req.Identity
		}
		room = DeriveRoomName(hint, issuedAt)
	}

	metadata, err := EncodeMetadata(req.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpected, err)
	}

	canPublish, canSubscribe, canUpdate := req.Capabilities.Resolve()

	claims := &jwt.Claims{
		StandardClaims: gojwt.StandardClaims{
			Id:        a.newID(),
			Issuer:    a.keyID,
			Subject:   req.Identity,
			IssuedAt:  issuedAt.Unix(),
			NotBefore: issuedAt.Unix(),
			ExpiresAt: expiresAt.Unix(),
		},
		Name: req.Name,
		Video: &jwt.VideoGrant{
			Room:                 room,
			RoomJoin:             true,
			CanPublish:           canPublish,
			CanSubscribe:         canSubscribe,
			CanUpdateOwnMetadata: canUpdate,
		},
		Metadata: metadata,
	}

	signed, err := jwt.GenerateToken(claims, a.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpected, err)
	}

	logx.Ctx(ctx).Info().
		Str("subject", req.Identity).
		Str("room", room).
		Time("expires_at", expiresAt).
		Msg("Token issued")

	return &Credential{
		Token:     signed,
		Identity:  req.Identity,
		Room:      room,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Validate checks signature, issuer and time bounds of tokenString. It never fails
// with an error; the outcome and its reason are in the returned ValidationResult.
func (a *Authority) Validate(ctx context.Context, tokenString string) ValidationResult {
	result := a.validate(tokenString)
	if !result.Valid {
		logx.Ctx(ctx).Debug().
			Str("reason", string(result.Reason)).
			Msg("Token rejected")
	}
	return result
}

func (a *Authority) validate(tokenString string) ValidationResult {
	claims, err := jwt.ParseToken(tokenString, a.secret)
	if err != nil {
		if errors.Is(err, jwt.ErrMalformed) {
			return invalid(ReasonMalformed)
		}
		return invalid(ReasonBadSignature)
	}

	if claims.Issuer != a.keyID {
		return invalid(ReasonUnknownIssuer)
	}
	if claims.Subject == "" || claims.Video == nil || claims.Video.Room == "" || claims.ExpiresAt == 0 {
		return invalid(ReasonMalformed)
	}

	now := a.now().Unix()
	if now > claims.ExpiresAt {
		return invalid(ReasonExpired)
	}
	if claims.NotBefore != 0 && now < claims.NotBefore {
		return invalid(ReasonNotYetValid)
	}

	return ValidationResult{
		Valid:     true,
		Identity:  claims.Subject,
		Name:      claims.Name,
		Room:      claims.Video.Room,
		Grants:    *claims.Video,
		Metadata:  claims.Metadata,
		IssuedAt:  time.Unix(claims.IssuedAt, 0).UTC(),
		ExpiresAt: time.Unix(claims.ExpiresAt, 0).UTC(),
	}
}
