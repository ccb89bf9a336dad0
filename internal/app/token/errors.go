package token

import "errors"

var (
	// ErrInvalidArgument is matched by every caller-input validation failure.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnexpected wraps failures that are not the caller's fault, such as signing errors.
	ErrUnexpected = errors.New("unexpected error")

	// ErrInvalidConfig is returned by NewAuthority for an unusable key, secret or TTL.
	ErrInvalidConfig = errors.New("invalid authority configuration")
)

// ArgumentError describes why a CredentialRequest was rejected. Reason is safe to
// show to the caller.
type ArgumentError struct {
	Reason string
}

func (e *ArgumentError) Error() string {
	return "invalid argument: " + e.Reason
}

// Is makes errors.Is(err, ErrInvalidArgument) hold for any *ArgumentError.
func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}
