package session

import "errors"

var (
	// ErrInvalidCredentials is returned when the email is unknown or the
	// password does not match. The two causes are deliberately
	// indistinguishable to prevent account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrRefreshRequired is returned when a refresh call carries no token value.
	ErrRefreshRequired = errors.New("refresh token required")

	// ErrRefreshInvalid is returned when a refresh value matches no active
	// record. Unknown, already-rotated, revoked, and expired all collapse to
	// this one error; a replayed rotated value failing here is the theft
	// detection signal.
	ErrRefreshInvalid = errors.New("invalid or expired refresh token")

	// ErrInvalidToken is returned when an access token fails verification.
	// Bad signature, malformed structure, and past expiry are indistinguishable.
	ErrInvalidToken = errors.New("invalid token")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
