package reset

import "errors"

var (
	// ErrInvalidCode is returned whenever a code cannot be redeemed:
	// unknown email, no outstanding code, expired code, wrong code, or a
	// code already consumed. The causes are deliberately indistinguishable.
	ErrInvalidCode = errors.New("invalid code")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
