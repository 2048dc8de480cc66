package app

import (
	"errors"

	"reelist/cmd/security/token"
)

// ValidateSecurityConfig enforces the deployment security policy at startup.
// Fail-fast is the point: a production instance must never come up with the
// plain-SHA fallback when the operator asked for keyed hashing.
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.RequireTokenHMAC {
		return nil
	}

	// 32 bytes minimum for an HMAC-SHA256 secret, measured as raw bytes.
	if _, err := token.HMACKeyFromEnv(32); err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return errors.New("security policy: REELIST_REQUIRE_TOKEN_HMAC=true but REELIST_TOKEN_HMAC_KEY is missing")
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return errors.New("security policy: REELIST_REQUIRE_TOKEN_HMAC=true but REELIST_TOKEN_HMAC_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}

	if !token.HMACEnabled() {
		return errors.New("security policy: REELIST_REQUIRE_TOKEN_HMAC=true but token hasher is not in HMAC mode")
	}

	return nil
}
