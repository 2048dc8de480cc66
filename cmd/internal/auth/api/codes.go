package authapi

// Stable machine-readable error codes carried in error envelopes.
const (
	codeInvalidCredentials = "INVALID_CREDENTIALS"
	codeRefreshRequired    = "REFRESH_TOKEN_REQUIRED"
	codeRefreshInvalid     = "INVALID_OR_EXPIRED_REFRESH_TOKEN"
	codeInvalidCode        = "INVALID_CODE"
	codeAuthTokenMissing   = "AUTH_TOKEN_MISSING"
	codeAuthTokenInvalid   = "AUTH_TOKEN_INVALID"
	codeAdminRequired      = "ADMIN_REQUIRED"
	codeValidationError    = "VALIDATION_ERROR"
	codeInternal           = "INTERNAL"
)
