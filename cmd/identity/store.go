package identity

import (
	"context"
	"time"
)

// User is reelist's canonical security principal.
//
// PasswordHash is an Argon2id-encoded string (see cmd/security/password);
// reset fields hold the hash of an outstanding password-reset code, if any.
// Raw passwords and raw reset codes are never persisted.
type User struct {
	ID          string
	Email       string
	EmailNorm   string
	DisplayName *string
	IsAdmin     bool

	PasswordHash string

	// At most one outstanding reset code per principal; a new forgot-password
	// request overwrites any prior one.
	ResetCodeHash      *string
	ResetCodeExpiresAt *time.Time

	CreatedAt time.Time
}

// CreateUserInput describes an account registration request.
type CreateUserInput struct {
	Email        string
	DisplayName  *string
	IsAdmin      bool
	PasswordHash string
	Now          time.Time
}

// Store is the principal persistence boundary consumed by the auth core.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	GetUserByID(ctx context.Context, id string) (User, error)

	// GetUserByEmail looks up by normalized email.
	GetUserByEmail(ctx context.Context, email string) (User, error)

	// SetResetCode stores the hash + expiry of a newly issued reset code,
	// replacing any outstanding one.
	SetResetCode(ctx context.Context, userID string, codeHash string, expiresAt time.Time) error

	// UpdatePassword overwrites the credential hash and clears any outstanding
	// reset code in the same statement, making issued codes single-use.
	UpdatePassword(ctx context.Context, userID string, passwordHash string) error
}
