package session

import (
	"context"
	"time"
)

// Record mirrors a reelist.refresh_tokens row.
//
// TokenHash is the only representation of the refresh value at rest;
// the plain value never touches the store.
type Record struct {
	ID           string
	UserID       string
	TokenHash    string
	CreatedAt    time.Time
	LastUsedAt   *time.Time
	ExpiresAt    time.Time
	RevokedAt    *time.Time
	ReplacedByID *string
}

// Store abstracts persistence for refresh-token state.
//
// Rotate is the safety-critical operation: implementations must make it
// atomic so that two concurrent presentations of the same value yield
// exactly one successor, with the loser seeing ErrRefreshInvalid.
type Store interface {
	// Create inserts a new active record and returns it.
	Create(ctx context.Context, now time.Time, userID, tokenHash string, expiresAt time.Time) (Record, error)

	// FindActiveByHash returns the record for tokenHash if it is neither
	// revoked nor expired at now. Any miss is ErrRefreshInvalid.
	FindActiveByHash(ctx context.Context, now time.Time, tokenHash string) (Record, error)

	// Rotate atomically retires the record matching oldHash and creates its
	// successor with newHash. The old record gets revoked_at, last_used_at,
	// and the replaced-by link in the same step. Returns ErrRefreshInvalid
	// when oldHash matches no active record at now.
	Rotate(ctx context.Context, now time.Time, oldHash, newHash string, newExpiresAt time.Time) (Record, error)

	// RevokeByHash revokes the record matching tokenHash. Unknown and
	// already-revoked hashes are not errors; revocation is idempotent.
	RevokeByHash(ctx context.Context, now time.Time, tokenHash string) error

	// DeleteExpired removes records whose expiry has passed. Expiry is
	// already enforced at query time; this is housekeeping only.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
