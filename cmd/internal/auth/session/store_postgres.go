package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"reelist/cmd/identity/ids"
)

// PostgresStore implements Store using PostgreSQL (reelist.refresh_tokens).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed refresh-token store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const recordColumns = `
	id, user_id, token_hash,
	created_at, last_used_at, expires_at, revoked_at,
	replaced_by_id
`

// Create inserts a new active record.
func (s *PostgresStore) Create(ctx context.Context, now time.Time, userID, tokenHash string, expiresAt time.Time) (Record, error) {
	id, err := ids.NewULID(now)
	if err != nil {
		return Record{}, err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO reelist.refresh_tokens (
			id, user_id, token_hash,
			created_at, last_used_at, expires_at, revoked_at,
			replaced_by_id
		) VALUES (
			$1, $2, $3,
			$4, NULL, $5, NULL,
			NULL
		)
	`, id, userID, tokenHash, now, expiresAt)
	if err != nil {
		return Record{}, err
	}

	return Record{
		ID:        id,
		UserID:    userID,
		TokenHash: tokenHash,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}, nil
}

// FindActiveByHash loads a record by token hash, filtering revoked and
// expired rows in the query itself.
func (s *PostgresStore) FindActiveByHash(ctx context.Context, now time.Time, tokenHash string) (Record, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM reelist.refresh_tokens
		WHERE token_hash = $1
		  AND revoked_at IS NULL
		  AND expires_at > $2
	`, tokenHash, now)

	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRefreshInvalid
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Rotate retires the record matching oldHash and creates its successor,
// all inside one transaction. The row lock makes concurrent rotations of
// the same value serialize: the second transaction sees revoked_at set
// and fails with ErrRefreshInvalid.
func (s *PostgresStore) Rotate(ctx context.Context, now time.Time, oldHash, newHash string, newExpiresAt time.Time) (Record, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM reelist.refresh_tokens
		WHERE token_hash = $1
		FOR UPDATE
	`, oldHash)

	old, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRefreshInvalid
	}
	if err != nil {
		return Record{}, err
	}

	// Revoked (including already-rotated) and expired collapse to the
	// same failure as unknown.
	if old.RevokedAt != nil || !old.ExpiresAt.After(now) {
		return Record{}, ErrRefreshInvalid
	}

	newID, err := ids.NewULID(now)
	if err != nil {
		return Record{}, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO reelist.refresh_tokens (
			id, user_id, token_hash,
			created_at, last_used_at, expires_at, revoked_at,
			replaced_by_id
		) VALUES (
			$1, $2, $3,
			$4, NULL, $5, NULL,
			NULL
		)
	`, newID, old.UserID, newHash, now, newExpiresAt)
	if err != nil {
		return Record{}, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE reelist.refresh_tokens
		SET
			last_used_at = $2,
			revoked_at = $2,
			replaced_by_id = $3
		WHERE id = $1
	`, old.ID, now, newID)
	if err != nil {
		return Record{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, err
	}

	return Record{
		ID:        newID,
		UserID:    old.UserID,
		TokenHash: newHash,
		CreatedAt: now,
		ExpiresAt: newExpiresAt,
	}, nil
}

// RevokeByHash revokes a record by token hash (idempotent).
func (s *PostgresStore) RevokeByHash(ctx context.Context, now time.Time, tokenHash string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE reelist.refresh_tokens
		SET revoked_at = COALESCE(revoked_at, $2)
		WHERE token_hash = $1
	`, tokenHash, now)
	return err
}

// DeleteExpired removes rows whose expiry has passed.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM reelist.refresh_tokens
		WHERE expires_at <= $1
	`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.TokenHash,
		&rec.CreatedAt,
		&rec.LastUsedAt,
		&rec.ExpiresAt,
		&rec.RevokedAt,
		&rec.ReplacedByID,
	)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}
