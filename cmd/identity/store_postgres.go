package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// PostgresStore implements Store using PostgreSQL (reelist.users).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed principal store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, OpError{Op: "identity.NewPostgresStore", Kind: ErrInvalidInput, Msg: "nil pool"}
	}
	return &PostgresStore{pool: pool}, nil
}

// CreateUser inserts a new principal row.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	email := strings.TrimSpace(in.Email)
	if email == "" || in.PasswordHash == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "email and password hash are required"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	u := User{
		ID:           id,
		Email:        email,
		EmailNorm:    NormalizeEmail(email),
		DisplayName:  in.DisplayName,
		IsAdmin:      in.IsAdmin,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO reelist.users (
			id, email, email_norm, display_name, is_admin,
			password_hash, reset_code_hash, reset_code_expires_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, NULL, NULL, $7
		)
	`, u.ID, u.Email, u.EmailNorm, u.DisplayName, u.IsAdmin, u.PasswordHash, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return User{}, ConflictError{Op: op, Field: "email"}
		}
		return User{}, err
	}

	return u, nil
}

// GetUserByID loads a principal row by ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetUserByID"

	if strings.TrimSpace(id) == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "id is required"}
	}
	return s.getUser(ctx, op, `WHERE id = $1`, id)
}

// GetUserByEmail loads a principal row by normalized email.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const op = "identity.GetUserByEmail"

	norm := NormalizeEmail(email)
	if norm == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "email is required"}
	}
	return s.getUser(ctx, op, `WHERE email_norm = $1`, norm)
}

func (s *PostgresStore) getUser(ctx context.Context, op, where string, arg any) (User, error) {
	var u User

	err := s.pool.QueryRow(ctx, `
		SELECT
			id, email, email_norm, display_name, is_admin,
			password_hash, reset_code_hash, reset_code_expires_at, created_at
		FROM reelist.users
		`+where, arg).Scan(
		&u.ID,
		&u.Email,
		&u.EmailNorm,
		&u.DisplayName,
		&u.IsAdmin,
		&u.PasswordHash,
		&u.ResetCodeHash,
		&u.ResetCodeExpiresAt,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return User{}, err
	}

	return u, nil
}

// SetResetCode stores the hash + expiry of a newly issued reset code,
// replacing any outstanding one.
func (s *PostgresStore) SetResetCode(ctx context.Context, userID string, codeHash string, expiresAt time.Time) error {
	const op = "identity.SetResetCode"

	if strings.TrimSpace(userID) == "" || codeHash == "" || expiresAt.IsZero() {
		return OpError{Op: op, Kind: ErrInvalidInput}
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE reelist.users
		SET reset_code_hash = $2,
		    reset_code_expires_at = $3
		WHERE id = $1
	`, userID, codeHash, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

// UpdatePassword overwrites the credential hash and clears reset fields in the
// same statement. Clearing here is what makes a consumed reset code single-use.
func (s *PostgresStore) UpdatePassword(ctx context.Context, userID string, passwordHash string) error {
	const op = "identity.UpdatePassword"

	if strings.TrimSpace(userID) == "" || passwordHash == "" {
		return OpError{Op: op, Kind: ErrInvalidInput}
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE reelist.users
		SET password_hash = $2,
		    reset_code_hash = NULL,
		    reset_code_expires_at = NULL
		WHERE id = $1
	`, userID, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}
