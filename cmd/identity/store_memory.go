package identity

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used when no database is configured
// (dev mode) and by unit tests. It mirrors the Postgres semantics, including
// the single-statement password update that clears reset fields.
type MemoryStore struct {
	mu      sync.Mutex
	byID    map[string]*User
	byEmail map[string]string // email_norm -> id
}

// NewMemoryStore constructs an empty in-memory principal store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

// CreateUser inserts a new principal.
func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

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

	norm := NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[norm]; exists {
		return User{}, ConflictError{Op: op, Field: "email"}
	}

	u := User{
		ID:           id,
		Email:        email,
		EmailNorm:    norm,
		DisplayName:  in.DisplayName,
		IsAdmin:      in.IsAdmin,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
	}
	s.byID[id] = &u
	s.byEmail[norm] = id

	return u, nil
}

// GetUserByID loads a principal by ID.
func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetUserByID"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return *u, nil
}

// GetUserByEmail loads a principal by normalized email.
func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const op = "identity.GetUserByEmail"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return *s.byID[id], nil
}

// SetResetCode replaces any outstanding reset code.
func (s *MemoryStore) SetResetCode(ctx context.Context, userID string, codeHash string, expiresAt time.Time) error {
	const op = "identity.SetResetCode"

	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" || codeHash == "" || expiresAt.IsZero() {
		return OpError{Op: op, Kind: ErrInvalidInput}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}

	hash := codeHash
	exp := expiresAt
	u.ResetCodeHash = &hash
	u.ResetCodeExpiresAt = &exp
	return nil
}

// SetAdmin flips the admin flag. Not part of Store; used by dev seeding
// and tests.
func (s *MemoryStore) SetAdmin(userID string, isAdmin bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.byID[userID]; ok {
		u.IsAdmin = isAdmin
	}
}

// UpdatePassword overwrites the credential hash and clears reset fields atomically.
func (s *MemoryStore) UpdatePassword(ctx context.Context, userID string, passwordHash string) error {
	const op = "identity.UpdatePassword"

	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" || passwordHash == "" {
		return OpError{Op: op, Kind: ErrInvalidInput}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}

	u.PasswordHash = passwordHash
	u.ResetCodeHash = nil
	u.ResetCodeExpiresAt = nil
	return nil
}
