package session

import (
	"context"
	"sync"
	"time"

	"reelist/cmd/identity/ids"
)

// MemoryStore is an in-memory Store for development and tests.
//
// All operations run under one mutex, so Rotate is atomic the same way
// the Postgres implementation's transaction is.
type MemoryStore struct {
	mu     sync.Mutex
	byHash map[string]*Record
}

// NewMemoryStore creates an empty in-memory refresh-token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byHash: make(map[string]*Record)}
}

func (s *MemoryStore) Create(ctx context.Context, now time.Time, userID, tokenHash string, expiresAt time.Time) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	id, err := ids.NewULID(now)
	if err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &Record{
		ID:        id,
		UserID:    userID,
		TokenHash: tokenHash,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	s.byHash[tokenHash] = rec

	return *rec, nil
}

func (s *MemoryStore) FindActiveByHash(ctx context.Context, now time.Time, tokenHash string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byHash[tokenHash]
	if !ok || rec.RevokedAt != nil || !rec.ExpiresAt.After(now) {
		return Record{}, ErrRefreshInvalid
	}
	return *rec, nil
}

func (s *MemoryStore) Rotate(ctx context.Context, now time.Time, oldHash, newHash string, newExpiresAt time.Time) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.byHash[oldHash]
	if !ok || old.RevokedAt != nil || !old.ExpiresAt.After(now) {
		return Record{}, ErrRefreshInvalid
	}

	newID, err := ids.NewULID(now)
	if err != nil {
		return Record{}, err
	}

	rec := &Record{
		ID:        newID,
		UserID:    old.UserID,
		TokenHash: newHash,
		CreatedAt: now,
		ExpiresAt: newExpiresAt,
	}
	s.byHash[newHash] = rec

	revokedAt := now
	old.LastUsedAt = &revokedAt
	old.RevokedAt = &revokedAt
	old.ReplacedByID = &newID

	return *rec, nil
}

func (s *MemoryStore) RevokeByHash(ctx context.Context, now time.Time, tokenHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byHash[tokenHash]
	if !ok || rec.RevokedAt != nil {
		return nil
	}
	revokedAt := now
	rec.RevokedAt = &revokedAt

	return nil
}

func (s *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for hash, rec := range s.byHash {
		if !rec.ExpiresAt.After(now) {
			delete(s.byHash, hash)
			n++
		}
	}
	return n, nil
}
