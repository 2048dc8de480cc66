package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"reelist/cmd/identity/ids"
)

// Integration tests are enabled when REELIST_DATABASE_URL is set.
// In non-CI runs, unreachable Postgres skips these tests to keep local runs fast.

func TestPostgresStore_CreateAndRotate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := integrationPool(ctx, t)
	if pool == nil {
		return
	}
	defer pool.Close()

	store := NewPostgresStore(pool)

	userID := mustCreateTestUser(ctx, t, pool)
	t.Cleanup(func() { cleanupUserData(ctx, t, pool, userID) })

	now := time.Now().UTC()

	_, oldHash, err := newOpaqueRefreshToken(32)
	if err != nil {
		t.Fatalf("newOpaqueRefreshToken: %v", err)
	}
	rec, err := store.Create(ctx, now, userID, oldHash, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, newHash, err := newOpaqueRefreshToken(32)
	if err != nil {
		t.Fatalf("newOpaqueRefreshToken: %v", err)
	}
	successor, err := store.Rotate(ctx, now.Add(time.Minute), oldHash, newHash, now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if successor.ID == rec.ID || successor.UserID != userID {
		t.Fatalf("successor = %+v", successor)
	}

	old := mustGetRecordByID(ctx, t, pool, rec.ID)
	if old.RevokedAt == nil || old.LastUsedAt == nil {
		t.Fatalf("expected old record retired, got %+v", old)
	}
	if old.ReplacedByID == nil || *old.ReplacedByID != successor.ID {
		t.Fatalf("expected replaced_by_id=%q, got %+v", successor.ID, old.ReplacedByID)
	}

	// The retired value is dead for both lookup and rotation.
	if _, err := store.FindActiveByHash(ctx, now.Add(2*time.Minute), oldHash); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("FindActiveByHash on retired: %v", err)
	}
	if _, err := store.Rotate(ctx, now.Add(2*time.Minute), oldHash, "another-hash", now.Add(time.Hour)); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("Rotate on retired: %v", err)
	}

	// The successor stays active.
	if _, err := store.FindActiveByHash(ctx, now.Add(2*time.Minute), newHash); err != nil {
		t.Fatalf("FindActiveByHash on successor: %v", err)
	}
}

func TestPostgresStore_ExpiryEnforcedAtQueryTime(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := integrationPool(ctx, t)
	if pool == nil {
		return
	}
	defer pool.Close()

	store := NewPostgresStore(pool)

	userID := mustCreateTestUser(ctx, t, pool)
	t.Cleanup(func() { cleanupUserData(ctx, t, pool, userID) })

	now := time.Now().UTC()

	_, hash, err := newOpaqueRefreshToken(32)
	if err != nil {
		t.Fatalf("newOpaqueRefreshToken: %v", err)
	}
	if _, err := store.Create(ctx, now, userID, hash, now.Add(time.Minute)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := store.FindActiveByHash(ctx, now.Add(30*time.Second), hash); err != nil {
		t.Fatalf("before expiry: %v", err)
	}
	if _, err := store.FindActiveByHash(ctx, now.Add(2*time.Minute), hash); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("after expiry: %v", err)
	}
	if _, err := store.Rotate(ctx, now.Add(2*time.Minute), hash, "new-hash", now.Add(time.Hour)); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("rotate after expiry: %v", err)
	}
}

func TestPostgresStore_RevokeByHashIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := integrationPool(ctx, t)
	if pool == nil {
		return
	}
	defer pool.Close()

	store := NewPostgresStore(pool)

	userID := mustCreateTestUser(ctx, t, pool)
	t.Cleanup(func() { cleanupUserData(ctx, t, pool, userID) })

	now := time.Now().UTC()

	_, hash, err := newOpaqueRefreshToken(32)
	if err != nil {
		t.Fatalf("newOpaqueRefreshToken: %v", err)
	}
	rec, err := store.Create(ctx, now, userID, hash, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.RevokeByHash(ctx, now.Add(time.Second), hash); err != nil {
		t.Fatalf("RevokeByHash: %v", err)
	}
	first := mustGetRecordByID(ctx, t, pool, rec.ID)
	if first.RevokedAt == nil {
		t.Fatalf("expected revoked_at set")
	}

	// A second revoke keeps the original timestamp.
	if err := store.RevokeByHash(ctx, now.Add(time.Hour), hash); err != nil {
		t.Fatalf("second RevokeByHash: %v", err)
	}
	second := mustGetRecordByID(ctx, t, pool, rec.ID)
	if !second.RevokedAt.Equal(*first.RevokedAt) {
		t.Fatalf("revoked_at moved: %v -> %v", first.RevokedAt, second.RevokedAt)
	}

	// Unknown hashes are fine.
	if err := store.RevokeByHash(ctx, now, "no-such-hash"); err != nil {
		t.Fatalf("RevokeByHash unknown: %v", err)
	}
}

func TestPostgresStore_DeleteExpired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := integrationPool(ctx, t)
	if pool == nil {
		return
	}
	defer pool.Close()

	store := NewPostgresStore(pool)

	userID := mustCreateTestUser(ctx, t, pool)
	t.Cleanup(func() { cleanupUserData(ctx, t, pool, userID) })

	now := time.Now().UTC()

	_, liveHash, err := newOpaqueRefreshToken(32)
	if err != nil {
		t.Fatalf("newOpaqueRefreshToken: %v", err)
	}
	if _, err := store.Create(ctx, now, userID, liveHash, now.Add(time.Hour)); err != nil {
		t.Fatalf("Create live: %v", err)
	}
	_, deadHash, err := newOpaqueRefreshToken(32)
	if err != nil {
		t.Fatalf("newOpaqueRefreshToken: %v", err)
	}
	if _, err := store.Create(ctx, now, userID, deadHash, now.Add(time.Minute)); err != nil {
		t.Fatalf("Create dead: %v", err)
	}

	if _, err := store.DeleteExpired(ctx, now.Add(30*time.Minute)); err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if _, err := store.FindActiveByHash(ctx, now.Add(30*time.Minute), liveHash); err != nil {
		t.Fatalf("live record gone: %v", err)
	}
	var n int
	if err := pool.QueryRow(ctx, `
		SELECT count(*) FROM reelist.refresh_tokens WHERE token_hash = $1
	`, deadHash).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected expired row deleted, found %d", n)
	}
}

func integrationPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("REELIST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("REELIST_DATABASE_URL is not set; skipping Postgres integration test")
		return nil
	}

	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		t.Fatalf("pgxpool.ParseConfig: %v", err)
	}
	cfg.MaxConns = 4
	cfg.MinConns = 0
	cfg.MaxConnLifetime = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("pgxpool.NewWithConfig: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		if shouldSkipIntegration(err) {
			t.Skipf("integration test skipped: Postgres unreachable (REELIST_DATABASE_URL set): %v", err)
			return nil
		}
		t.Fatalf("pool.Ping: %v", err)
	}
	return pool
}

func shouldSkipIntegration(err error) bool {
	if err == nil {
		return false
	}
	if os.Getenv("CI") != "" {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "no such host") {
		return true
	}
	return false
}

func mustCreateTestUser(ctx context.Context, t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	now := time.Now().UTC()
	id, err := ids.NewULID(now)
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}

	email := fmt.Sprintf("session-it-%s@example.com", strings.ToLower(id))
	_, err = pool.Exec(ctx, `
		INSERT INTO reelist.users (id, email, email_norm, is_admin, password_hash, created_at)
		VALUES ($1, $2, $2, false, 'x', $3)
	`, id, email, now)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return id
}

func cleanupUserData(ctx context.Context, t *testing.T, pool *pgxpool.Pool, userID string) {
	t.Helper()

	_, _ = pool.Exec(ctx, `DELETE FROM reelist.refresh_tokens WHERE user_id = $1`, userID)
	_, _ = pool.Exec(ctx, `DELETE FROM reelist.users WHERE id = $1`, userID)
}

func mustGetRecordByID(ctx context.Context, t *testing.T, pool *pgxpool.Pool, id string) Record {
	t.Helper()

	row := pool.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM reelist.refresh_tokens
		WHERE id = $1
	`, id)
	rec, err := scanRecord(row)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	return rec
}
