package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"reelist/cmd/identity"
	"reelist/cmd/security/password"
)

func testPasswordConfig() password.Config {
	// Cheap parameters so tests stay fast; production cost comes from env.
	return password.Config{
		Params: password.Argon2idParams{
			MemoryKiB:   1024,
			Iterations:  1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: password.Policy{MinLength: 8, MaxLength: 256},
	}
}

func newTestService(t *testing.T) (*Service, *identity.MemoryStore, *MemoryStore) {
	t.Helper()

	cfg := DefaultConfig()
	cfg.SecretKey = testSecretKey

	tokens, err := NewHS256Manager(cfg)
	if err != nil {
		t.Fatalf("NewHS256Manager: %v", err)
	}

	users := identity.NewMemoryStore()
	store := NewMemoryStore()
	svc := NewService(cfg, users, testPasswordConfig(), store, tokens)

	return svc, users, store
}

func seedUser(t *testing.T, users *identity.MemoryStore, email, pass string, isAdmin bool) identity.User {
	t.Helper()

	hash, err := testPasswordConfig().Hash(pass)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	u, err := users.CreateUser(context.Background(), identity.CreateUserInput{
		Email:        email,
		IsAdmin:      isAdmin,
		PasswordHash: hash,
		Now:          time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func TestLogin_OK(t *testing.T) {
	svc, users, _ := newTestService(t)
	u := seedUser(t, users, "ana@example.com", "correct horse", false)

	now := time.Now().UTC()
	issued, err := svc.Login(context.Background(), now, "ana@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if issued.AccessToken == "" || issued.RefreshToken == "" {
		t.Fatalf("expected both tokens")
	}
	if issued.UserID != u.ID {
		t.Fatalf("user id = %q, want %q", issued.UserID, u.ID)
	}

	claims, err := svc.VerifyAccess(issued.AccessToken, now)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.UserID != u.ID || claims.IsAdmin {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestLogin_UnknownEmailAndWrongPasswordLookAlike(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "ana@example.com", "correct horse", false)

	now := time.Now().UTC()
	_, errUnknown := svc.Login(context.Background(), now, "nobody@example.com", "whatever-pass")
	_, errWrong := svc.Login(context.Background(), now, "ana@example.com", "wrong password")

	if !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v", errUnknown)
	}
	if !errors.Is(errWrong, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", errWrong)
	}
	if errUnknown.Error() != errWrong.Error() {
		t.Fatalf("errors must be indistinguishable: %q vs %q", errUnknown, errWrong)
	}
}

func TestLogin_SecondDeviceKeepsFirstChain(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "ana@example.com", "correct horse", false)

	ctx := context.Background()
	now := time.Now().UTC()

	first, err := svc.Login(ctx, now, "ana@example.com", "correct horse")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	if _, err := svc.Login(ctx, now, "ana@example.com", "correct horse"); err != nil {
		t.Fatalf("second login: %v", err)
	}

	// The first device's refresh token still rotates fine.
	if _, err := svc.Refresh(ctx, now.Add(time.Minute), first.RefreshToken); err != nil {
		t.Fatalf("refresh after second login: %v", err)
	}
}

func TestRefresh_RotatesAndInvalidatesPredecessor(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "ana@example.com", "correct horse", false)

	ctx := context.Background()
	now := time.Now().UTC()

	issued, err := svc.Login(ctx, now, "ana@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	rotated, err := svc.Refresh(ctx, now.Add(time.Minute), issued.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rotated.RefreshToken == issued.RefreshToken {
		t.Fatalf("rotation must change the refresh value")
	}

	// The old value is permanently dead, even though its expiry is far off.
	if _, err := svc.Refresh(ctx, now.Add(2*time.Minute), issued.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("replayed old value: got %v", err)
	}

	// The successor keeps working.
	if _, err := svc.Refresh(ctx, now.Add(3*time.Minute), rotated.RefreshToken); err != nil {
		t.Fatalf("refresh successor: %v", err)
	}
}

func TestRefresh_EmptyAndUnknown(t *testing.T) {
	svc, _, _ := newTestService(t)

	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := svc.Refresh(ctx, now, "  "); !errors.Is(err, ErrRefreshRequired) {
		t.Fatalf("empty value: got %v", err)
	}
	if _, err := svc.Refresh(ctx, now, "never-issued-value"); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("unknown value: got %v", err)
	}
}

func TestRefresh_ExpiredChain(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "ana@example.com", "correct horse", false)

	ctx := context.Background()
	now := time.Now().UTC()

	issued, err := svc.Login(ctx, now, "ana@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	late := issued.RefreshExp.Add(time.Second)
	if _, err := svc.Refresh(ctx, late, issued.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expired value: got %v", err)
	}
}

func TestRefresh_ConcurrentSingleWinner(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "ana@example.com", "correct horse", false)

	ctx := context.Background()
	now := time.Now().UTC()

	issued, err := svc.Login(ctx, now, "ana@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	const workers = 16
	errs := make([]error, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := range workers {
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Refresh(ctx, now.Add(time.Minute), issued.RefreshToken)
		}()
	}
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrRefreshInvalid):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1 (losses = %d)", wins, losses)
	}
}

func TestRefresh_PicksUpAdminFlagChange(t *testing.T) {
	svc, users, _ := newTestService(t)
	u := seedUser(t, users, "ana@example.com", "correct horse", false)

	ctx := context.Background()
	now := time.Now().UTC()

	issued, err := svc.Login(ctx, now, "ana@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	users.SetAdmin(u.ID, true)

	rotated, err := svc.Refresh(ctx, now.Add(time.Minute), issued.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	claims, err := svc.VerifyAccess(rotated.AccessToken, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if !claims.IsAdmin {
		t.Fatalf("expected refreshed access token to carry the new admin flag")
	}
}

func TestLogout_RevokesAndIsIdempotent(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "ana@example.com", "correct horse", false)

	ctx := context.Background()
	now := time.Now().UTC()

	issued, err := svc.Login(ctx, now, "ana@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.Logout(ctx, now, issued.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, now.Add(time.Minute), issued.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("refresh after logout: got %v", err)
	}

	// Repeats and junk are fine.
	if err := svc.Logout(ctx, now, issued.RefreshToken); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
	if err := svc.Logout(ctx, now, "never-issued-value"); err != nil {
		t.Fatalf("Logout unknown: %v", err)
	}
	if err := svc.Logout(ctx, now, ""); err != nil {
		t.Fatalf("Logout empty: %v", err)
	}

	// Access token issued before logout still verifies; revocation only
	// covers the refresh chain.
	if _, err := svc.VerifyAccess(issued.AccessToken, now.Add(time.Minute)); err != nil {
		t.Fatalf("VerifyAccess after logout: %v", err)
	}
}

func TestStore_NoRawRefreshValueAtRest(t *testing.T) {
	svc, users, store := newTestService(t)
	seedUser(t, users, "ana@example.com", "correct horse", false)

	ctx := context.Background()
	now := time.Now().UTC()

	issued, err := svc.Login(ctx, now, "ana@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, ok := store.byHash[issued.RefreshToken]; ok {
		t.Fatalf("store keyed by raw refresh value")
	}
	hash := hashRefreshTokenHex(issued.RefreshToken)
	rec, ok := store.byHash[hash]
	if !ok {
		t.Fatalf("expected record under token hash")
	}
	if rec.TokenHash != hash || len(rec.TokenHash) != 64 {
		t.Fatalf("token hash = %q", rec.TokenHash)
	}
}

func TestStore_DeleteExpired(t *testing.T) {
	_, _, store := newTestService(t)

	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := store.Create(ctx, now, "user-1", "hash-live", now.Add(time.Hour)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create(ctx, now, "user-1", "hash-dead", now.Add(time.Minute)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	n, err := store.DeleteExpired(ctx, now.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted = %d, want 1", n)
	}
	if _, err := store.FindActiveByHash(ctx, now.Add(30*time.Minute), "hash-live"); err != nil {
		t.Fatalf("live record gone: %v", err)
	}
}
