package session

import (
	"context"
	"strings"
	"time"

	"reelist/cmd/identity"
	"reelist/cmd/security/password"
)

// PrincipalReader is the slice of the identity store the session service
// needs: credential lookup at login and the admin flag at refresh.
type PrincipalReader interface {
	GetUserByEmail(ctx context.Context, email string) (identity.User, error)
	GetUserByID(ctx context.Context, id string) (identity.User, error)
}

// Service implements the high-level session operations for Reelist.
//
// It verifies credentials, issues access + refresh token pairs, rotates
// refresh tokens, and revokes them at logout.
type Service struct {
	cfg        Config
	tokens     AccessTokenManager
	store      Store
	principals PrincipalReader
	passwords  password.Config

	// dummyHash keeps login latency comparable whether or not the email
	// exists, so response timing does not leak account existence.
	dummyHash string
}

// Issued is the result of issuing or rotating a session.
// It includes a short-lived access token and an opaque refresh token.
type Issued struct {
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
	UserID       string
}

// NewService constructs a Service with the provided configuration, stores,
// and token manager.
func NewService(cfg Config, principals PrincipalReader, passwords password.Config, store Store, tokens AccessTokenManager) *Service {
	s := &Service{
		cfg:        cfg,
		tokens:     tokens,
		store:      store,
		principals: principals,
		passwords:  passwords,
	}

	if hash, err := passwords.HashSecret("dummy-password-for-timing-only"); err == nil {
		s.dummyHash = hash
	}

	return s
}

// Login verifies email + password and issues a fresh token pair.
//
// Unknown email and wrong password both return ErrInvalidCredentials; the
// caller must not be able to tell them apart, by response or by timing.
// Existing refresh chains for the account stay active, so logging in from
// a second device does not log out the first.
func (s *Service) Login(ctx context.Context, now time.Time, email, pass string) (Issued, error) {
	user, err := s.principals.GetUserByEmail(ctx, email)
	if err != nil {
		if identity.IsNotFound(err) || identity.IsInvalidInput(err) {
			if s.dummyHash != "" {
				_, _ = s.passwords.Verify(s.dummyHash, pass)
			}
			return Issued{}, ErrInvalidCredentials
		}
		return Issued{}, err
	}

	ok, err := s.passwords.Verify(user.PasswordHash, pass)
	if err != nil || !ok {
		return Issued{}, ErrInvalidCredentials
	}

	return s.issue(ctx, now, user.ID, user.IsAdmin)
}

// IssueSession creates a token pair for an already-authenticated user,
// for callers that establish identity outside the password path.
func (s *Service) IssueSession(ctx context.Context, now time.Time, userID string, isAdmin bool) (Issued, error) {
	return s.issue(ctx, now, userID, isAdmin)
}

func (s *Service) issue(ctx context.Context, now time.Time, userID string, isAdmin bool) (Issued, error) {
	refreshPlain, refreshHash, err := newOpaqueRefreshToken(s.cfg.RefreshTokenBytes)
	if err != nil {
		return Issued{}, err
	}
	refreshExp := now.Add(s.cfg.RefreshTokenTTL)

	if _, err := s.store.Create(ctx, now, userID, refreshHash, refreshExp); err != nil {
		return Issued{}, err
	}

	accessToken, accessExp, err := s.tokens.Issue(userID, isAdmin, now)
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		AccessToken:  accessToken,
		AccessExp:    accessExp,
		RefreshToken: refreshPlain,
		RefreshExp:   refreshExp,
		UserID:       userID,
	}, nil
}

// Refresh rotates a refresh token and issues a new token pair.
//
// The presented value is retired in the same atomic step that creates its
// successor. Presenting it again afterwards fails with ErrRefreshInvalid,
// as does any unknown, revoked, or expired value. Under concurrent
// presentations of the same value exactly one caller wins.
func (s *Service) Refresh(ctx context.Context, now time.Time, refreshTokenPlain string) (Issued, error) {
	refreshTokenPlain = strings.TrimSpace(refreshTokenPlain)
	if refreshTokenPlain == "" {
		return Issued{}, ErrRefreshRequired
	}
	// Sanity bound against pathological inputs.
	if len(refreshTokenPlain) > 4096 {
		return Issued{}, ErrRefreshInvalid
	}

	oldHash := hashRefreshTokenHex(refreshTokenPlain)

	newPlain, newHash, err := newOpaqueRefreshToken(s.cfg.RefreshTokenBytes)
	if err != nil {
		return Issued{}, err
	}
	newExp := now.Add(s.cfg.RefreshTokenTTL)

	rec, err := s.store.Rotate(ctx, now, oldHash, newHash, newExp)
	if err != nil {
		return Issued{}, err
	}

	// Read the admin flag fresh so privilege changes take effect no later
	// than the next refresh.
	user, err := s.principals.GetUserByID(ctx, rec.UserID)
	if err != nil {
		return Issued{}, err
	}

	accessToken, accessExp, err := s.tokens.Issue(user.ID, user.IsAdmin, now)
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		AccessToken:  accessToken,
		AccessExp:    accessExp,
		RefreshToken: newPlain,
		RefreshExp:   newExp,
		UserID:       user.ID,
	}, nil
}

// Logout revokes the presented refresh token. It never fails on unknown,
// already-revoked, or missing values: logout is idempotent and reveals
// nothing about token validity. The caller's access token stays valid
// until it expires on its own.
func (s *Service) Logout(ctx context.Context, now time.Time, refreshTokenPlain string) error {
	refreshTokenPlain = strings.TrimSpace(refreshTokenPlain)
	if refreshTokenPlain == "" || len(refreshTokenPlain) > 4096 {
		return nil
	}
	return s.store.RevokeByHash(ctx, now, hashRefreshTokenHex(refreshTokenPlain))
}

// VerifyAccess checks an access token statelessly; no store lookup happens.
func (s *Service) VerifyAccess(token string, now time.Time) (AccessClaims, error) {
	return s.tokens.Verify(token, now)
}
