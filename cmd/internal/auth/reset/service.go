package reset

import (
	"context"
	"strings"
	"time"

	"reelist/cmd/identity"
	"reelist/cmd/security/password"
)

// PrincipalStore is the slice of the identity store the reset flow needs.
type PrincipalStore interface {
	GetUserByEmail(ctx context.Context, email string) (identity.User, error)
	SetResetCode(ctx context.Context, userID string, codeHash string, expiresAt time.Time) error
	UpdatePassword(ctx context.Context, userID string, passwordHash string) error
}

// Service implements the forgot/check/reset operations.
type Service struct {
	cfg       Config
	store     PrincipalStore
	passwords password.Config
	sender    Sender
}

// NewService constructs a Service. A nil sender falls back to LogSender.
func NewService(cfg Config, store PrincipalStore, passwords password.Config, sender Sender) *Service {
	if sender == nil {
		sender = LogSender{}
	}
	return &Service{cfg: cfg, store: store, passwords: passwords, sender: sender}
}

// Forgot issues a reset code for the account behind email, replacing any
// outstanding one, and hands it to the sender for delivery.
//
// An unknown email is not an error and causes no side effect; the caller
// must answer identically either way so the endpoint cannot be used to
// probe which addresses have accounts.
func (s *Service) Forgot(ctx context.Context, now time.Time, email string) error {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if identity.IsNotFound(err) || identity.IsInvalidInput(err) {
			return nil
		}
		return err
	}

	code, err := newCode()
	if err != nil {
		return err
	}
	// The code is far too short for the interactive password policy; it gets
	// the same slow salted hash without the policy gate.
	codeHash, err := s.passwords.HashSecret(code)
	if err != nil {
		return err
	}

	if err := s.store.SetResetCode(ctx, user.ID, codeHash, now.Add(s.cfg.CodeTTL)); err != nil {
		return err
	}

	return s.sender.SendResetCode(ctx, user.Email, code)
}

// CheckCode reports whether email + code would currently be redeemable.
// Any failure is ErrInvalidCode; callers learn nothing about which check
// failed. Checking does not consume the code.
func (s *Service) CheckCode(ctx context.Context, now time.Time, email, code string) error {
	_, err := s.redeemable(ctx, now, email, code)
	return err
}

// Reset redeems a code and installs a new password. The code is cleared in
// the same store operation that writes the password hash, so redeeming it
// twice is impossible even under concurrent attempts.
//
// The new password must satisfy the interactive password policy; policy
// violations surface as the password package's errors, distinct from
// ErrInvalidCode.
func (s *Service) Reset(ctx context.Context, now time.Time, email, code, newPassword string) error {
	user, err := s.redeemable(ctx, now, email, code)
	if err != nil {
		return err
	}

	newHash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.store.UpdatePassword(ctx, user.ID, newHash); err != nil {
		if identity.IsNotFound(err) {
			return ErrInvalidCode
		}
		return err
	}
	return nil
}

func (s *Service) redeemable(ctx context.Context, now time.Time, email, code string) (identity.User, error) {
	code = strings.TrimSpace(code)
	if len(code) != CodeDigits {
		return identity.User{}, ErrInvalidCode
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if identity.IsNotFound(err) || identity.IsInvalidInput(err) {
			return identity.User{}, ErrInvalidCode
		}
		return identity.User{}, err
	}

	if user.ResetCodeHash == nil || user.ResetCodeExpiresAt == nil {
		return identity.User{}, ErrInvalidCode
	}
	if !user.ResetCodeExpiresAt.After(now) {
		return identity.User{}, ErrInvalidCode
	}

	ok, err := s.passwords.Verify(*user.ResetCodeHash, code)
	if err != nil || !ok {
		return identity.User{}, ErrInvalidCode
	}
	return user, nil
}
