package reset

import (
	"context"
	"log/slog"
)

// Sender delivers a reset code to the account's email address.
type Sender interface {
	SendResetCode(ctx context.Context, email, code string) error
}

// LogSender is the development Sender: it logs the code instead of sending
// mail. Never use it in production; the code grants a password change.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) SendResetCode(ctx context.Context, email, code string) error {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	log.InfoContext(ctx, "password reset code issued (dev sender)",
		slog.String("email", email),
		slog.String("code", code),
	)
	return nil
}
