// Package reset implements the password-reset code flow.
//
// A forgot-password request issues a 6-digit one-time code delivered out of
// band and stored only as an Argon2id hash next to the principal, replacing
// any earlier outstanding code. Codes expire after a short window and are
// consumed by the password update itself, so a code can never be redeemed
// twice. Every failure mode reports the same error to the caller.
package reset
