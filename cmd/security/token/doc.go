// Package token provides token generation and hashing primitives for reelist.
//
// It is the single source of truth for opaque refresh-token values and their
// server-side hashes.
//
// Design goals:
// - Opaque values carry at least 256 bits of entropy, base64url-encoded.
// - Default dev/back-compat mode: SHA-256(token) when no HMAC key is configured.
// - Production-enforced mode: HMAC-SHA256(token, key) when policy requires it.
// - Stable 64-char hex output for storage and constant-time comparison.
//
// Environment:
// - REELIST_TOKEN_HMAC_KEY: when set, enables HMAC mode.
// Policy:
//   - If RequireTokenHMAC=true, callers MUST enforce a minimum key size (>= 32 bytes)
//     and MUST use HMAC (no SHA fallback).
package token
