// Package session implements Reelist's credential and session lifecycle.
//
// It verifies passwords at login, issues short-lived HS256 access tokens,
// and manages opaque refresh tokens with single-use rotation: each refresh
// atomically retires the presented value and emits a successor, so at most
// one value per chain is ever active. A replayed retired value simply fails,
// which is how token theft surfaces.
//
// Refresh tokens are opaque random strings and are stored hashed in Postgres
// (HMAC-SHA256 when REELIST_TOKEN_HMAC_KEY is set; otherwise SHA-256 for dev).
//
// Transport integration lives in the api package.
package session
