// Package identity holds reelist's principal model and its persistence
// boundary.
//
// The auth core reads a principal's id, credential hash, and admin flag, and
// writes the credential hash and password-reset fields. Everything else about
// accounts (profiles, follows, watchlists) belongs to the wider user service
// and is out of scope here.
//
// This package is intentionally dependency-light and security-first.
package identity
