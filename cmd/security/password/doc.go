// Package password provides credential hashing and verification for reelist.
//
// It implements Argon2id hashing using a PHC-like encoded string format and includes:
// - Configurable Argon2id parameters (via environment variables)
// - Password policy validation
// - Strict hash decoding and verification with anti-DoS bounds
//
// The same slow hash also protects short server-generated secrets such as
// password-reset codes (see HashSecret), where salting and cost matter because
// the input space is tiny.
//
// Security notes:
// - Hash strings are treated as untrusted input during Verify and are validated accordingly.
// - Verification refuses hashes with parameters that exceed reasonable bounds.
package password
