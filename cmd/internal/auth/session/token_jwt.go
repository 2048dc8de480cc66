package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the minimal identity envelope carried by an access token.
type AccessClaims struct {
	UserID    string
	IsAdmin   bool
	ExpiresAt time.Time
	IssuedAt  time.Time
	Issuer    string
}

// AccessTokenManager issues and verifies short-lived access tokens.
type AccessTokenManager interface {
	Issue(userID string, isAdmin bool, now time.Time) (token string, exp time.Time, err error)
	Verify(token string, now time.Time) (AccessClaims, error)
}

type jwtClaims struct {
	IsAdmin bool `json:"adm"`
	jwt.RegisteredClaims
}

type hs256Manager struct {
	issuer    string
	ttl       time.Duration
	clockSkew time.Duration
	secret    []byte
}

// NewHS256Manager builds an AccessTokenManager signing HS256 JWTs.
//
// Verification enforces the signing algorithm, issuer, and expiration,
// with ClockSkew applied as leeway on the time claims.
func NewHS256Manager(cfg Config) (AccessTokenManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &hs256Manager{
		issuer:    cfg.Issuer,
		ttl:       cfg.AccessTokenTTL,
		clockSkew: cfg.ClockSkew,
		secret:    []byte(cfg.SecretKey),
	}, nil
}

func (m *hs256Manager) Issue(userID string, isAdmin bool, now time.Time) (string, time.Time, error) {
	exp := now.Add(m.ttl)

	claims := jwtClaims{
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (m *hs256Manager) Verify(token string, now time.Time) (AccessClaims, error) {
	var claims jwtClaims

	parsed, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	// All failures look the same to callers: malformed, bad signature,
	// wrong issuer, and expired are indistinguishable.
	if err != nil || !parsed.Valid {
		return AccessClaims{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return AccessClaims{}, ErrInvalidToken
	}

	out := AccessClaims{
		UserID:  claims.Subject,
		IsAdmin: claims.IsAdmin,
		Issuer:  claims.Issuer,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
