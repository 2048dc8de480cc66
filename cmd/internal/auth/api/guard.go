package authapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"reelist/cmd/internal/auth/session"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the access claims placed by RequireAuth.
func ClaimsFromContext(ctx context.Context) (session.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(session.AccessClaims)
	return claims, ok
}

// Guard authenticates requests from bearer access tokens.
//
// Verification is stateless: a token that parses, has a valid signature,
// and has not expired is accepted without any store lookup. Revoking a
// refresh chain therefore does not cut short access tokens already issued
// from it; they die at their own expiry.
type Guard struct {
	sessions *session.Service
	metrics  *Metrics
}

// NewGuard constructs a Guard. Metrics may be nil.
func NewGuard(sessions *session.Service, metrics *Metrics) *Guard {
	return &Guard{sessions: sessions, metrics: metrics}
}

// RequireAuth rejects requests without a valid bearer token and otherwise
// invokes next with the verified claims in the request context.
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			g.metrics.observe("guard", outcomeDenied)
			writeError(w, http.StatusUnauthorized, codeAuthTokenMissing, "missing bearer token")
			return
		}

		claims, err := g.sessions.VerifyAccess(token, time.Now().UTC())
		if err != nil {
			g.metrics.observe("guard", outcomeDenied)
			writeError(w, http.StatusUnauthorized, codeAuthTokenInvalid, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin layers on RequireAuth and additionally rejects principals
// whose token does not carry the admin flag.
func (g *Guard) RequireAdmin(next http.Handler) http.Handler {
	return g.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || !claims.IsAdmin {
			g.metrics.observe("guard", outcomeDenied)
			writeError(w, http.StatusForbidden, codeAdminRequired, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
