package session

import (
	"context"
)

// contextKey is unexported so other packages cannot collide with it.
type contextKey string

const claimsContextKey contextKey = "session_claims"

// NewContextWithClaims returns a child context carrying the claims.
func NewContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext extracts the claims stored by NewContextWithClaims.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok && claims != nil
}

// UserNameFromContext returns the logged-in username, if any.
func UserNameFromContext(ctx context.Context) (string, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return "", false
	}
	return claims.UserName, true
}
