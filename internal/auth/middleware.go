package auth

import (
	"context"
	"net/http"
)

type contextKey struct{}

var identityKey contextKey

// IdentityFrom returns the identity attached by Middleware. The second
// result is false on requests that did not pass through it.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// WithIdentity returns a context carrying identity. Middleware uses it;
// handler tests use it to stand in for an authenticated request.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// Middleware reads the access token from the named cookie, verifies it
// and attaches the embedded identity to the request context. This is
// the single point that trusts a token payload; downstream handlers
// consume IdentityFrom and never re-verify.
//
// A missing cookie is an unauthenticated request (403); a cookie that
// fails verification is an invalid credential (401). Expired, forged
// and malformed tokens all produce the same client-visible message.
func Middleware(tokens *TokenService, cookieName string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(cookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusForbidden, "authentication required")
			return
		}

		identity, err := tokens.VerifyAccess(cookie.Value)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid access token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}
