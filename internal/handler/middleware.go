package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopworks/storefront/internal/domain/auth"
)

// authCookie is the cookie the original clients send the credential token in.
const authCookie = "auth_token"

// principalKey is the context key for the authenticated Principal.
type principalKey struct{}

// principalFrom extracts the authenticated Principal from the context. The
// bool is false on routes that did not pass through Authenticate.
func principalFrom(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(auth.Principal)
	return p, ok
}

// Authenticate resolves the credential token from the Authorization header
// (Bearer scheme) or the auth cookie into a Principal, rejecting the request
// with 401 otherwise.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			if c, err := r.Cookie(authCookie); err == nil {
				raw = c.Value
			}
		}
		if raw == "" {
			respondMessage(w, http.StatusUnauthorized, "authentication required")
			return
		}

		p, err := h.tokens.Verify(raw)
		if err != nil {
			respondMessage(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin gates a route to admin principals. Must run after
// Authenticate.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r.Context())
		if !ok {
			respondMessage(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !p.IsAdmin() {
			respondMessage(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	v := r.Header.Get("Authorization")
	if len(v) > len(prefix) && strings.EqualFold(v[:len(prefix)], prefix) {
		return v[len(prefix):]
	}
	return ""
}
