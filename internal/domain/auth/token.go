// Package auth provides the credential token layer: issuing and verifying
// the opaque tokens that resolve to an authenticated Principal on every
// request.
package auth

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/shopworks/storefront/internal/domain/user"
)

// ErrInvalidToken is returned when a credential token is missing, expired,
// malformed, or carries a bad signature. The caller maps it to 401 without
// distinguishing the cases.
var ErrInvalidToken = errors.New("invalid or expired token")

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID string
	Role   user.Role
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == user.RoleAdmin
}

// claims is the JWT payload. Subject carries the user ID.
type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HMAC-signed credential tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a token issuer/verifier with the given signing secret
// and token lifetime.
func NewTokens(secret []byte, ttl time.Duration) *Tokens {
	return &Tokens{secret: secret, ttl: ttl, now: time.Now}
}

// Issue creates a signed token for the given account.
func (t *Tokens) Issue(u *user.User) (string, error) {
	now := t.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	})
	signed, err := tok.SignedString(t.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// Verify parses and validates a token string and returns the Principal it
// resolves to.
func (t *Tokens) Verify(raw string) (Principal, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return t.now() }),
	)
	if err != nil || !tok.Valid {
		return Principal{}, ErrInvalidToken
	}

	role := user.Role(c.Role)
	if c.Subject == "" || !role.Valid() {
		return Principal{}, ErrInvalidToken
	}
	return Principal{UserID: c.Subject, Role: role}, nil
}
