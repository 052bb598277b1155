package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopworks/storefront/internal/domain/user"
)

func testTokens(ttl time.Duration) *Tokens {
	return NewTokens([]byte("test-secret"), ttl)
}

func testUser(role user.Role) *user.User {
	return &user.User{ID: "u1", Email: "ada@example.com", Role: role}
}

func TestIssueAndVerify(t *testing.T) {
	tokens := testTokens(time.Hour)

	raw, err := tokens.Issue(testUser(user.RoleCustomer))
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	p, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, user.RoleCustomer, p.Role)
	assert.False(t, p.IsAdmin())
}

func TestVerify_AdminRole(t *testing.T) {
	tokens := testTokens(time.Hour)

	raw, err := tokens.Issue(testUser(user.RoleAdmin))
	require.NoError(t, err)

	p, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.True(t, p.IsAdmin())
}

func TestVerify_Expired(t *testing.T) {
	tokens := testTokens(time.Hour)

	raw, err := tokens.Issue(testUser(user.RoleCustomer))
	require.NoError(t, err)

	// Move the verifier's clock past the expiry.
	tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = tokens.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	issuer := NewTokens([]byte("secret-a"), time.Hour)
	verifier := NewTokens([]byte("secret-b"), time.Hour)

	raw, err := issuer.Issue(testUser(user.RoleCustomer))
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Garbage(t *testing.T) {
	tokens := testTokens(time.Hour)

	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		_, err := tokens.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, "input %q", raw)
	}
}

func TestVerify_UnknownRole(t *testing.T) {
	tokens := testTokens(time.Hour)

	raw, err := tokens.Issue(testUser("superuser"))
	require.NoError(t, err)

	_, err = tokens.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_MissingSubject(t *testing.T) {
	tokens := testTokens(time.Hour)

	raw, err := tokens.Issue(&user.User{Role: user.RoleCustomer})
	require.NoError(t, err)

	_, err = tokens.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}
