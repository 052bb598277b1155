package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock repository ---

type mockUserRepo struct {
	byEmail map[string]*User
	byID    map[string]*User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		byEmail: make(map[string]*User),
		byID:    make(map[string]*User),
	}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	if _, ok := m.byEmail[u.Email]; ok {
		return ErrEmailTaken
	}
	m.byEmail[u.Email] = u
	m.byID[u.ID] = u
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

// --- Tests ---

func validRequest() RegisterRequest {
	return RegisterRequest{
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Password: "correct horse",
	}
}

func TestRegister(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewService(repo)

	u, err := svc.Register(context.Background(), validRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, RoleCustomer, u.Role, "role defaults to customer")
	assert.NotEqual(t, "correct horse", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("correct horse")))
}

func TestRegister_NormalizesEmail(t *testing.T) {
	svc := NewService(newMockUserRepo())

	req := validRequest()
	req.Email = "  Ada@Example.COM "
	u, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
}

func TestRegister_Validation(t *testing.T) {
	svc := NewService(newMockUserRepo())
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*RegisterRequest)
		wantErr error
	}{
		{"blank name", func(r *RegisterRequest) { r.Name = "  " }, ErrNameRequired},
		{"empty email", func(r *RegisterRequest) { r.Email = "" }, ErrEmailRequired},
		{"email without at sign", func(r *RegisterRequest) { r.Email = "nope" }, ErrEmailRequired},
		{"short password", func(r *RegisterRequest) { r.Password = "1234567" }, ErrShortPassword},
		{"unknown role", func(r *RegisterRequest) { r.Role = "superuser" }, ErrInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := svc.Register(ctx, req)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := NewService(newMockUserRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, validRequest())
	require.NoError(t, err)

	_, err = svc.Register(ctx, validRequest())
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_AdminRole(t *testing.T) {
	svc := NewService(newMockUserRepo())

	req := validRequest()
	req.Role = RoleAdmin
	u, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, u.Role)
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(newMockUserRepo())
	ctx := context.Background()

	registered, err := svc.Register(ctx, validRequest())
	require.NoError(t, err)

	u, err := svc.Authenticate(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, u.ID)

	// Case-insensitive email.
	_, err = svc.Authenticate(ctx, "ADA@example.com", "correct horse")
	require.NoError(t, err)
}

func TestAuthenticate_InvalidCredentials(t *testing.T) {
	svc := NewService(newMockUserRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, validRequest())
	require.NoError(t, err)

	// Unknown email and wrong password yield the same error.
	_, err = svc.Authenticate(ctx, "nobody@example.com", "correct horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "ada@example.com", "wrong password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestProfile(t *testing.T) {
	svc := NewService(newMockUserRepo())
	ctx := context.Background()

	registered, err := svc.Register(ctx, validRequest())
	require.NoError(t, err)

	u, err := svc.Profile(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", u.Name)

	_, err = svc.Profile(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
