package user

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost matches the work factor the service has always used for
// credential hashes; existing hashes verify regardless of cost.
const bcryptCost = 12

// Sentinel errors for registration input validation.
var (
	ErrNameRequired  = errors.New("name is required")
	ErrEmailRequired = errors.New("email is required")
	ErrShortPassword = errors.New("password must be at least 8 characters long")
	ErrInvalidRole   = errors.New("invalid role")
)

// RegisterRequest holds the input for creating an account. An empty Role
// defaults to RoleCustomer.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Role     Role
}

// Service encapsulates account registration and credential verification.
type Service struct {
	users Repository
}

// NewService creates an account Service backed by the given repository.
func NewService(users Repository) *Service {
	return &Service{users: users}
}

// Register validates the request, hashes the credential, and persists a new
// account. Email comparison is case-insensitive: addresses are stored
// lowercased.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrNameRequired
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrEmailRequired
	}
	if len(req.Password) < 8 {
		return nil, ErrShortPassword
	}

	role := req.Role
	if role == "" {
		role = RoleCustomer
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	u := &User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate verifies an email/password pair and returns the matching
// account. Unknown email and wrong password both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "lookup user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Profile returns the account for the given ID.
func (s *Service) Profile(ctx context.Context, id string) (*User, error) {
	return s.users.GetByID(ctx, id)
}
