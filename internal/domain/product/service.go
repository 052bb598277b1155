package product

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sentinel errors for catalog input validation.
var (
	ErrNameRequired     = errors.New("product name is required")
	ErrCategoryRequired = errors.New("product category is required")
	ErrNegativePrice    = errors.New("price cannot be negative")
	ErrNegativeStock    = errors.New("stock cannot be negative")
)

// CreateRequest holds the input for adding a catalog entry.
type CreateRequest struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    string
	Images      []string
}

// Service encapsulates catalog management rules: input validation and
// owner-gated mutation. Only the admin that created a product may update or
// retire it.
type Service struct {
	products Repository
}

// NewService creates a catalog Service backed by the given repository.
func NewService(products Repository) *Service {
	return &Service{products: products}
}

// Create validates the request and persists a new active product owned by
// the creating principal.
func (s *Service) Create(ctx context.Context, creatorID string, req CreateRequest) (*Product, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrNameRequired
	}
	if strings.TrimSpace(req.Category) == "" {
		return nil, ErrCategoryRequired
	}
	if req.Price.IsNegative() {
		return nil, ErrNegativePrice
	}
	if req.Stock < 0 {
		return nil, ErrNegativeStock
	}

	p := &Product{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		Images:      req.Images,
		Ratings:     decimal.Zero,
		CreatedBy:   creatorID,
		Status:      StatusActive,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return p, nil
}

// Update applies a partial update after verifying ownership.
func (s *Service) Update(ctx context.Context, principalID, productID string, u Update) (*Product, error) {
	if err := s.checkOwner(ctx, principalID, productID); err != nil {
		return nil, err
	}
	if u.Price != nil && u.Price.IsNegative() {
		return nil, ErrNegativePrice
	}
	if u.Stock != nil && *u.Stock < 0 {
		return nil, ErrNegativeStock
	}

	p, err := s.products.Update(ctx, productID, u)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Retire soft-deletes a product after verifying ownership. The record stays
// addressable by ID for historical orders but leaves all catalog listings.
func (s *Service) Retire(ctx context.Context, principalID, productID string) error {
	if err := s.checkOwner(ctx, principalID, productID); err != nil {
		return err
	}
	return s.products.SetStatus(ctx, productID, StatusInactive)
}

func (s *Service) checkOwner(ctx context.Context, principalID, productID string) error {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if p.CreatedBy != principalID {
		return ErrNotOwner
	}
	return nil
}
