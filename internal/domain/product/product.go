package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrNotOwner is returned when a principal tries to mutate a product
	// created by a different admin.
	ErrNotOwner = errors.New("not authorized to modify this product")
)

// Status is the lifecycle state of a catalog entry. Products are never
// physically removed; retiring one flips it to StatusInactive so historical
// orders keep a resolvable reference.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    string
	Images      []string
	Ratings     decimal.Decimal
	CreatedBy   string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Update holds the mutable fields of a product. Nil pointers leave the
// corresponding field untouched.
type Update struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	Category    *string
	Images      []string
}

// Sort enumerates the supported catalog orderings.
type Sort string

const (
	SortNewest    Sort = "newest"
	SortOldest    Sort = "oldest"
	SortPriceAsc  Sort = "price-asc"
	SortPriceDesc Sort = "price-desc"
)

// ListFilter narrows and orders catalog listings. Listings only ever return
// active products; the filter cannot widen that.
type ListFilter struct {
	Category string
	Search   string
	Sort     Sort
	Page     int
	PageSize int
}

// Repository defines persistence operations for the product catalog.
//
// GetByID resolves a product regardless of lifecycle status so lookups from
// historical orders keep working; List applies the active-only filter.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, f ListFilter) ([]Product, error)
	Update(ctx context.Context, id string, u Update) (*Product, error)
	SetStatus(ctx context.Context, id string, s Status) error
}
