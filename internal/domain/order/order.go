package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/shopworks/storefront/internal/domain/product"
)

// Sentinel errors for order validation and authorization.
var (
	// ErrNotFound is returned when a requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrEmptyItems is returned when an order request has no line items.
	ErrEmptyItems = errors.New("items required")
	// ErrShippingAddressRequired is returned when the shipping address is blank.
	ErrShippingAddressRequired = errors.New("shipping address required")
	// ErrNotOwner is returned when a principal acts on an order it does not own.
	ErrNotOwner = errors.New("not authorized to access this order")
	// ErrNotPending is returned when cancelling an order that already left
	// the pending state.
	ErrNotPending = errors.New("only pending orders can be cancelled")
)

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InsufficientStockError indicates a requested quantity exceeds the
// available stock. ProductName is included so the client message can name
// the offending product.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product: %s", e.ProductName)
}

// Status is the lifecycle state of an order. The only transition in scope is
// StatusPending -> StatusCancelled; the remaining states exist for the wider
// fulfilment flow and are terminal from this workflow's point of view.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusShipped   Status = "shipped"
)

// PaymentStatus tracks the payment collaborator's view of an order.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// LineItem is one (product, quantity, captured price) entry within an order.
// Price is the unit price frozen at placement time; later catalog price
// changes never alter it.
type LineItem struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

// Order represents a placed customer order with its line-item snapshots.
type Order struct {
	ID              string
	UserID          string
	Items           []LineItem
	TotalAmount     decimal.Decimal
	Status          Status
	ShippingAddress string
	PaymentStatus   PaymentStatus
	CreatedAt       time.Time
}

// Tx is the set of operations available inside a single order-workflow
// transaction. Either every operation in the transaction takes effect or
// none do.
type Tx interface {
	// ReserveStock atomically decrements an active product's stock by qty,
	// failing the decrement rather than going negative. It returns the
	// product as of the reservation so the caller can snapshot its price.
	// Errors: product.ErrNotFound, *InsufficientStockError.
	ReserveStock(ctx context.Context, productID string, qty int) (*product.Product, error)

	// RestoreStock increments a product's stock by qty. Returns
	// product.ErrNotFound when the product no longer exists.
	RestoreStock(ctx context.Context, productID string, qty int) error

	// CreateOrder persists a new order together with its line items.
	CreateOrder(ctx context.Context, o *Order) error

	// GetForUpdate fetches an order with its row locked for the remainder
	// of the transaction, serializing concurrent cancellations.
	GetForUpdate(ctx context.Context, id string) (*Order, error)

	// SetStatus transitions an order from one status to another. It fails
	// with ErrNotPending semantics at the storage level when the current
	// status does not match from.
	SetStatus(ctx context.Context, id string, from, to Status) error
}

// Store provides transactional access for the order workflow plus plain
// reads for listing.
type Store interface {
	// InTx runs fn inside a database transaction, committing when fn
	// returns nil and rolling back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	Get(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
}
