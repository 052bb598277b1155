package order

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shopworks/storefront/internal/domain/auth"
	"github.com/shopworks/storefront/internal/domain/product"
)

// ItemRequest is one requested (product, quantity) pair.
type ItemRequest struct {
	ProductID string
	Quantity  int
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Items           []ItemRequest
	ShippingAddress string
}

// Service is the order workflow engine: it validates order requests against
// the catalog, reserves stock, persists orders, and handles state-gated
// cancellation that reverses the reservation.
//
// Placement is all-or-nothing: every reservation and the order insert run in
// one transaction, and the per-item stock check-and-decrement is a single
// conditional update, so concurrent orders can never oversell a product.
type Service struct {
	store Store
}

// NewService creates an order Service backed by the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// PlaceOrder validates the request, reserves stock for each line item,
// snapshots unit prices, and persists the order in StatusPending. Items are
// processed in request order and the first failure aborts the whole
// placement with no stock mutated.
func (s *Service) PlaceOrder(ctx context.Context, userID string, req PlaceOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if strings.TrimSpace(req.ShippingAddress) == "" {
		return nil, ErrShippingAddressRequired
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
	}

	// A product named on several lines is reserved once with the summed
	// quantity, so the order carries one line item per product.
	merged := make([]ItemRequest, 0, len(req.Items))
	lineFor := make(map[string]int, len(req.Items))
	for _, item := range req.Items {
		if i, ok := lineFor[item.ProductID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		lineFor[item.ProductID] = len(merged)
		merged = append(merged, item)
	}

	o := &Order{
		ID:              uuid.New().String(),
		UserID:          userID,
		Status:          StatusPending,
		ShippingAddress: req.ShippingAddress,
		PaymentStatus:   PaymentPending,
	}

	err := s.store.InTx(ctx, func(tx Tx) error {
		total := decimal.Zero
		items := make([]LineItem, 0, len(merged))

		for _, item := range merged {
			p, err := tx.ReserveStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}

			qty := decimal.NewFromInt(int64(item.Quantity))
			total = total.Add(p.Price.Mul(qty))
			items = append(items, LineItem{
				ProductID: p.ID,
				Quantity:  item.Quantity,
				Price:     p.Price,
			})
		}

		o.Items = items
		o.TotalAmount = total
		return tx.CreateOrder(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	return o, nil
}

// Cancel transitions an order from pending to cancelled and restores the
// reserved stock. Only the order's owner may cancel it; admins have no
// override here. A product that disappeared since placement cannot have its
// stock restored; that is logged as a reconciliation error and the
// cancellation proceeds.
func (s *Service) Cancel(ctx context.Context, principal auth.Principal, orderID string) (*Order, error) {
	var cancelled *Order

	err := s.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != principal.UserID {
			return ErrNotOwner
		}
		if o.Status != StatusPending {
			return ErrNotPending
		}

		for _, item := range o.Items {
			if err := tx.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, product.ErrNotFound) {
					zctx.From(ctx).Error("stock restoration lost: product missing",
						zap.String("order_id", o.ID),
						zap.String("product_id", item.ProductID),
						zap.Int("quantity", item.Quantity),
					)
					continue
				}
				return err
			}
		}

		if err := tx.SetStatus(ctx, o.ID, StatusPending, StatusCancelled); err != nil {
			return err
		}

		o.Status = StatusCancelled
		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	return cancelled, nil
}

// Get returns a single order. Customers may only read their own orders;
// admins may read any.
func (s *Service) Get(ctx context.Context, principal auth.Principal, orderID string) (*Order, error) {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !principal.IsAdmin() && o.UserID != principal.UserID {
		return nil, ErrNotOwner
	}
	return o, nil
}

// List returns the principal's orders, or every order for admins.
func (s *Service) List(ctx context.Context, principal auth.Principal) ([]Order, error) {
	if principal.IsAdmin() {
		return s.store.ListAll(ctx)
	}
	return s.store.ListByUser(ctx, principal.UserID)
}
