package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopworks/storefront/internal/domain/order"
	"github.com/shopworks/storefront/internal/domain/product"
)

const (
	// The stock check and decrement are one conditional statement so the
	// database serializes concurrent reservations; stock can never go
	// negative no matter how many placements race.
	reserveStockSQL = `UPDATE products
		SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND status = 'active' AND stock >= $2
		RETURNING ` + productColumns

	probeProductSQL = `SELECT name, status FROM products WHERE id = $1`

	restoreStockSQL = `UPDATE products
		SET stock = stock + $2, updated_at = now()
		WHERE id = $1`

	insertOrderSQL = `INSERT INTO orders
		(id, user_id, total_amount, status, shipping_address, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)`

	getOrderSQL = `SELECT id, user_id, total_amount, status, shipping_address,
		payment_status, created_at FROM orders WHERE id = $1`

	getOrderForUpdateSQL = getOrderSQL + ` FOR UPDATE`

	setOrderStatusSQL = `UPDATE orders SET status = $3
		WHERE id = $1 AND status = $2`

	listOrdersByUserSQL = `SELECT id, user_id, total_amount, status, shipping_address,
		payment_status, created_at FROM orders WHERE user_id = $1
		ORDER BY created_at DESC`

	listAllOrdersSQL = `SELECT id, user_id, total_amount, status, shipping_address,
		payment_status, created_at FROM orders ORDER BY created_at DESC`

	getOrderItemsSQL = `SELECT product_id, quantity, price FROM order_items
		WHERE order_id = $1`

	getOrderItemsBatchSQL = `SELECT order_id, product_id, quantity, price
		FROM order_items WHERE order_id = ANY($1)`
)

var _ order.Store = (*OrderStore)(nil)

// OrderStore implements order.Store backed by PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// InTx runs fn in a database transaction, committing on nil and rolling
// back on error or panic.
func (s *OrderStore) InTx(ctx context.Context, fn func(tx order.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(pgtx pgx.Tx) error {
		return fn(&orderTx{tx: pgtx})
	})
}

// Get returns a single order with its line items.
func (s *OrderStore) Get(ctx context.Context, id string) (*order.Order, error) {
	o, err := fetchOrder(ctx, s.pool, getOrderSQL, id)
	if err != nil {
		return nil, err
	}
	if err := attachItems(ctx, s.pool, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListByUser returns a user's orders, newest first.
func (s *OrderStore) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	return s.list(ctx, listOrdersByUserSQL, userID)
}

// ListAll returns every order, newest first.
func (s *OrderStore) ListAll(ctx context.Context) ([]order.Order, error) {
	return s.list(ctx, listAllOrdersSQL)
}

func (s *OrderStore) list(ctx context.Context, sql string, args ...any) ([]order.Order, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	if len(orders) == 0 {
		return orders, nil
	}

	// One batch query for all line items instead of a query per order.
	ids := make([]string, len(orders))
	byID := make(map[string]*order.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		byID[orders[i].ID] = &orders[i]
	}

	itemRows, err := s.pool.Query(ctx, getOrderItemsBatchSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "list order items")
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			orderID string
			item    order.LineItem
		)
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.Quantity, &item.Price); err != nil {
			return nil, errors.Wrap(err, "scan order item")
		}
		o := byID[orderID]
		o.Items = append(o.Items, item)
	}
	return orders, itemRows.Err()
}

// orderTx implements order.Tx on a live pgx transaction.
type orderTx struct {
	tx pgx.Tx
}

var _ order.Tx = (*orderTx)(nil)

// ReserveStock atomically decrements stock for an active product, returning
// the product as of the reservation. When the conditional update matches no
// row, a follow-up probe distinguishes a missing or retired product from
// plain insufficient stock.
func (t *orderTx) ReserveStock(ctx context.Context, productID string, qty int) (*product.Product, error) {
	rows, err := t.tx.Query(ctx, reserveStockSQL, productID, qty)
	if err != nil {
		return nil, errors.Wrapf(err, "reserve stock for %q", productID)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(err, "reserve stock for %q", productID)
	}

	var (
		name   string
		status string
	)
	err = t.tx.QueryRow(ctx, probeProductSQL, productID).Scan(&name, &status)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, product.ErrNotFound
	case err != nil:
		return nil, errors.Wrapf(err, "probe product %q", productID)
	case status != string(product.StatusActive):
		return nil, product.ErrNotFound
	default:
		return nil, &order.InsufficientStockError{ProductID: productID, ProductName: name}
	}
}

// RestoreStock increments a product's stock.
func (t *orderTx) RestoreStock(ctx context.Context, productID string, qty int) error {
	tag, err := t.tx.Exec(ctx, restoreStockSQL, productID, qty)
	if err != nil {
		return errors.Wrapf(err, "restore stock for %q", productID)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// CreateOrder persists the order row and its line items.
func (t *orderTx) CreateOrder(ctx context.Context, o *order.Order) error {
	err := t.tx.QueryRow(ctx, insertOrderSQL,
		o.ID, o.UserID, o.TotalAmount, string(o.Status),
		o.ShippingAddress, string(o.PaymentStatus),
	).Scan(&o.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "create order %q", o.ID)
	}

	for _, item := range o.Items {
		if _, err := t.tx.Exec(ctx, insertOrderItemSQL,
			o.ID, item.ProductID, item.Quantity, item.Price,
		); err != nil {
			return errors.Wrapf(err, "create order %q item %q", o.ID, item.ProductID)
		}
	}
	return nil
}

// GetForUpdate fetches an order with its row locked until the transaction
// ends.
func (t *orderTx) GetForUpdate(ctx context.Context, id string) (*order.Order, error) {
	o, err := fetchOrder(ctx, t.tx, getOrderForUpdateSQL, id)
	if err != nil {
		return nil, err
	}
	if err := attachItems(ctx, t.tx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// SetStatus transitions the order's status, guarded by the expected current
// status.
func (t *orderTx) SetStatus(ctx context.Context, id string, from, to order.Status) error {
	tag, err := t.tx.Exec(ctx, setOrderStatusSQL, id, string(from), string(to))
	if err != nil {
		return errors.Wrapf(err, "set order %q status", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotPending
	}
	return nil
}

// querier is the subset of pgx shared by pools and transactions.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func fetchOrder(ctx context.Context, q querier, sql, id string) (*order.Order, error) {
	rows, err := q.Query(ctx, sql, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	return &o, nil
}

func attachItems(ctx context.Context, q querier, o *order.Order) error {
	rows, err := q.Query(ctx, getOrderItemsSQL, o.ID)
	if err != nil {
		return errors.Wrapf(err, "get order %q items", o.ID)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.LineItem, error) {
		var item order.LineItem
		err := row.Scan(&item.ProductID, &item.Quantity, &item.Price)
		return item, err
	})
	if err != nil {
		return errors.Wrapf(err, "scan order %q items", o.ID)
	}
	o.Items = items
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		status        string
		paymentStatus string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.TotalAmount, &status,
		&o.ShippingAddress, &paymentStatus, &o.CreatedAt,
	)
	o.Status = order.Status(status)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	return o, err
}
