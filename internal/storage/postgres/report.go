package postgres

import (
	"context"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shopworks/storefront/internal/domain/order"
	"github.com/shopworks/storefront/internal/domain/report"
)

const (
	revenueSQL = `SELECT COALESCE(SUM(total_amount), 0), COUNT(*)
		FROM orders WHERE status <> 'cancelled'`

	customerCountSQL = `SELECT COUNT(*) FROM users WHERE role = 'customer'`

	topProductsSQL = `SELECT oi.product_id, p.name, p.category,
			SUM(oi.quantity), SUM(oi.quantity * oi.price), COUNT(DISTINCT oi.order_id)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		WHERE o.status <> 'cancelled'
		GROUP BY oi.product_id, p.name, p.category
		ORDER BY SUM(oi.quantity) DESC
		LIMIT $1`

	salesByMonthSQL = `SELECT date_trunc('month', created_at),
			COALESCE(SUM(total_amount), 0), COUNT(*)
		FROM orders WHERE status <> 'cancelled'
		GROUP BY 1 ORDER BY 1`

	lowStockSQL = `SELECT id, name, stock, price FROM products
		WHERE stock < $1 AND status = 'active'
		ORDER BY stock ASC`

	topSellingSQL = `SELECT oi.product_id, p.name, p.category,
			SUM(oi.quantity), SUM(oi.quantity * oi.price), COUNT(DISTINCT oi.order_id)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		WHERE o.payment_status = 'completed' AND o.created_at >= $2
		GROUP BY oi.product_id, p.name, p.category
		ORDER BY SUM(oi.quantity) DESC
		LIMIT $1`

	topSellingTotalSQL = `SELECT COALESCE(SUM(oi.quantity * oi.price), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.payment_status = 'completed' AND o.created_at >= $1`
)

var _ report.Repository = (*ReportRepository)(nil)

// ReportRepository implements the reporting queries on PostgreSQL.
type ReportRepository struct {
	pool   *pgxpool.Pool
	orders *OrderStore
	now    func() time.Time
}

// NewReportRepository returns a ReportRepository that uses the given pool.
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{
		pool:   pool,
		orders: NewOrderStore(pool),
		now:    time.Now,
	}
}

// Summary aggregates the headline dashboard numbers in a single pass.
func (r *ReportRepository) Summary(ctx context.Context) (*report.Summary, error) {
	s := &report.Summary{}

	if err := r.pool.QueryRow(ctx, revenueSQL).Scan(&s.TotalRevenue, &s.TotalOrders); err != nil {
		return nil, errors.Wrap(err, "revenue summary")
	}
	if err := r.pool.QueryRow(ctx, customerCountSQL).Scan(&s.TotalCustomers); err != nil {
		return nil, errors.Wrap(err, "customer count")
	}

	top, err := r.productSales(ctx, topProductsSQL, 5)
	if err != nil {
		return nil, errors.Wrap(err, "top products")
	}
	s.TopProducts = top

	rows, err := r.pool.Query(ctx, salesByMonthSQL)
	if err != nil {
		return nil, errors.Wrap(err, "sales by month")
	}
	s.SalesByMonth, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (report.MonthlySales, error) {
		var m report.MonthlySales
		err := row.Scan(&m.Month, &m.Total, &m.Count)
		return m, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan sales by month")
	}

	return s, nil
}

// LowStock returns active products below the stock threshold.
func (r *ReportRepository) LowStock(ctx context.Context, threshold int) ([]report.LowStockProduct, error) {
	rows, err := r.pool.Query(ctx, lowStockSQL, threshold)
	if err != nil {
		return nil, errors.Wrap(err, "low stock")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (report.LowStockProduct, error) {
		var p report.LowStockProduct
		err := row.Scan(&p.ProductID, &p.Name, &p.Stock, &p.Price)
		return p, err
	})
}

// RecentOrders returns the newest orders with their line items.
func (r *ReportRepository) RecentOrders(ctx context.Context, limit int) ([]order.Order, error) {
	if limit <= 0 {
		limit = 10
	}
	return r.orders.list(ctx, listAllOrdersSQL+` LIMIT `+strconv.Itoa(limit))
}

// TopSelling returns the best sellers for the window, completed payments
// only, plus the window's total revenue for share-of-sales figures.
func (r *ReportRepository) TopSelling(ctx context.Context, limit int, tr report.TimeRange) (*report.TopSelling, error) {
	if limit <= 0 {
		limit = 10
	}

	since, bounded := tr.Since(r.now())
	if !bounded {
		// RangeAll: a zero time bounds nothing.
		since = time.Time{}
		tr = report.RangeAll
	}

	products, err := r.productSales(ctx, topSellingSQL, limit, since)
	if err != nil {
		return nil, errors.Wrap(err, "top selling")
	}

	var total decimal.Decimal
	if err := r.pool.QueryRow(ctx, topSellingTotalSQL, since).Scan(&total); err != nil {
		return nil, errors.Wrap(err, "top selling total")
	}

	return &report.TopSelling{
		Products:     products,
		TimeRange:    tr,
		TotalRevenue: total,
	}, nil
}

func (r *ReportRepository) productSales(ctx context.Context, sql string, args ...any) ([]report.ProductSales, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (report.ProductSales, error) {
		var p report.ProductSales
		err := row.Scan(&p.ProductID, &p.Name, &p.Category,
			&p.TotalQuantity, &p.TotalRevenue, &p.OrderCount)
		return p, err
	})
}
