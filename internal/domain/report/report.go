// Package report defines the read-only dashboard projections over orders,
// products, and accounts. These are pure aggregations with no invariants
// beyond reflecting the persisted state.
package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopworks/storefront/internal/domain/order"
)

// LowStockThreshold is the stock level below which a product appears in the
// low-stock report.
const LowStockThreshold = 10

// TimeRange selects the rolling window for the top-selling report.
type TimeRange string

const (
	RangeAll   TimeRange = "all"
	RangeWeek  TimeRange = "week"
	RangeMonth TimeRange = "month"
	RangeYear  TimeRange = "year"
)

// Since returns the inclusive lower bound of the range relative to now,
// and ok=false for RangeAll (no bound).
func (r TimeRange) Since(now time.Time) (time.Time, bool) {
	switch r {
	case RangeWeek:
		return now.AddDate(0, 0, -7), true
	case RangeMonth:
		return now.AddDate(0, 0, -30), true
	case RangeYear:
		return now.AddDate(0, 0, -365), true
	default:
		return time.Time{}, false
	}
}

// Summary is the headline analytics block: totals across all non-cancelled
// orders plus the five best-selling products and monthly sales.
type Summary struct {
	TotalRevenue   decimal.Decimal
	TotalOrders    int64
	TotalCustomers int64
	TopProducts    []ProductSales
	SalesByMonth   []MonthlySales
}

// ProductSales aggregates sales figures for one product.
type ProductSales struct {
	ProductID     string
	Name          string
	Category      string
	TotalQuantity int64
	TotalRevenue  decimal.Decimal
	OrderCount    int64
}

// MonthlySales is the revenue and order count for one calendar month.
type MonthlySales struct {
	Month time.Time
	Total decimal.Decimal
	Count int64
}

// LowStockProduct is a catalog entry running low on inventory.
type LowStockProduct struct {
	ProductID string
	Name      string
	Stock     int
	Price     decimal.Decimal
}

// TopSelling is the detailed best-seller report, restricted to orders with
// completed payment within the requested window.
type TopSelling struct {
	Products     []ProductSales
	TimeRange    TimeRange
	TotalRevenue decimal.Decimal
}

// Repository defines the reporting queries. Implementations must exclude
// cancelled orders from revenue and order counts.
type Repository interface {
	Summary(ctx context.Context) (*Summary, error)
	LowStock(ctx context.Context, threshold int) ([]LowStockProduct, error)
	RecentOrders(ctx context.Context, limit int) ([]order.Order, error)
	TopSelling(ctx context.Context, limit int, tr TimeRange) (*TopSelling, error)
}
