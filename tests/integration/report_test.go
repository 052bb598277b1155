//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopworks/storefront/internal/domain/order"
	"github.com/shopworks/storefront/internal/domain/report"
	"github.com/shopworks/storefront/internal/domain/user"
	"github.com/shopworks/storefront/internal/storage/postgres"
)

func TestReports(t *testing.T) {
	resetDB(t)
	ctx := context.Background()

	admin := createUser(t, user.RoleAdmin)
	c1 := createUser(t, user.RoleCustomer)
	c2 := createUser(t, user.RoleCustomer)
	widget := createProduct(t, admin.ID, "Widget", "10.00", 50)
	gadget := createProduct(t, admin.ID, "Gadget", "20.00", 8)

	svc := orderService()

	place := func(cust *user.User, productID string, qty int) *order.Order {
		o, err := svc.PlaceOrder(ctx, cust.ID, order.PlaceOrderRequest{
			Items:           []order.ItemRequest{{ProductID: productID, Quantity: qty}},
			ShippingAddress: "1 Main St",
		})
		require.NoError(t, err)
		return o
	}

	o1 := place(c1, widget.ID, 3) // 30.00
	o2 := place(c2, gadget.ID, 2) // 40.00
	doomed := place(c1, widget.ID, 5)

	_, err := svc.Cancel(ctx, principalFor(c1), doomed.ID)
	require.NoError(t, err)

	// Payment completed on both surviving orders.
	for _, id := range []string{o1.ID, o2.ID} {
		_, err := pool.Exec(ctx, `UPDATE orders SET payment_status = 'completed' WHERE id = $1`, id)
		require.NoError(t, err)
	}

	reports := postgres.NewReportRepository(pool)

	t.Run("summary excludes cancelled orders", func(t *testing.T) {
		s, err := reports.Summary(ctx)
		require.NoError(t, err)

		assert.True(t, decimal.RequireFromString("70.00").Equal(s.TotalRevenue),
			"got %s", s.TotalRevenue)
		assert.Equal(t, int64(2), s.TotalOrders)
		assert.Equal(t, int64(2), s.TotalCustomers)
		require.NotEmpty(t, s.TopProducts)
		require.NotEmpty(t, s.SalesByMonth)
		assert.Equal(t, int64(2), s.SalesByMonth[0].Count)
	})

	t.Run("low stock lists only products under the threshold", func(t *testing.T) {
		low, err := reports.LowStock(ctx, report.LowStockThreshold)
		require.NoError(t, err)

		// Gadget started at 8 and sold 2, leaving 6. Widget is well stocked.
		require.Len(t, low, 1)
		assert.Equal(t, gadget.ID, low[0].ProductID)
		assert.Equal(t, 6, low[0].Stock)
	})

	t.Run("recent orders include line items", func(t *testing.T) {
		recent, err := reports.RecentOrders(ctx, 10)
		require.NoError(t, err)

		require.Len(t, recent, 3)
		for _, o := range recent {
			assert.NotEmpty(t, o.Items)
		}
	})

	t.Run("top selling counts completed payments only", func(t *testing.T) {
		ts, err := reports.TopSelling(ctx, 10, report.RangeWeek)
		require.NoError(t, err)

		assert.Equal(t, report.RangeWeek, ts.TimeRange)
		assert.True(t, decimal.RequireFromString("70.00").Equal(ts.TotalRevenue),
			"got %s", ts.TotalRevenue)

		require.Len(t, ts.Products, 2)
		// Widget sold 3 units vs Gadget's 2; the cancelled 5-unit order is
		// pending payment and must not count.
		assert.Equal(t, widget.ID, ts.Products[0].ProductID)
		assert.Equal(t, int64(3), ts.Products[0].TotalQuantity)
	})
}
