package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopworks/storefront/internal/domain/report"
	"github.com/shopworks/storefront/pkg/cache"
)

type analyticsJSON struct {
	TotalRevenue   float64            `json:"totalRevenue"`
	TotalOrders    int64              `json:"totalOrders"`
	TotalCustomers int64              `json:"totalCustomers"`
	TopProducts    []productSalesJSON `json:"topProducts"`
	SalesByMonth   []monthlySalesJSON `json:"salesByMonth"`
}

type productSalesJSON struct {
	ProductID     string  `json:"productId"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	TotalQuantity int64   `json:"totalQuantity"`
	TotalRevenue  float64 `json:"totalRevenue"`
	OrderCount    int64   `json:"orderCount"`
}

type monthlySalesJSON struct {
	Month time.Time `json:"month"`
	Total float64   `json:"total"`
	Count int64     `json:"count"`
}

type lowStockJSON struct {
	ProductID string  `json:"_id"`
	Name      string  `json:"name"`
	Stock     int     `json:"stock"`
	Price     float64 `json:"price"`
}

type topSellingJSON struct {
	Products      []topSellingProductJSON `json:"products"`
	TimeRange     string                  `json:"timeRange"`
	TotalRevenue  float64                 `json:"totalRevenue"`
	TotalProducts int                     `json:"totalProducts"`
}

type topSellingProductJSON struct {
	productSalesJSON
	AverageOrderValue float64 `json:"averageOrderValue"`
	// PercentageOfTotalSales keeps the original's two-decimal string shape.
	PercentageOfTotalSales string `json:"percentageOfTotalSales"`
}

func toProductSalesJSON(p report.ProductSales) productSalesJSON {
	return productSalesJSON{
		ProductID:     p.ProductID,
		Name:          p.Name,
		Category:      p.Category,
		TotalQuantity: p.TotalQuantity,
		TotalRevenue:  p.TotalRevenue.InexactFloat64(),
		OrderCount:    p.OrderCount,
	}
}

// Analytics handles GET /admin/analytics. Responses are cached briefly;
// dashboards tolerate slight staleness.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	const cacheKey = "report:analytics"
	if cached, ok := cache.GetTyped[analyticsJSON](h.cache, cacheKey); ok {
		respond(w, http.StatusOK, cached)
		return
	}

	s, err := h.reports.Summary(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := analyticsJSON{
		TotalRevenue:   s.TotalRevenue.InexactFloat64(),
		TotalOrders:    s.TotalOrders,
		TotalCustomers: s.TotalCustomers,
		TopProducts:    make([]productSalesJSON, len(s.TopProducts)),
		SalesByMonth:   make([]monthlySalesJSON, len(s.SalesByMonth)),
	}
	for i, p := range s.TopProducts {
		out.TopProducts[i] = toProductSalesJSON(p)
	}
	for i, m := range s.SalesByMonth {
		out.SalesByMonth[i] = monthlySalesJSON{
			Month: m.Month,
			Total: m.Total.InexactFloat64(),
			Count: m.Count,
		}
	}

	h.cache.Set(cacheKey, out)
	respond(w, http.StatusOK, out)
}

// LowStockProducts handles GET /admin/products/low-stock.
func (h *Handler) LowStockProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.reports.LowStock(r.Context(), report.LowStockThreshold)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]lowStockJSON, len(products))
	for i, p := range products {
		out[i] = lowStockJSON{
			ProductID: p.ProductID,
			Name:      p.Name,
			Stock:     p.Stock,
			Price:     p.Price.InexactFloat64(),
		}
	}
	respondList(w, http.StatusOK, len(out), out)
}

// RecentOrders handles GET /admin/orders/recent.
func (h *Handler) RecentOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.reports.RecentOrders(r.Context(), 10)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]orderJSON, len(orders))
	for i := range orders {
		out[i] = toOrderJSON(&orders[i])
	}
	respond(w, http.StatusOK, out)
}

// TopSellingProducts handles GET /admin/products/top-selling with limit and
// timeRange (week|month|year|all) query parameters.
func (h *Handler) TopSellingProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 10
	}
	tr := report.TimeRange(q.Get("timeRange"))
	if tr == "" {
		tr = report.RangeAll
	}

	cacheKey := fmt.Sprintf("report:top-selling:%d:%s", limit, tr)
	if cached, ok := cache.GetTyped[topSellingJSON](h.cache, cacheKey); ok {
		respond(w, http.StatusOK, cached)
		return
	}

	ts, err := h.reports.TopSelling(r.Context(), limit, tr)
	if err != nil {
		respondError(w, r, err)
		return
	}

	total := ts.TotalRevenue
	out := topSellingJSON{
		Products:      make([]topSellingProductJSON, len(ts.Products)),
		TimeRange:     string(ts.TimeRange),
		TotalRevenue:  total.InexactFloat64(),
		TotalProducts: len(ts.Products),
	}
	for i, p := range ts.Products {
		entry := topSellingProductJSON{productSalesJSON: toProductSalesJSON(p)}
		if p.OrderCount > 0 {
			entry.AverageOrderValue = p.TotalRevenue.
				Div(decimal.NewFromInt(p.OrderCount)).InexactFloat64()
		}
		if total.IsPositive() {
			share := p.TotalRevenue.Div(total).Mul(decimal.NewFromInt(100))
			entry.PercentageOfTotalSales = share.StringFixed(2)
		} else {
			entry.PercentageOfTotalSales = "0"
		}
		out.Products[i] = entry
	}

	h.cache.Set(cacheKey, out)
	respond(w, http.StatusOK, out)
}
