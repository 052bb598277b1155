package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/shopworks/storefront/internal/domain/product"
)

// productJSON is the product wire shape; field names match the original API.
type productJSON struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	Category    string    `json:"category"`
	Images      []string  `json:"images"`
	Ratings     float64   `json:"ratings"`
	CreatedBy   string    `json:"createdBy"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toProductJSON(p *product.Product) productJSON {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return productJSON{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		Stock:       p.Stock,
		Category:    p.Category,
		Images:      images,
		Ratings:     p.Ratings.InexactFloat64(),
		CreatedBy:   p.CreatedBy,
		IsActive:    p.Status == product.StatusActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type createProductRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Stock       int      `json:"stock"`
	Category    string   `json:"category"`
	Images      []string `json:"images"`
}

type updateProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Stock       *int     `json:"stock"`
	Category    *string  `json:"category"`
	Images      []string `json:"images"`
}

// ListProducts handles GET /products with category/search/sort/pagination
// query parameters. Only active products are listed.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	products, err := h.products.List(r.Context(), product.ListFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Sort:     product.Sort(q.Get("sort")),
		Page:     page,
		PageSize: limit,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]productJSON, len(products))
	for i := range products {
		out[i] = toProductJSON(&products[i])
	}
	respondList(w, http.StatusOK, len(out), out)
}

// GetProduct handles GET /products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toProductJSON(p))
}

// CreateProduct handles POST /products (admin only).
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.catalog.Create(r.Context(), principal.UserID, product.CreateRequest{
		Name:        req.Name,
		Description: req.Description,
		Price:       decimal.NewFromFloat(req.Price),
		Stock:       req.Stock,
		Category:    req.Category,
		Images:      req.Images,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, toProductJSON(p))
}

// UpdateProduct handles PUT /products/{id} (admin, owner only).
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req updateProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u := product.Update{
		Name:        req.Name,
		Description: req.Description,
		Stock:       req.Stock,
		Category:    req.Category,
		Images:      req.Images,
	}
	if req.Price != nil {
		price := decimal.NewFromFloat(*req.Price)
		u.Price = &price
	}

	p, err := h.catalog.Update(r.Context(), principal.UserID, chi.URLParam(r, "id"), u)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toProductJSON(p))
}

// DeleteProduct handles DELETE /products/{id} (admin, owner only). Products
// are retired, never removed.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.catalog.Retire(r.Context(), principal.UserID, chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "product deleted")
}
