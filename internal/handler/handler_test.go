package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopworks/storefront/internal/domain/auth"
	"github.com/shopworks/storefront/internal/domain/order"
	"github.com/shopworks/storefront/internal/domain/product"
	"github.com/shopworks/storefront/internal/domain/report"
	"github.com/shopworks/storefront/internal/domain/user"
)

// --- Fakes ---

type fakeUserRepo struct {
	byEmail map[string]*user.User
	byID    map[string]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byEmail: make(map[string]*user.User),
		byID:    make(map[string]*user.User),
	}
}

func (f *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	if _, ok := f.byEmail[u.Email]; ok {
		return user.ErrEmailTaken
	}
	f.byEmail[u.Email] = u
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

type fakeProductRepo struct {
	byID map[string]*product.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{byID: make(map[string]*product.Product)}
}

func (f *fakeProductRepo) Create(_ context.Context, p *product.Product) error {
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	f.byID[p.ID] = p
	return nil
}

func (f *fakeProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (f *fakeProductRepo) List(_ context.Context, filter product.ListFilter) ([]product.Product, error) {
	var out []product.Product
	for _, p := range f.byID {
		if p.Status != product.StatusActive {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeProductRepo) Update(_ context.Context, id string, u product.Update) (*product.Product, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	return p, nil
}

func (f *fakeProductRepo) SetStatus(_ context.Context, id string, s product.Status) error {
	p, ok := f.byID[id]
	if !ok {
		return product.ErrNotFound
	}
	p.Status = s
	return nil
}

// fakeOrderStore commits a transactional copy of state only when the
// callback succeeds, mirroring the database behaviour.
type fakeOrderStore struct {
	products *fakeProductRepo
	orders   map[string]order.Order
}

func newFakeOrderStore(products *fakeProductRepo) *fakeOrderStore {
	return &fakeOrderStore{products: products, orders: make(map[string]order.Order)}
}

func (s *fakeOrderStore) InTx(_ context.Context, fn func(order.Tx) error) error {
	tx := &fakeOrderTx{
		store:    s,
		products: make(map[string]product.Product, len(s.products.byID)),
		orders:   maps.Clone(s.orders),
	}
	for id, p := range s.products.byID {
		tx.products[id] = *p
	}
	if err := fn(tx); err != nil {
		return err
	}
	for id, p := range tx.products {
		cp := p
		s.products.byID[id] = &cp
	}
	s.orders = tx.orders
	return nil
}

func (s *fakeOrderStore) Get(_ context.Context, id string) (*order.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return &o, nil
}

func (s *fakeOrderStore) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *fakeOrderStore) ListAll(_ context.Context) ([]order.Order, error) {
	var out []order.Order
	for _, o := range s.orders {
		out = append(out, o)
	}
	return out, nil
}

type fakeOrderTx struct {
	store    *fakeOrderStore
	products map[string]product.Product
	orders   map[string]order.Order
}

func (t *fakeOrderTx) ReserveStock(_ context.Context, productID string, qty int) (*product.Product, error) {
	p, ok := t.products[productID]
	if !ok || p.Status != product.StatusActive {
		return nil, product.ErrNotFound
	}
	if p.Stock < qty {
		return nil, &order.InsufficientStockError{ProductID: p.ID, ProductName: p.Name}
	}
	p.Stock -= qty
	t.products[productID] = p
	return &p, nil
}

func (t *fakeOrderTx) RestoreStock(_ context.Context, productID string, qty int) error {
	p, ok := t.products[productID]
	if !ok {
		return product.ErrNotFound
	}
	p.Stock += qty
	t.products[productID] = p
	return nil
}

func (t *fakeOrderTx) CreateOrder(_ context.Context, o *order.Order) error {
	o.CreatedAt = time.Now()
	t.orders[o.ID] = *o
	return nil
}

func (t *fakeOrderTx) GetForUpdate(_ context.Context, id string) (*order.Order, error) {
	o, ok := t.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return &o, nil
}

func (t *fakeOrderTx) SetStatus(_ context.Context, id string, from, to order.Status) error {
	o, ok := t.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	if o.Status != from {
		return order.ErrNotPending
	}
	o.Status = to
	t.orders[id] = o
	return nil
}

type fakeReportRepo struct {
	summaryCalls int
}

func (f *fakeReportRepo) Summary(_ context.Context) (*report.Summary, error) {
	f.summaryCalls++
	return &report.Summary{
		TotalRevenue:   decimal.RequireFromString("150.00"),
		TotalOrders:    3,
		TotalCustomers: 2,
		TopProducts: []report.ProductSales{{
			ProductID:     "p1",
			Name:          "Widget",
			Category:      "gadgets",
			TotalQuantity: 5,
			TotalRevenue:  decimal.RequireFromString("150.00"),
			OrderCount:    3,
		}},
	}, nil
}

func (f *fakeReportRepo) LowStock(_ context.Context, threshold int) ([]report.LowStockProduct, error) {
	return []report.LowStockProduct{{
		ProductID: "p2",
		Name:      "Gadget",
		Stock:     threshold - 1,
		Price:     decimal.RequireFromString("20.00"),
	}}, nil
}

func (f *fakeReportRepo) RecentOrders(_ context.Context, _ int) ([]order.Order, error) {
	return nil, nil
}

func (f *fakeReportRepo) TopSelling(_ context.Context, _ int, tr report.TimeRange) (*report.TopSelling, error) {
	return &report.TopSelling{
		Products: []report.ProductSales{{
			ProductID:    "p1",
			Name:         "Widget",
			TotalRevenue: decimal.RequireFromString("100.00"),
			OrderCount:   2,
		}},
		TimeRange:    tr,
		TotalRevenue: decimal.RequireFromString("100.00"),
	}, nil
}

// --- Test environment ---

type env struct {
	router   http.Handler
	tokens   *auth.Tokens
	users    *fakeUserRepo
	products *fakeProductRepo
	orders   *fakeOrderStore
	reports  *fakeReportRepo
}

func newEnv(_ *testing.T) *env {
	users := newFakeUserRepo()
	products := newFakeProductRepo()
	orders := newFakeOrderStore(products)
	reports := &fakeReportRepo{}
	tokens := auth.NewTokens([]byte("test-secret"), time.Hour)

	h := New(
		Config{CookieSecure: false},
		user.NewService(users),
		tokens,
		products,
		product.NewService(products),
		order.NewService(orders),
		reports,
	)
	return &env{
		router:   h.Routes(),
		tokens:   tokens,
		users:    users,
		products: products,
		orders:   orders,
		reports:  reports,
	}
}

// tokenFor mints a credential token for an ad-hoc principal.
func (e *env) tokenFor(t *testing.T, id string, role user.Role) string {
	t.Helper()
	tok, err := e.tokens.Issue(&user.User{ID: id, Role: role})
	require.NoError(t, err)
	return tok
}

func (e *env) addProduct(id, name string, price string, stock int, createdBy string) {
	e.products.byID[id] = &product.Product{
		ID:        id,
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		Category:  "gadgets",
		CreatedBy: createdBy,
		Status:    product.StatusActive,
	}
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

// --- Auth ---

func TestRegister(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"name":     "Ada",
		"email":    "ada@example.com",
		"password": "correct horse",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeEnvelope(t, w)
	assert.Equal(t, true, body["success"])

	data := body["data"].(map[string]any)
	assert.Equal(t, "ada@example.com", data["email"])
	assert.Equal(t, "customer", data["role"])
	assert.NotContains(t, data, "password")

	// Auth cookie attached.
	var found *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == authCookie {
			found = c
		}
	}
	require.NotNil(t, found)
	assert.True(t, found.HttpOnly)
	assert.NotEmpty(t, found.Value)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	e := newEnv(t)

	req := map[string]any{"name": "Ada", "email": "ada@example.com", "password": "correct horse"}
	w := e.do(t, http.MethodPost, "/auth/register", "", req)
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, http.MethodPost, "/auth/register", "", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "user already exists", decodeEnvelope(t, w)["message"])
}

func TestRegister_MalformedBody(t *testing.T) {
	e := newEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid request body", decodeEnvelope(t, w)["message"])
}

func TestLogin(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"name": "Ada", "email": "ada@example.com", "password": "correct horse",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "ada@example.com", "password": "correct horse",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "ada@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid credentials", decodeEnvelope(t, w)["message"])
}

func TestProfile(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"name": "Ada", "email": "ada@example.com", "password": "correct horse",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeEnvelope(t, w)["data"].(map[string]any)["id"].(string)

	w = e.do(t, http.MethodGet, "/auth/profile", e.tokenFor(t, id, user.RoleCustomer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]any)
	assert.Equal(t, "Ada", data["name"])
}

func TestProfile_ViaCookie(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"name": "Ada", "email": "ada@example.com", "password": "correct horse",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	cookies := w.Result().Cookies()

	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticate_Rejections(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "authentication required", decodeEnvelope(t, w)["message"])

	w = e.do(t, http.MethodGet, "/auth/profile", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid or expired token", decodeEnvelope(t, w)["message"])
}

func TestLogout_ExpiresCookie(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, authCookie, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].Expires.Before(time.Now()))
}

// --- Products ---

func TestCreateProduct_AdminOnly(t *testing.T) {
	e := newEnv(t)
	body := map[string]any{"name": "Widget", "price": 9.99, "stock": 5, "category": "gadgets"}

	w := e.do(t, http.MethodPost, "/products/", e.tokenFor(t, "c1", user.RoleCustomer), body)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "admin access required", decodeEnvelope(t, w)["message"])

	w = e.do(t, http.MethodPost, "/products/", e.tokenFor(t, "a1", user.RoleAdmin), body)
	require.Equal(t, http.StatusCreated, w.Code)

	data := decodeEnvelope(t, w)["data"].(map[string]any)
	assert.NotEmpty(t, data["_id"])
	assert.Equal(t, "Widget", data["name"])
	assert.Equal(t, 9.99, data["price"])
	assert.Equal(t, "a1", data["createdBy"])
	assert.Equal(t, true, data["isActive"])
	assert.Equal(t, []any{}, data["images"], "nil images serialize as an empty array")
}

func TestCreateProduct_Validation(t *testing.T) {
	e := newEnv(t)
	admin := e.tokenFor(t, "a1", user.RoleAdmin)

	w := e.do(t, http.MethodPost, "/products/", admin, map[string]any{
		"name": "", "price": 1.0, "category": "gadgets",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/products/", admin, map[string]any{
		"name": "Widget", "price": -1.0, "category": "gadgets",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "price cannot be negative", decodeEnvelope(t, w)["message"])
}

func TestListProducts_PublicWithCount(t *testing.T) {
	e := newEnv(t)
	e.addProduct("p1", "Widget", "10.00", 5, "a1")
	e.addProduct("p2", "Gadget", "20.00", 3, "a1")

	retired := &product.Product{ID: "p3", Name: "Old", Status: product.StatusInactive}
	e.products.byID["p3"] = retired

	w := e.do(t, http.MethodGet, "/products/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeEnvelope(t, w)
	assert.Equal(t, float64(2), body["count"], "retired products are not listed")
	assert.Len(t, body["data"].([]any), 2)
}

func TestGetProduct(t *testing.T) {
	e := newEnv(t)
	e.addProduct("p1", "Widget", "10.00", 5, "a1")

	w := e.do(t, http.MethodGet, "/products/p1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]any)
	assert.Equal(t, "p1", data["_id"])

	w = e.do(t, http.MethodGet, "/products/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "product not found", decodeEnvelope(t, w)["message"])
}

func TestUpdateProduct_OwnerOnly(t *testing.T) {
	e := newEnv(t)
	e.addProduct("p1", "Widget", "10.00", 5, "a1")

	w := e.do(t, http.MethodPut, "/products/p1", e.tokenFor(t, "a2", user.RoleAdmin), map[string]any{
		"name": "Widget v2",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPut, "/products/p1", e.tokenFor(t, "a1", user.RoleAdmin), map[string]any{
		"name": "Widget v2",
	})
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]any)
	assert.Equal(t, "Widget v2", data["name"])
}

func TestDeleteProduct_Retires(t *testing.T) {
	e := newEnv(t)
	e.addProduct("p1", "Widget", "10.00", 5, "a1")

	w := e.do(t, http.MethodDelete, "/products/p1", e.tokenFor(t, "a1", user.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Gone from listings but still resolvable by ID.
	w = e.do(t, http.MethodGet, "/products/", "", nil)
	assert.Equal(t, float64(0), decodeEnvelope(t, w)["count"])

	w = e.do(t, http.MethodGet, "/products/p1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]any)
	assert.Equal(t, false, data["isActive"])
}

// --- Orders ---

func placeOrderBody(items ...map[string]any) map[string]any {
	return map[string]any{
		"items":           items,
		"shippingAddress": "1 Main St",
	}
}

func TestPlaceOrder(t *testing.T) {
	e := newEnv(t)
	e.addProduct("p1", "Widget", "10.00", 5, "a1")
	e.addProduct("p2", "Gadget", "20.50", 2, "a1")

	w := e.do(t, http.MethodPost, "/orders/", e.tokenFor(t, "c1", user.RoleCustomer), placeOrderBody(
		map[string]any{"product": "p1", "quantity": 2},
		map[string]any{"product": "p2", "quantity": 1},
	))
	require.Equal(t, http.StatusCreated, w.Code)

	data := decodeEnvelope(t, w)["data"].(map[string]any)
	assert.Equal(t, "c1", data["user"])
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, "pending", data["paymentStatus"])
	assert.Equal(t, 40.5, data["totalAmount"])

	items := data["items"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "p1", first["product"])
	assert.Equal(t, float64(2), first["quantity"])
	assert.Equal(t, 10.0, first["price"])

	assert.Equal(t, 3, e.products.byID["p1"].Stock)
	assert.Equal(t, 1, e.products.byID["p2"].Stock)
}

func TestPlaceOrder_RequiresAuth(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/orders/", "", placeOrderBody())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	e := newEnv(t)
	e.addProduct("p1", "Widget", "10.00", 3, "a1")

	w := e.do(t, http.MethodPost, "/orders/", e.tokenFor(t, "c1", user.RoleCustomer), placeOrderBody(
		map[string]any{"product": "p1", "quantity": 4},
	))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "insufficient stock for product: Widget", decodeEnvelope(t, w)["message"])
	assert.Equal(t, 3, e.products.byID["p1"].Stock)
}

func TestPlaceOrder_EmptyItems(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/orders/", e.tokenFor(t, "c1", user.RoleCustomer), placeOrderBody())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "items required", decodeEnvelope(t, w)["message"])
}

func TestGetOrder_Scoping(t *testing.T) {
	e := newEnv(t)
	e.addProduct("p1", "Widget", "10.00", 5, "a1")

	w := e.do(t, http.MethodPost, "/orders/", e.tokenFor(t, "c1", user.RoleCustomer), placeOrderBody(
		map[string]any{"product": "p1", "quantity": 1},
	))
	require.Equal(t, http.StatusCreated, w.Code)
	orderID := decodeEnvelope(t, w)["data"].(map[string]any)["_id"].(string)

	w = e.do(t, http.MethodGet, "/orders/"+orderID, e.tokenFor(t, "c1", user.RoleCustomer), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/orders/"+orderID, e.tokenFor(t, "c2", user.RoleCustomer), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodGet, "/orders/"+orderID, e.tokenFor(t, "a1", user.RoleAdmin), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCancelOrder(t *testing.T) {
	e := newEnv(t)
	e.addProduct("p1", "Widget", "10.00", 5, "a1")
	customer := e.tokenFor(t, "c1", user.RoleCustomer)

	w := e.do(t, http.MethodPost, "/orders/", customer, placeOrderBody(
		map[string]any{"product": "p1", "quantity": 3},
	))
	require.Equal(t, http.StatusCreated, w.Code)
	orderID := decodeEnvelope(t, w)["data"].(map[string]any)["_id"].(string)
	require.Equal(t, 2, e.products.byID["p1"].Stock)

	// A stranger cannot cancel it.
	w = e.do(t, http.MethodPatch, "/orders/"+orderID+"/cancel", e.tokenFor(t, "c2", user.RoleCustomer), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPatch, "/orders/"+orderID+"/cancel", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]any)
	assert.Equal(t, "cancelled", data["status"])
	assert.Equal(t, 5, e.products.byID["p1"].Stock)

	// Cancelling again fails.
	w = e.do(t, http.MethodPatch, "/orders/"+orderID+"/cancel", customer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "only pending orders can be cancelled", decodeEnvelope(t, w)["message"])
}

func TestListOrders_Scoping(t *testing.T) {
	e := newEnv(t)
	e.addProduct("p1", "Widget", "10.00", 50, "a1")

	for _, tok := range []string{
		e.tokenFor(t, "c1", user.RoleCustomer),
		e.tokenFor(t, "c1", user.RoleCustomer),
		e.tokenFor(t, "c2", user.RoleCustomer),
	} {
		w := e.do(t, http.MethodPost, "/orders/", tok, placeOrderBody(
			map[string]any{"product": "p1", "quantity": 1},
		))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := e.do(t, http.MethodGet, "/orders/", e.tokenFor(t, "c1", user.RoleCustomer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decodeEnvelope(t, w)["count"])

	w = e.do(t, http.MethodGet, "/orders/", e.tokenFor(t, "a1", user.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decodeEnvelope(t, w)["count"])
}

// --- Admin reports ---

func TestAnalytics(t *testing.T) {
	e := newEnv(t)
	admin := e.tokenFor(t, "a1", user.RoleAdmin)

	w := e.do(t, http.MethodGet, "/admin/analytics", e.tokenFor(t, "c1", user.RoleCustomer), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodGet, "/admin/analytics", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeEnvelope(t, w)["data"].(map[string]any)
	assert.Equal(t, 150.0, data["totalRevenue"])
	assert.Equal(t, float64(3), data["totalOrders"])
	assert.Equal(t, float64(2), data["totalCustomers"])

	// Second hit is served from the cache.
	w = e.do(t, http.MethodGet, "/admin/analytics", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, e.reports.summaryCalls)
}

func TestLowStockProducts(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/admin/products/low-stock", e.tokenFor(t, "a1", user.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeEnvelope(t, w)
	assert.Equal(t, float64(1), body["count"])
	entry := body["data"].([]any)[0].(map[string]any)
	assert.Equal(t, "p2", entry["_id"])
	assert.Equal(t, "Gadget", entry["name"])
}

func TestTopSellingProducts(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/admin/products/top-selling?timeRange=week&limit=5", e.tokenFor(t, "a1", user.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeEnvelope(t, w)["data"].(map[string]any)
	assert.Equal(t, "week", data["timeRange"])
	assert.Equal(t, 100.0, data["totalRevenue"])

	products := data["products"].([]any)
	require.Len(t, products, 1)
	top := products[0].(map[string]any)
	assert.Equal(t, 50.0, top["averageOrderValue"])
	assert.Equal(t, "100.00", top["percentageOfTotalSales"])
}
