package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shopworks/storefront/internal/domain/order"
)

// orderJSON is the order wire shape; field names match the original API.
type orderJSON struct {
	ID              string         `json:"_id"`
	User            string         `json:"user"`
	Items           []lineItemJSON `json:"items"`
	TotalAmount     float64        `json:"totalAmount"`
	Status          string         `json:"status"`
	ShippingAddress string         `json:"shippingAddress"`
	PaymentStatus   string         `json:"paymentStatus"`
	CreatedAt       time.Time      `json:"createdAt"`
}

type lineItemJSON struct {
	Product  string  `json:"product"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

func toOrderJSON(o *order.Order) orderJSON {
	items := make([]lineItemJSON, len(o.Items))
	for i, item := range o.Items {
		items[i] = lineItemJSON{
			Product:  item.ProductID,
			Quantity: item.Quantity,
			Price:    item.Price.InexactFloat64(),
		}
	}
	return orderJSON{
		ID:              o.ID,
		User:            o.UserID,
		Items:           items,
		TotalAmount:     o.TotalAmount.InexactFloat64(),
		Status:          string(o.Status),
		ShippingAddress: o.ShippingAddress,
		PaymentStatus:   string(o.PaymentStatus),
		CreatedAt:       o.CreatedAt,
	}
}

type placeOrderRequest struct {
	Items []struct {
		Product  string `json:"product"`
		Quantity int    `json:"quantity"`
	} `json:"items"`
	ShippingAddress string `json:"shippingAddress"`
}

// PlaceOrder handles POST /orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req placeOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.ItemRequest{ProductID: item.Product, Quantity: item.Quantity}
	}

	o, err := h.orders.PlaceOrder(r.Context(), principal.UserID, order.PlaceOrderRequest{
		Items:           items,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, toOrderJSON(o))
}

// ListOrders handles GET /orders: admins see all orders, customers only
// their own.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	orders, err := h.orders.List(r.Context(), principal)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]orderJSON, len(orders))
	for i := range orders {
		out[i] = toOrderJSON(&orders[i])
	}
	respondList(w, http.StatusOK, len(out), out)
}

// GetOrder handles GET /orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	o, err := h.orders.Get(r.Context(), principal, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toOrderJSON(o))
}

// CancelOrder handles PATCH /orders/{id}/cancel.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	o, err := h.orders.Cancel(r.Context(), principal, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toOrderJSON(o))
}
