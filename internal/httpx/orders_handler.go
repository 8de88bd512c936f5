package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/danisworo/go-commerce-api/internal/orders"
)

type OrdersHandler struct {
	Svc      *orders.Service
	Store    orders.Store
	PageSize int
}

type orderItemsReq struct {
	Items []orders.ItemInput `json:"items"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/orders", h.listOrders)
	r.Post("/orders", h.placeOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Put("/orders/{id}", h.updateOrder)
	r.Delete("/orders/{id}", h.deleteOrder)
}

// validateItems enforces what the engine assumes: non-empty input, positive
// quantities, and no duplicate product ids in one request.
func validateItems(items []orders.ItemInput) string {
	if len(items) == 0 {
		return "items must not be empty"
	}
	seen := map[string]bool{}
	for i, it := range items {
		if it.ProductID == "" {
			return fmt.Sprintf("items.%d.product_id is required", i)
		}
		if it.Qty <= 0 {
			return fmt.Sprintf("items.%d.qty must be positive", i)
		}
		if seen[it.ProductID] {
			return fmt.Sprintf("items.%d.product_id is a duplicate", i)
		}
		seen[it.ProductID] = true
	}
	return ""
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req orderItemsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if msg := validateItems(req.Items); msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	ctx := orders.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
	o, err := h.Svc.PlaceOrder(ctx, UserID(ctx), req.Items)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	page := atoiOr(r.URL.Query().Get("page"), 1)
	if page < 1 {
		page = 1
	}
	os, err := h.Store.ListOrdersByUser(r.Context(), UserID(r.Context()), h.PageSize, (page-1)*h.PageSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": os, "page": page})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	var req orderItemsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	// an update may clear the order, so only per-item rules apply
	if len(req.Items) > 0 {
		if msg := validateItems(req.Items); msg != "" {
			writeError(w, http.StatusUnprocessableEntity, msg)
			return
		}
	}

	updated, err := h.Svc.UpdateOrder(r.Context(), o.ID, req.Items)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	if err := h.Svc.DeleteOrder(r.Context(), o.ID); err != nil {
		writeOrderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadOwned fetches the order and enforces owner-only access.
func (h *OrdersHandler) loadOwned(w http.ResponseWriter, r *http.Request) (*orders.Order, bool) {
	o, err := h.Store.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, orders.ErrOrderNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return nil, false
	}
	if o.UserID != UserID(r.Context()) {
		writeError(w, http.StatusForbidden, "forbidden")
		return nil, false
	}
	return o, true
}

func writeOrderError(w http.ResponseWriter, err error) {
	var se *orders.StockError
	switch {
	case errors.As(err, &se):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "product stock insufficient or invalid product",
			"detail": se,
		})
	case errors.Is(err, orders.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, "order processing failed")
	}
}
