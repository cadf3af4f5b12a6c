package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/cart"
	"github.com/vasiliy-maslov/storefront/internal/order"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

// CheckoutRequest fields are checked after trimming by the order service,
// so only the shape is validated here.
type CheckoutRequest struct {
	Name    string `json:"name" validate:"max=150"`
	Phone   string `json:"phone" validate:"max=20"`
	Address string `json:"address"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type OrderHandler struct {
	orders   order.Service
	carts    cart.Service
	sessions session.Store
	validate *validator.Validate
}

func NewOrderHandler(orders order.Service, carts cart.Service, sessions session.Store) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		carts:    carts,
		sessions: sessions,
		validate: validator.New(),
	}
}

// RegisterStaffRoutes mounts checkout and order routes; all of them require a login.
func (h *OrderHandler) RegisterStaffRoutes(router chi.Router) {
	router.Get("/checkout", h.handleCheckoutSummary)
	router.Post("/checkout", h.handleCheckout)
	router.Get("/orders/{id}", h.handleGetOrder)
	router.Patch("/orders/{id}/status", h.handleUpdateStatus)
}

func (h *OrderHandler) handleCheckoutSummary(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	view, err := h.carts.View(r.Context(), sess)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build cart view for checkout")
		respondWithError(w, http.StatusInternalServerError, "Failed to load cart")
		return
	}
	if len(view.Items) == 0 {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	respondWithJSON(w, http.StatusOK, toCartResponse(view))
}

func (h *OrderHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var requestPayload CheckoutRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	sess := session.FromContext(r.Context())
	created, err := h.orders.Checkout(r.Context(), sess, order.CustomerDetails{
		Name:    requestPayload.Name,
		Phone:   requestPayload.Phone,
		Address: requestPayload.Address,
	})
	switch {
	case err == nil:
	case errors.Is(err, order.ErrCartNotCleared) && created != nil:
		log.Error().Err(err).Int64("order_id", created.ID).Msg("Order stored but cart still holds its items")
	case errors.Is(err, order.ErrEmptyCart):
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	default:
		log.Warn().Err(err).Msg("Failed to check out via service")
		respondWithServiceError(w, err, "Failed to create order")
		return
	}

	// The order is committed; answer with it even when the session write fails.
	if err := h.sessions.Save(w, r, sess); err != nil {
		log.Error().Err(err).Int64("order_id", created.ID).Msg("Failed to save session after checkout")
	}

	w.Header().Set("Location", fmt.Sprintf("/orders/%d", created.ID))
	respondWithJSON(w, http.StatusSeeOther, created)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	found, err := h.orders.GetOrderByID(r.Context(), id)
	if err != nil {
		log.Warn().Err(err).Int64("order_id", id).Msg("Failed to get order via service")
		respondWithServiceError(w, err, "Failed to get order")
		return
	}
	respondWithJSON(w, http.StatusOK, found)
}

func (h *OrderHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var requestPayload UpdateStatusRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	status, err := order.ParseStatus(requestPayload.Status)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Unknown order status")
		return
	}

	if err := h.orders.UpdateOrderStatus(r.Context(), id, status); err != nil {
		log.Warn().Err(err).Int64("order_id", id).Stringer("status", status).Msg("Failed to update order status via service")
		respondWithServiceError(w, err, "Failed to update order status")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
