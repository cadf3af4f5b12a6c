package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/cart"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

type CartItemResponse struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type CartResponse struct {
	Items []CartItemResponse `json:"items"`
	Total decimal.Decimal    `json:"total"`
	Count int                `json:"count"`
}

func toCartResponse(v *cart.View) CartResponse {
	items := make([]CartItemResponse, 0, len(v.Items))
	for _, it := range v.Items {
		items = append(items, CartItemResponse{
			ProductID: it.Product.ID,
			Name:      it.Product.Name,
			Price:     it.Product.Price,
			Quantity:  it.Quantity,
			Subtotal:  it.Subtotal,
		})
	}
	return CartResponse{Items: items, Total: v.Total, Count: v.Count}
}

type CartHandler struct {
	service  cart.Service
	sessions session.Store
}

func NewCartHandler(service cart.Service, sessions session.Store) *CartHandler {
	return &CartHandler{service: service, sessions: sessions}
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Get("/cart", h.handleView)
	router.Delete("/cart", h.handleClear)
	router.Post("/cart/items/{id}", h.handleAdd)
	router.Put("/cart/items/{id}", h.handleSetQuantity)
	router.Post("/cart/items/{id}/decrement", h.handleDecrement)
	router.Delete("/cart/items/{id}", h.handleRemove)
}

// quantityFromRequest reads "quantity" from a JSON or form body. Anything
// that is not an integer counts as 1.
func quantityFromRequest(r *http.Request) int {
	var raw string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Quantity json.RawMessage `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			raw = strings.Trim(string(body.Quantity), `"`)
		}
	} else {
		raw = r.FormValue("quantity")
	}

	qty, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1
	}
	return qty
}

// respondWithCart saves the session and answers with the resolved cart.
func (h *CartHandler) respondWithCart(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !saveSession(w, r, h.sessions, sess) {
		return
	}

	view, err := h.service.View(r.Context(), sess)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build cart view via service")
		respondWithError(w, http.StatusInternalServerError, "Failed to load cart")
		return
	}
	respondWithJSON(w, http.StatusOK, toCartResponse(view))
}

func (h *CartHandler) handleView(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	view, err := h.service.View(r.Context(), sess)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build cart view via service")
		respondWithError(w, http.StatusInternalServerError, "Failed to load cart")
		return
	}
	respondWithJSON(w, http.StatusOK, toCartResponse(view))
}

func (h *CartHandler) handleAdd(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	sess := session.FromContext(r.Context())
	if _, err := h.service.Add(r.Context(), sess, id); err != nil {
		log.Warn().Err(err).Int64("product_id", id).Msg("Failed to add product to cart")
		respondWithServiceError(w, err, "Failed to add product to cart")
		return
	}
	h.respondWithCart(w, r, sess)
}

func (h *CartHandler) handleSetQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	qty := quantityFromRequest(r)
	sess := session.FromContext(r.Context())
	if _, err := h.service.SetQuantity(r.Context(), sess, id, qty); err != nil {
		log.Warn().Err(err).Int64("product_id", id).Int("quantity", qty).Msg("Failed to set cart quantity")
		respondWithServiceError(w, err, "Failed to update cart")
		return
	}
	h.respondWithCart(w, r, sess)
}

func (h *CartHandler) handleDecrement(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	sess := session.FromContext(r.Context())
	if err := h.service.Decrement(sess, id); err != nil {
		log.Error().Err(err).Int64("product_id", id).Msg("Failed to decrement cart entry")
		respondWithError(w, http.StatusInternalServerError, "Failed to update cart")
		return
	}
	h.respondWithCart(w, r, sess)
}

func (h *CartHandler) handleRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	sess := session.FromContext(r.Context())
	if err := h.service.Remove(sess, id); err != nil {
		log.Error().Err(err).Int64("product_id", id).Msg("Failed to remove cart entry")
		respondWithError(w, http.StatusInternalServerError, "Failed to update cart")
		return
	}
	h.respondWithCart(w, r, sess)
}

func (h *CartHandler) handleClear(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if err := h.service.Clear(sess); err != nil {
		log.Error().Err(err).Msg("Failed to clear cart")
		respondWithError(w, http.StatusInternalServerError, "Failed to clear cart")
		return
	}
	h.respondWithCart(w, r, sess)
}
