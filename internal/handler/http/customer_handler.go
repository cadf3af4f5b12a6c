package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/customer"
)

type CreateCustomerRequest struct {
	Name  string  `json:"name" validate:"required,min=2,max=150"`
	Email string  `json:"email" validate:"required,email,max=254"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=20"`
}

type CustomerResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toCustomerResponse(c *customer.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt,
	}
}

type CustomerHandler struct {
	service  customer.Service
	validate *validator.Validate
}

func NewCustomerHandler(service customer.Service) *CustomerHandler {
	return &CustomerHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *CustomerHandler) RegisterRoutes(router chi.Router) {
	router.Post("/customers", h.handleCreateCustomer)
}

func (h *CustomerHandler) RegisterStaffRoutes(router chi.Router) {
	router.Get("/customers/{id}", h.handleGetCustomer)
}

func (h *CustomerHandler) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateCustomerRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	created, err := h.service.Register(r.Context(), requestPayload.Name, requestPayload.Email, requestPayload.Phone)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create customer via service")
		respondWithServiceError(w, err, "Failed to create customer")
		return
	}

	respondWithJSON(w, http.StatusCreated, toCustomerResponse(created))
}

func (h *CustomerHandler) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	found, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		log.Warn().Err(err).Int64("customer_id", id).Msg("Failed to get customer via service")
		respondWithServiceError(w, err, "Failed to get customer")
		return
	}

	respondWithJSON(w, http.StatusOK, toCustomerResponse(found))
}
