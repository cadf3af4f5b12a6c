package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

// LastCategoryKey is the session entry remembering the last browsed category.
const LastCategoryKey = "last_category_id"

// ProductResponse is the public view of a product. Cost stays internal.
type ProductResponse struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	CategoryID int64           `json:"category_id"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock"`
	ImageURL   *string         `json:"image_url,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type CategoryProductsResponse struct {
	Category catalog.Category  `json:"category"`
	Products []ProductResponse `json:"products"`
}

func toProductResponse(p catalog.Product) ProductResponse {
	return ProductResponse{
		ID:         p.ID,
		Name:       p.Name,
		CategoryID: p.CategoryID,
		Price:      p.Price,
		Stock:      p.Stock,
		ImageURL:   p.ImageURL,
		CreatedAt:  p.CreatedAt,
	}
}

func toProductResponses(products []catalog.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	return out
}

type CatalogHandler struct {
	service  catalog.Service
	sessions session.Store
}

func NewCatalogHandler(service catalog.Service, sessions session.Store) *CatalogHandler {
	return &CatalogHandler{service: service, sessions: sessions}
}

func (h *CatalogHandler) RegisterRoutes(router chi.Router) {
	router.Get("/", h.handleListProducts)
	router.Get("/products/{id}", h.handleGetProduct)
	router.Get("/categories", h.handleListCategories)
	router.Get("/categories/{id}/products", h.handleCategoryProducts)
	router.Get("/continue-shopping", h.handleContinueShopping)
}

// RegisterStaffRoutes mounts the routes that must sit behind RequireAuth.
func (h *CatalogHandler) RegisterStaffRoutes(router chi.Router) {
	router.Delete("/categories/{id}", h.handleDeleteCategory)
	router.Delete("/products/{id}", h.handleDeleteProduct)
}

func (h *CatalogHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListActiveProducts(r.Context(), nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list products via service")
		respondWithError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}
	respondWithJSON(w, http.StatusOK, toProductResponses(products))
}

func (h *CatalogHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	product, err := h.service.GetActiveProduct(r.Context(), id)
	if err != nil {
		log.Warn().Err(err).Int64("product_id", id).Msg("Failed to get product via service")
		respondWithServiceError(w, err, "Failed to get product")
		return
	}
	respondWithJSON(w, http.StatusOK, toProductResponse(*product))
}

func (h *CatalogHandler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list categories via service")
		respondWithError(w, http.StatusInternalServerError, "Failed to list categories")
		return
	}
	respondWithJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) handleCategoryProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	category, err := h.service.GetCategory(r.Context(), id)
	if err != nil {
		log.Warn().Err(err).Int64("category_id", id).Msg("Failed to get category via service")
		respondWithServiceError(w, err, "Failed to get category")
		return
	}

	products, err := h.service.ListActiveProducts(r.Context(), &id)
	if err != nil {
		log.Error().Err(err).Int64("category_id", id).Msg("Failed to list category products via service")
		respondWithError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}

	sess := session.FromContext(r.Context())
	if err := sess.Set(LastCategoryKey, id); err != nil {
		log.Error().Err(err).Msg("Failed to remember last category")
	} else if !saveSession(w, r, h.sessions, sess) {
		return
	}

	respondWithJSON(w, http.StatusOK, CategoryProductsResponse{
		Category: *category,
		Products: toProductResponses(products),
	})
}

func (h *CatalogHandler) handleContinueShopping(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	var last int64
	found, err := sess.Get(LastCategoryKey, &last)
	if err != nil || !found || last <= 0 {
		http.Redirect(w, r, "/categories", http.StatusFound)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/categories/%d/products", last), http.StatusFound)
}

func (h *CatalogHandler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		log.Warn().Err(err).Int64("category_id", id).Msg("Failed to delete category via service")
		respondWithServiceError(w, err, "Failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		log.Warn().Err(err).Int64("product_id", id).Msg("Failed to delete product via service")
		respondWithServiceError(w, err, "Failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
