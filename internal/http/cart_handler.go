package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vonomarap/kanokna-sub000/internal/domain"
	"github.com/vonomarap/kanokna-sub000/internal/service"
)

type CartHandler struct {
	carts *service.CartService
}

func NewCartHandler(carts *service.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

func (h *CartHandler) Routes(r chi.Router) {
	r.Get("/cart", h.GetCart)
	r.Delete("/cart", h.ClearCart)
	r.Post("/cart/items", h.AddItem)
	r.Put("/cart/items/{itemID}", h.UpdateItemQuantity)
	r.Delete("/cart/items/{itemID}", h.RemoveItem)
	r.Post("/cart/revalidate", h.Revalidate)
	r.Post("/cart/refresh-prices", h.RefreshPrices)
	r.Post("/cart/promo", h.ApplyPromo)
	r.Delete("/cart/promo", h.RemovePromo)
	r.Post("/cart/merge", h.Merge)
}

func ownerFromRequest(r *http.Request) service.Owner {
	customerID := customerIDFromContext(r.Context())
	if customerID != "" {
		return service.Owner{CustomerID: customerID}
	}
	return service.Owner{SessionID: sessionIDFromContext(r.Context())}
}

type AddItemRequestDTO struct {
	ProductTemplateID string            `json:"product_template_id"`
	ProductName       string            `json:"product_name"`
	ProductFamily     string            `json:"product_family"`
	WidthMM           int               `json:"width_mm"`
	HeightMM          int               `json:"height_mm"`
	SelectedOptions   map[string]string `json:"selected_options"`
	BOMLines          []domain.BOMLine  `json:"bom_lines"`
	Quantity          int               `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type ApplyPromoRequestDTO struct {
	Code string `json:"code"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.GetCart(r.Context(), ownerFromRequest(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	cart, err := h.carts.AddItem(r.Context(), ownerFromRequest(r), service.AddItemRequest{
		ProductTemplateID: req.ProductTemplateID,
		ProductName:       req.ProductName,
		ProductFamily:     req.ProductFamily,
		WidthMM:           req.WidthMM,
		HeightMM:          req.HeightMM,
		SelectedOptions:   req.SelectedOptions,
		BOMLines:          req.BOMLines,
		Quantity:          req.Quantity,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, cart)
}

func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	cart, err := h.carts.UpdateItemQuantity(r.Context(), ownerFromRequest(r), chi.URLParam(r, "itemID"), req.Quantity)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.RemoveItem(r.Context(), ownerFromRequest(r), chi.URLParam(r, "itemID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.ClearCart(r.Context(), ownerFromRequest(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) Revalidate(w http.ResponseWriter, r *http.Request) {
	report, err := h.carts.RevalidateCart(r.Context(), ownerFromRequest(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *CartHandler) RefreshPrices(w http.ResponseWriter, r *http.Request) {
	result, err := h.carts.RefreshPrices(r.Context(), ownerFromRequest(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *CartHandler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	var req ApplyPromoRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	cart, err := h.carts.ApplyPromoCode(r.Context(), ownerFromRequest(r), req.Code)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) RemovePromo(w http.ResponseWriter, r *http.Request) {
	removed, cart, err := h.carts.RemovePromoCode(r.Context(), ownerFromRequest(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"removed": removed,
		"cart":    cart,
	})
}

func (h *CartHandler) Merge(w http.ResponseWriter, r *http.Request) {
	customerID := customerIDFromContext(r.Context())
	sessionID := sessionIDFromContext(r.Context())

	result, err := h.carts.MergeCarts(r.Context(), sessionID, customerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
