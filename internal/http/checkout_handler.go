package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vonomarap/kanokna-sub000/internal/service"
)

type CheckoutHandler struct {
	carts *service.CartService
}

func NewCheckoutHandler(carts *service.CartService) *CheckoutHandler {
	return &CheckoutHandler{carts: carts}
}

func (h *CheckoutHandler) Routes(r chi.Router) {
	r.Post("/checkout", h.Checkout)
}

type CheckoutRequestDTO struct {
	AcknowledgePriceChange bool `json:"acknowledge_price_change"`
}

// Checkout always answers 200 with the tagged outcome when the flow itself
// ran; blocked outcomes are not transport errors, the client reacts to them
// (e.g. re-invokes with the acknowledgment flag).
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequestDTO
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}

	result, err := h.carts.Checkout(r.Context(), customerIDFromContext(r.Context()), req.AcknowledgePriceChange)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == service.CheckoutCreated {
		status = http.StatusCreated
	}
	respondJSON(w, status, result)
}
