package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/vonomarap/kanokna-sub000/internal/domain"
	"github.com/vonomarap/kanokna-sub000/internal/repository"
	"github.com/vonomarap/kanokna-sub000/internal/service"
)

type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps the core's error taxonomy to HTTP. Dependency
// unavailability and version conflicts keep distinct codes so clients know
// what is safe to retry.
func handleServiceError(w http.ResponseWriter, err error) {
	var promoErr *service.PromoRejectedError
	var configErr *service.ConfigurationInvalidError

	switch {
	case errors.Is(err, service.ErrMissingIdentifier),
		errors.Is(err, service.ErrMissingProductTemplate),
		errors.Is(err, service.ErrMissingProductName):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, service.ErrUnsupportedProductFamily):
		respondError(w, http.StatusBadRequest, "unsupported_product_family", err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, domain.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "item_not_found", err.Error())
	case errors.Is(err, repository.ErrCartNotFound):
		respondError(w, http.StatusNotFound, "cart_not_found", err.Error())
	case errors.Is(err, domain.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", err.Error())
	case errors.Is(err, domain.ErrCartTerminal):
		respondError(w, http.StatusConflict, "cart_closed", err.Error())
	case errors.Is(err, service.ErrAnonymousCheckout):
		respondError(w, http.StatusUnauthorized, "authentication_required", err.Error())
	case errors.Is(err, service.ErrCannotMerge):
		respondError(w, http.StatusConflict, "cannot_merge", err.Error())
	case errors.Is(err, repository.ErrVersionConflict):
		respondError(w, http.StatusConflict, "concurrent_modification", err.Error())
	case errors.Is(err, repository.ErrDuplicateCartOwner):
		// Two first-saves raced on the one-active-cart-per-owner index;
		// the retry will load the winner.
		respondError(w, http.StatusConflict, "concurrent_creation", err.Error())
	case errors.Is(err, service.ErrPricingUnavailable):
		respondError(w, http.StatusServiceUnavailable, "pricing_unavailable", err.Error())
	case errors.Is(err, service.ErrQuoteExpired):
		respondError(w, http.StatusConflict, "quote_expired", err.Error())
	case errors.As(err, &promoErr):
		respondError(w, http.StatusUnprocessableEntity, promoErr.Code, promoErr.Message)
	case errors.As(err, &configErr):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "configuration invalid",
			Code:    "configuration_invalid",
			Details: configErr.Errors,
		})
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
