package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingIdentifier        = errors.New("exactly one of customer id or session id is required")
	ErrMissingProductTemplate   = errors.New("product template id is required")
	ErrMissingProductName       = errors.New("product name is required")
	ErrUnsupportedProductFamily = errors.New("product family is not allowed")
	ErrAnonymousCheckout        = errors.New("checkout requires an authenticated customer")
	ErrPricingUnavailable       = errors.New("pricing capability is unavailable")
	ErrQuoteExpired             = errors.New("pricing returned an already expired quote")
	ErrCannotMerge              = errors.New("carts cannot be merged")
)

// Promo rejection codes after remapping the pricing capability's own codes
// to the cart boundary.
const (
	PromoCodeInvalid       = "PROMO_INVALID"
	PromoCodeMinimumNotMet = "PROMO_MINIMUM_NOT_MET"
	PromoCodeExpired       = "PROMO_EXPIRED"
)

// PromoRejectedError is a business rejection, not a dependency failure: the
// pricing capability was reachable and said no.
type PromoRejectedError struct {
	Code    string
	Message string
}

func (e *PromoRejectedError) Error() string {
	return fmt.Sprintf("promo code rejected (%s): %s", e.Code, e.Message)
}

// ConfigurationInvalidError carries the catalog capability's error list for
// a rejected configuration.
type ConfigurationInvalidError struct {
	Errors []string
}

func (e *ConfigurationInvalidError) Error() string {
	return fmt.Sprintf("configuration invalid: %s", strings.Join(e.Errors, "; "))
}
