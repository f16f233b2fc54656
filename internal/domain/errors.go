package domain

import "errors"

var (
	ErrCartTerminal    = errors.New("cart is checked out or merged, no further changes allowed")
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrInvalidQuantity = errors.New("quantity must be between 1 and the configured maximum")
	ErrEmptyCart       = errors.New("cart is empty")
)
