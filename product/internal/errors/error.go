package errors

import "errors"

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrInvalidProductId = errors.New("invalid product id")
	ErrMalformedRequest = errors.New("malformed request body")
)
