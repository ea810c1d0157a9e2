package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrInvalidLocation is returned for coordinates outside the valid
	// latitude/longitude ranges
	ErrInvalidLocation = errors.New("invalid location coordinates")

	// ErrShopNotFound is returned when a shop id has no catalog entry
	ErrShopNotFound = errors.New("shop not found")

	// ErrProductNotFound is returned when a product id has no catalog entry
	ErrProductNotFound = errors.New("product not found")

	// ErrExtractionFailed is returned when the invoice extraction service
	// request fails
	ErrExtractionFailed = errors.New("invoice extraction request failed")

	// ErrMatchingFailed wraps pipeline-level matching failures when the
	// failure mode is set to propagate
	ErrMatchingFailed = errors.New("alternative matching failed")
)
