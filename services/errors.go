package services

import (
	"errors"
	"net/http"
)

// Error codes rendered in the `error` field of failed responses.
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeZoneNotFound         = "ZONE_NOT_FOUND"
	CodeAggregationExhausted = "AGGREGATION_EXHAUSTED"
	CodeCatalog              = "CATALOG_ERROR"
	CodeProvider             = "PROVIDER_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeInternal             = "INTERNAL_ERROR"
)

// ErrZoneNotFound is returned when no shipping zone covers an address.
var ErrZoneNotFound = errors.New("no shipping zone matches the destination")

// ServiceError is a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *ServiceError) Error() string { return e.Message }

func (e *ServiceError) Unwrap() error { return e.Err }

func validationError(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusBadRequest, Code: CodeValidation, Message: msg}
}

func zoneNotFoundError(err error) *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusBadRequest,
		Code:       CodeZoneNotFound,
		Message:    "No shipping zone serves the destination address",
		Err:        err,
	}
}

func exhaustedError() *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusInternalServerError,
		Code:       CodeAggregationExhausted,
		Message:    "No shipping options could be calculated for this shipment",
	}
}

func catalogError(err error) *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusInternalServerError,
		Code:       CodeCatalog,
		Message:    "Failed to load the shipping catalog",
		Err:        err,
	}
}
