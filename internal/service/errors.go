// internal/service/errors.go
package service

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrConfiguration = errors.New("payment integration is not configured")
	ErrValidation    = errors.New("invalid payment request")
)

// AppError is an error the HTTP layer can render as is
type AppError struct {
	Status  int
	Message string
	Details interface{}
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func configurationError() *AppError {
	return &AppError{
		Status:  http.StatusInternalServerError,
		Message: "Payment integration configuration error",
		Err:     ErrConfiguration,
	}
}

func validationError(details string) *AppError {
	return &AppError{
		Status:  http.StatusBadRequest,
		Message: "Invalid payment request",
		Details: details,
		Err:     ErrValidation,
	}
}

func gatewayError(err error) *AppError {
	details := err.Error()
	var gwErr *GatewayError
	if errors.As(err, &gwErr) && gwErr.Message != "" {
		details = gwErr.Message
	}
	return &AppError{
		Status:  http.StatusBadGateway,
		Message: "Failed to process payment",
		Details: details,
		Err:     err,
	}
}

func persistenceError(err error) *AppError {
	return &AppError{
		Status:  http.StatusInternalServerError,
		Message: "Failed to save payment data",
		Details: err.Error(),
		Err:     err,
	}
}
