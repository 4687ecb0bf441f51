package utils

import (
	"errors"
	"fmt"

	"github.com/ashmitsharp/contaspiccioli-api/internal/logger"
	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/gofiber/fiber/v3"
)

type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewBadRequestError(message string, details any) *APIError {
	return &APIError{
		StatusCode: fiber.StatusBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		Details:    details,
	}
}

func NewUnauthorizedError(message string) *APIError {
	return &APIError{
		StatusCode: fiber.StatusUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
	}
}

func NewNotFoundError(resource string) *APIError {
	return &APIError{
		StatusCode: fiber.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
	}
}

// NewInsufficientFundsError reports a transfer the source pillar cannot cover.
func NewInsufficientFundsError(err *models.InsufficientFundsError) *APIError {
	return &APIError{
		StatusCode: fiber.StatusUnprocessableEntity,
		Code:       "INSUFFICIENT_FUNDS",
		Message:    err.Error(),
		Details: fiber.Map{
			"pillar":    err.Pillar,
			"balance":   err.Balance,
			"requested": err.Requested,
		},
	}
}

func NewInternalError(err error) *APIError {
	return &APIError{
		StatusCode: fiber.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    "An internal error occurred",
		Details:    err.Error(), // Only in development
	}
}

// FromError maps a service error onto the API error returned to clients.
func FromError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var funds *models.InsufficientFundsError
	switch {
	case errors.As(err, &funds):
		return NewInsufficientFundsError(funds)
	case errors.Is(err, models.ErrNotFound):
		return &APIError{StatusCode: fiber.StatusNotFound, Code: "NOT_FOUND", Message: err.Error()}
	case errors.Is(err, models.ErrInvalidArgument):
		return NewBadRequestError(err.Error(), nil)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return &APIError{StatusCode: fiberErr.Code, Code: "HTTP_ERROR", Message: fiberErr.Message}
	}
	return NewInternalError(err)
}

// ErrorHandler is installed as the fiber ErrorHandler
func ErrorHandler(c fiber.Ctx, err error) error {
	apiErr := FromError(err)
	if apiErr.StatusCode >= fiber.StatusInternalServerError {
		log := logger.FromContext(c.Context())
		log.Error().Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg("request failed")
	}
	return c.Status(apiErr.StatusCode).JSON(apiErr)
}
