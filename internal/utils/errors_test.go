package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/gofiber/fiber/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromError(t *testing.T) {
	funds := &models.InsufficientFundsError{
		Pillar:    "Liquidità",
		Balance:   decimal.NewFromInt(100),
		Requested: decimal.NewFromInt(250),
	}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", models.NotFoundf("pillar %d", 9), fiber.StatusNotFound, "NOT_FOUND"},
		{"invalid", models.Invalidf("amount must be > 0"), fiber.StatusBadRequest, "BAD_REQUEST"},
		{"insufficient funds", fmt.Errorf("transfer: %w", funds), fiber.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS"},
		{"api error passthrough", NewUnauthorizedError("no token"), fiber.StatusUnauthorized, "UNAUTHORIZED"},
		{"fiber error", fiber.ErrMethodNotAllowed, fiber.StatusMethodNotAllowed, "HTTP_ERROR"},
		{"unknown", errors.New("boom"), fiber.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromError(tt.err)
			assert.Equal(t, tt.wantStatus, got.StatusCode)
			assert.Equal(t, tt.wantCode, got.Code)
		})
	}

	assert.Equal(t, "Insufficient balance in Liquidità: 100.00€ < 250.00€", FromError(funds).Message)
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/missing", func(c fiber.Ctx) error {
		return models.NotFoundf("forecast 2026/3")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "NOT_FOUND", body["code"])
	assert.Contains(t, body["message"], "forecast 2026/3")
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{1, 2}, Paginate(items, 1, 2))
	assert.Equal(t, []int{5}, Paginate(items, 3, 2))
	assert.Empty(t, Paginate(items, 4, 2))
	assert.Empty(t, Paginate(items, 0, 2))
}
