package handlers

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/shopspring/decimal"

	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/ashmitsharp/contaspiccioli-api/internal/services"
	"github.com/ashmitsharp/contaspiccioli-api/internal/utils"
)

// TaxService is the tax engine used by TaxHandler
type TaxService interface {
	GetSettings(ctx context.Context, year int) (*models.TaxSettings, error)
	UpdateSettings(ctx context.Context, year int, patch models.TaxSettingsPatch) (*models.TaxSettings, error)
	Calculate(ctx context.Context, gross decimal.Decimal, year int) (models.TaxBreakdown, error)
	ListDeadlines(ctx context.Context, year int) ([]services.DeadlineStatus, error)
	GenerateDeadlines(ctx context.Context, year int, estimatedIncome decimal.Decimal) ([]models.TaxDeadline, error)
	UpdateDeadline(ctx context.Context, id int64, patch models.TaxDeadlinePatch) (*models.TaxDeadline, error)
	PayDeadline(ctx context.Context, id int64, amount decimal.Decimal) (*models.TaxDeadline, error)
	MonthlyReserve(ctx context.Context, year int) (decimal.Decimal, error)
	Coverage(ctx context.Context) (*services.TaxCoverage, error)
}

type TaxHandler struct {
	tax TaxService
}

func NewTaxHandler(tax TaxService) *TaxHandler {
	return &TaxHandler{tax: tax}
}

func (h *TaxHandler) Register(r fiber.Router) {
	g := r.Group("/tax")
	g.Get("/settings/:year", h.GetSettings)
	g.Put("/settings/:year", h.UpdateSettings)
	g.Get("/calculate", h.Calculate)
	g.Get("/deadlines/:year", h.ListDeadlines)
	g.Post("/deadlines/:year/generate", h.GenerateDeadlines)
	g.Put("/deadlines/:id", h.UpdateDeadline)
	g.Post("/deadlines/:id/pay", h.PayDeadline)
	g.Get("/reserve/:year", h.MonthlyReserve)
	g.Get("/coverage", h.Coverage)
}

// GetSettings handles GET /v1/tax/settings/:year
func (h *TaxHandler) GetSettings(c fiber.Ctx) error {
	year, err := paramYear(c)
	if err != nil {
		return err
	}
	settings, err := h.tax.GetSettings(c.Context(), year)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, settings)
}

// UpdateSettings handles PUT /v1/tax/settings/:year
func (h *TaxHandler) UpdateSettings(c fiber.Ctx) error {
	year, err := paramYear(c)
	if err != nil {
		return err
	}
	var patch models.TaxSettingsPatch
	if err := bindJSON(c, &patch); err != nil {
		return err
	}
	settings, err := h.tax.UpdateSettings(c.Context(), year, patch)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, settings)
}

// Calculate handles GET /v1/tax/calculate?gross_income=&year=
func (h *TaxHandler) Calculate(c fiber.Ctx) error {
	gross, err := requireQueryDecimal(c, "gross_income")
	if err != nil {
		return err
	}
	year, err := queryInt(c, "year", 0)
	if err != nil {
		return err
	}
	if year == 0 {
		year = currentYear()
	}
	breakdown, err := h.tax.Calculate(c.Context(), gross, year)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, breakdown)
}

// ListDeadlines handles GET /v1/tax/deadlines/:year
func (h *TaxHandler) ListDeadlines(c fiber.Ctx) error {
	year, err := paramYear(c)
	if err != nil {
		return err
	}
	deadlines, err := h.tax.ListDeadlines(c.Context(), year)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, deadlines)
}

type GenerateDeadlinesRequest struct {
	EstimatedIncome decimal.Decimal `json:"estimated_income"`
}

// GenerateDeadlines handles POST /v1/tax/deadlines/:year/generate
func (h *TaxHandler) GenerateDeadlines(c fiber.Ctx) error {
	year, err := paramYear(c)
	if err != nil {
		return err
	}
	var req GenerateDeadlinesRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	deadlines, err := h.tax.GenerateDeadlines(c.Context(), year, req.EstimatedIncome)
	if err != nil {
		return err
	}
	return utils.CreatedResponse(c, deadlines)
}

type UpdateDeadlineRequest struct {
	AmountDue  *decimal.Decimal `json:"amount_due"`
	AmountPaid *decimal.Decimal `json:"amount_paid"`
	DueDate    *string          `json:"due_date"`
	Notes      *string          `json:"notes"`
}

// UpdateDeadline handles PUT /v1/tax/deadlines/:id
func (h *TaxHandler) UpdateDeadline(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req UpdateDeadlineRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	due, err := parseOptionalDate("due_date", req.DueDate)
	if err != nil {
		return err
	}
	deadline, err := h.tax.UpdateDeadline(c.Context(), id, models.TaxDeadlinePatch{
		AmountDue:  req.AmountDue,
		AmountPaid: req.AmountPaid,
		DueDate:    due,
		Notes:      req.Notes,
	})
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, deadline)
}

type PayDeadlineRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// PayDeadline handles POST /v1/tax/deadlines/:id/pay
func (h *TaxHandler) PayDeadline(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req PayDeadlineRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	deadline, err := h.tax.PayDeadline(c.Context(), id, req.Amount)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, deadline)
}

// MonthlyReserve handles GET /v1/tax/reserve/:year
func (h *TaxHandler) MonthlyReserve(c fiber.Ctx) error {
	year, err := paramYear(c)
	if err != nil {
		return err
	}
	reserve, err := h.tax.MonthlyReserve(c.Context(), year)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, fiber.Map{
		"year":            year,
		"monthly_reserve": reserve,
	})
}

// Coverage handles GET /v1/tax/coverage
func (h *TaxHandler) Coverage(c fiber.Ctx) error {
	coverage, err := h.tax.Coverage(c.Context())
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, coverage)
}
