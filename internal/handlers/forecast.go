package handlers

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/shopspring/decimal"

	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/ashmitsharp/contaspiccioli-api/internal/services"
	"github.com/ashmitsharp/contaspiccioli-api/internal/utils"
)

// ForecastService is the forecast engine used by ForecastHandler
type ForecastService interface {
	GenerateYearly(ctx context.Context, year int, baseIncome, opening decimal.Decimal) ([]models.ForecastMonth, error)
	GetYear(ctx context.Context, year int) ([]models.ForecastMonth, error)
	GetMonth(ctx context.Context, year, month int) (*models.ForecastMonth, error)
	Comparison(ctx context.Context, year, month int) (*services.ForecastComparison, error)
	SyncActuals(ctx context.Context, year, month int) (*models.ForecastMonth, error)
}

// Projector projects the balance forward
type Projector interface {
	ProjectBalance(ctx context.Context, months int, startingBalance *decimal.Decimal) ([]services.Projection, error)
}

type ForecastHandler struct {
	forecast  ForecastService
	projector Projector
}

func NewForecastHandler(forecast ForecastService, projector Projector) *ForecastHandler {
	return &ForecastHandler{forecast: forecast, projector: projector}
}

func (h *ForecastHandler) Register(r fiber.Router) {
	g := r.Group("/forecast")
	g.Get("/projection", h.Projection)
	g.Post("/:year/generate", h.Generate)
	g.Get("/:year", h.GetYear)
	g.Get("/:year/:month", h.GetMonth)
	g.Get("/:year/:month/comparison", h.Comparison)
	g.Post("/:year/:month/sync", h.Sync)
}

type GenerateForecastRequest struct {
	BaseIncome     decimal.Decimal `json:"base_income"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// Generate handles POST /v1/forecast/:year/generate
func (h *ForecastHandler) Generate(c fiber.Ctx) error {
	year, err := paramYear(c)
	if err != nil {
		return err
	}
	var req GenerateForecastRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	months, err := h.forecast.GenerateYearly(c.Context(), year, req.BaseIncome, req.OpeningBalance)
	if err != nil {
		return err
	}
	return utils.CreatedResponse(c, months)
}

// GetYear handles GET /v1/forecast/:year
func (h *ForecastHandler) GetYear(c fiber.Ctx) error {
	year, err := paramYear(c)
	if err != nil {
		return err
	}
	months, err := h.forecast.GetYear(c.Context(), year)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, months)
}

// GetMonth handles GET /v1/forecast/:year/:month
func (h *ForecastHandler) GetMonth(c fiber.Ctx) error {
	year, month, err := yearMonth(c)
	if err != nil {
		return err
	}
	m, err := h.forecast.GetMonth(c.Context(), year, month)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, m)
}

// Comparison handles GET /v1/forecast/:year/:month/comparison
func (h *ForecastHandler) Comparison(c fiber.Ctx) error {
	year, month, err := yearMonth(c)
	if err != nil {
		return err
	}
	cmp, err := h.forecast.Comparison(c.Context(), year, month)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, cmp)
}

// Sync handles POST /v1/forecast/:year/:month/sync
func (h *ForecastHandler) Sync(c fiber.Ctx) error {
	year, month, err := yearMonth(c)
	if err != nil {
		return err
	}
	m, err := h.forecast.SyncActuals(c.Context(), year, month)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, m)
}

// Projection handles GET /v1/forecast/projection?months=&starting_balance=
func (h *ForecastHandler) Projection(c fiber.Ctx) error {
	months, err := queryInt(c, "months", 12)
	if err != nil {
		return err
	}
	start, err := queryDecimal(c, "starting_balance")
	if err != nil {
		return err
	}
	projection, err := h.projector.ProjectBalance(c.Context(), months, start)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, projection)
}

func yearMonth(c fiber.Ctx) (int, int, error) {
	year, err := paramYear(c)
	if err != nil {
		return 0, 0, err
	}
	month, err := paramMonth(c)
	if err != nil {
		return 0, 0, err
	}
	return year, month, nil
}
