package handlers

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/shopspring/decimal"

	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/ashmitsharp/contaspiccioli-api/internal/services"
	"github.com/ashmitsharp/contaspiccioli-api/internal/utils"
)

// PlannedExpenseService manages savings goals
type PlannedExpenseService interface {
	List(ctx context.Context, includeCompleted bool) ([]services.PlannedExpenseStatus, error)
	Get(ctx context.Context, id int64) (*services.PlannedExpenseStatus, error)
	Create(ctx context.Context, e models.PlannedExpense) (*services.PlannedExpenseStatus, error)
	Update(ctx context.Context, id int64, patch models.PlannedExpensePatch) (*services.PlannedExpenseStatus, error)
	Delete(ctx context.Context, id int64) error
}

type PlannedExpenseHandler struct {
	planned PlannedExpenseService
}

func NewPlannedExpenseHandler(planned PlannedExpenseService) *PlannedExpenseHandler {
	return &PlannedExpenseHandler{planned: planned}
}

func (h *PlannedExpenseHandler) Register(r fiber.Router) {
	g := r.Group("/expenses/planned")
	g.Get("/", h.List)
	g.Post("/", h.Create)
	g.Get("/:id", h.Get)
	g.Put("/:id", h.Update)
	g.Delete("/:id", h.Delete)
}

type CreatePlannedExpenseRequest struct {
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	TargetDate    string          `json:"target_date"`
	PillarID      *int64          `json:"pillar_id"`
	Notes         string          `json:"notes"`
}

type UpdatePlannedExpenseRequest struct {
	Name          *string          `json:"name"`
	TargetAmount  *decimal.Decimal `json:"target_amount"`
	CurrentAmount *decimal.Decimal `json:"current_amount"`
	TargetDate    *string          `json:"target_date"`
	IsCompleted   *bool            `json:"is_completed"`
	Notes         *string          `json:"notes"`
}

// List handles GET /v1/expenses/planned?include_completed=true
func (h *PlannedExpenseHandler) List(c fiber.Ctx) error {
	expenses, err := h.planned.List(c.Context(), c.Query("include_completed") == "true")
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, expenses)
}

// Get handles GET /v1/expenses/planned/:id
func (h *PlannedExpenseHandler) Get(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	expense, err := h.planned.Get(c.Context(), id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, expense)
}

// Create handles POST /v1/expenses/planned
func (h *PlannedExpenseHandler) Create(c fiber.Ctx) error {
	var req CreatePlannedExpenseRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	target, err := parseDate("target_date", req.TargetDate)
	if err != nil {
		return err
	}
	expense, err := h.planned.Create(c.Context(), models.PlannedExpense{
		Name:          req.Name,
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		TargetDate:    target,
		PillarID:      req.PillarID,
		Notes:         req.Notes,
	})
	if err != nil {
		return err
	}
	return utils.CreatedResponse(c, expense)
}

// Update handles PUT /v1/expenses/planned/:id
func (h *PlannedExpenseHandler) Update(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req UpdatePlannedExpenseRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	target, err := parseOptionalDate("target_date", req.TargetDate)
	if err != nil {
		return err
	}
	expense, err := h.planned.Update(c.Context(), id, models.PlannedExpensePatch{
		Name:          req.Name,
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		TargetDate:    target,
		IsCompleted:   req.IsCompleted,
		Notes:         req.Notes,
	})
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, expense)
}

// Delete handles DELETE /v1/expenses/planned/:id
func (h *PlannedExpenseHandler) Delete(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.planned.Delete(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
