package handlers

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/shopspring/decimal"

	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/ashmitsharp/contaspiccioli-api/internal/services"
	"github.com/ashmitsharp/contaspiccioli-api/internal/utils"
)

// PillarService is the pillar ledger used by PillarHandler
type PillarService interface {
	List(ctx context.Context) ([]models.Pillar, error)
	Get(ctx context.Context, id int64) (*models.Pillar, error)
	Status(ctx context.Context) ([]services.PillarStatus, error)
	Summary(ctx context.Context) (*services.PillarSummary, error)
	Update(ctx context.Context, id int64, patch models.PillarPatch) (*models.Pillar, error)
	Reconcile(ctx context.Context, id int64, balance decimal.Decimal) (*models.Pillar, error)
	Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal, notes string) (*services.TransferResult, error)
	RecalculateTargets(ctx context.Context, averageMonthlyExpenses decimal.Decimal) ([]models.Pillar, error)
	SuggestAllocation(ctx context.Context, surplus decimal.Decimal) ([]services.AllocationSuggestion, error)
	MonthlyBudget(ctx context.Context, cfg services.BudgetConfig) (*services.MonthlyBudget, error)
}

type PillarHandler struct {
	pillars PillarService
	budget  services.BudgetConfig
}

func NewPillarHandler(pillars PillarService, budget services.BudgetConfig) *PillarHandler {
	return &PillarHandler{pillars: pillars, budget: budget}
}

func (h *PillarHandler) Register(r fiber.Router) {
	g := r.Group("/pillars")
	g.Get("/", h.List)
	g.Get("/status", h.Status)
	g.Get("/summary", h.Summary)
	g.Get("/budget", h.Budget)
	g.Get("/allocation-suggestions", h.SuggestAllocation)
	g.Post("/transfer", h.Transfer)
	g.Post("/update-targets", h.UpdateTargets)
	g.Get("/:id", h.Get)
	g.Put("/:id", h.Update)
	g.Put("/:id/balance", h.Reconcile)
}

// List handles GET /v1/pillars
func (h *PillarHandler) List(c fiber.Ctx) error {
	pillars, err := h.pillars.List(c.Context())
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, pillars)
}

// Get handles GET /v1/pillars/:id
func (h *PillarHandler) Get(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	pillar, err := h.pillars.Get(c.Context(), id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, pillar)
}

// Status handles GET /v1/pillars/status
func (h *PillarHandler) Status(c fiber.Ctx) error {
	status, err := h.pillars.Status(c.Context())
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, status)
}

// Summary handles GET /v1/pillars/summary
func (h *PillarHandler) Summary(c fiber.Ctx) error {
	summary, err := h.pillars.Summary(c.Context())
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, summary)
}

// Budget handles GET /v1/pillars/budget
func (h *PillarHandler) Budget(c fiber.Ctx) error {
	budget, err := h.pillars.MonthlyBudget(c.Context(), h.budget)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, budget)
}

// SuggestAllocation handles GET /v1/pillars/allocation-suggestions?surplus=
func (h *PillarHandler) SuggestAllocation(c fiber.Ctx) error {
	surplus, err := requireQueryDecimal(c, "surplus")
	if err != nil {
		return err
	}
	suggestions, err := h.pillars.SuggestAllocation(c.Context(), surplus)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, suggestions)
}

// Update handles PUT /v1/pillars/:id
func (h *PillarHandler) Update(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var patch models.PillarPatch
	if err := bindJSON(c, &patch); err != nil {
		return err
	}
	pillar, err := h.pillars.Update(c.Context(), id, patch)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, pillar)
}

type ReconcileRequest struct {
	Balance *decimal.Decimal `json:"balance"`
}

// Reconcile handles PUT /v1/pillars/:id/balance
func (h *PillarHandler) Reconcile(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req ReconcileRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if req.Balance == nil {
		return utils.NewBadRequestError("balance is required", nil)
	}
	pillar, err := h.pillars.Reconcile(c.Context(), id, *req.Balance)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, pillar)
}

type TransferRequest struct {
	FromPillarID int64           `json:"from_pillar_id"`
	ToPillarID   int64           `json:"to_pillar_id"`
	Amount       decimal.Decimal `json:"amount"`
	Notes        string          `json:"notes"`
}

// Transfer handles POST /v1/pillars/transfer
func (h *PillarHandler) Transfer(c fiber.Ctx) error {
	var req TransferRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if req.FromPillarID == 0 || req.ToPillarID == 0 {
		return utils.NewBadRequestError("from_pillar_id and to_pillar_id are required", nil)
	}
	result, err := h.pillars.Transfer(c.Context(), req.FromPillarID, req.ToPillarID, req.Amount, req.Notes)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, result)
}

// UpdateTargets handles POST /v1/pillars/update-targets?average_monthly_expenses=
func (h *PillarHandler) UpdateTargets(c fiber.Ctx) error {
	avg, err := requireQueryDecimal(c, "average_monthly_expenses")
	if err != nil {
		return err
	}
	pillars, err := h.pillars.RecalculateTargets(c.Context(), avg)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, pillars)
}
