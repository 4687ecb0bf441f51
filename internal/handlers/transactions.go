package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/shopspring/decimal"

	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/ashmitsharp/contaspiccioli-api/internal/utils"
)

// TransactionService manages ledger transactions
type TransactionService interface {
	List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error)
	Get(ctx context.Context, id int64) (*models.Transaction, error)
	Create(ctx context.Context, txn models.Transaction) (*models.Transaction, error)
	Update(ctx context.Context, id int64, patch models.TransactionPatch) (*models.Transaction, error)
	Delete(ctx context.Context, id int64) error
}

type TransactionHandler struct {
	transactions TransactionService
}

func NewTransactionHandler(transactions TransactionService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

func (h *TransactionHandler) Register(r fiber.Router) {
	g := r.Group("/transactions")
	g.Get("/", h.List)
	g.Post("/", h.Create)
	g.Get("/:id", h.Get)
	g.Put("/:id", h.Update)
	g.Delete("/:id", h.Delete)
}

// List handles GET /v1/transactions
// Query params: year, month, category_id, uncategorized, page (1), page_size (50)
func (h *TransactionHandler) List(c fiber.Ctx) error {
	var filter models.TransactionFilter
	var err error
	if filter.Year, err = queryInt(c, "year", 0); err != nil {
		return err
	}
	if filter.Month, err = queryInt(c, "month", 0); err != nil {
		return err
	}
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return utils.NewBadRequestError("invalid category_id", raw)
		}
		filter.CategoryID = &id
	}
	filter.Uncategorized = c.Query("uncategorized") == "true"

	page, err := queryInt(c, "page", 1)
	if err != nil {
		return err
	}
	pageSize, err := queryInt(c, "page_size", 50)
	if err != nil {
		return err
	}
	if page < 1 || pageSize < 1 || pageSize > 500 {
		return utils.NewBadRequestError("page must be >= 1 and page_size between 1 and 500", nil)
	}

	txns, err := h.transactions.List(c.Context(), filter)
	if err != nil {
		return err
	}
	return utils.PaginatedResponse(c, utils.Paginate(txns, page, pageSize), page, pageSize, len(txns))
}

// Get handles GET /v1/transactions/:id
func (h *TransactionHandler) Get(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	txn, err := h.transactions.Get(c.Context(), id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, txn)
}

type CreateTransactionRequest struct {
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CategoryID  *int64          `json:"category_id"`
	AccountID   *int64          `json:"account_id"`
	IsTaxable   *bool           `json:"is_taxable"`
	Notes       string          `json:"notes"`
}

// Create handles POST /v1/transactions. Income is taxable unless is_taxable
// says otherwise.
func (h *TransactionHandler) Create(c fiber.Ctx) error {
	var req CreateTransactionRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return err
	}
	taxable := req.Amount.IsPositive()
	if req.IsTaxable != nil {
		taxable = *req.IsTaxable
	}

	txn, err := h.transactions.Create(c.Context(), models.Transaction{
		Date:        date,
		Amount:      req.Amount,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		AccountID:   req.AccountID,
		IsTaxable:   taxable,
		Notes:       req.Notes,
	})
	if err != nil {
		return err
	}
	return utils.CreatedResponse(c, txn)
}

type UpdateTransactionRequest struct {
	Date        *string          `json:"date"`
	Amount      *decimal.Decimal `json:"amount"`
	Description *string          `json:"description"`
	CategoryID  *int64           `json:"category_id"`
	AccountID   *int64           `json:"account_id"`
	IsTaxable   *bool            `json:"is_taxable"`
	Notes       *string          `json:"notes"`
}

// Update handles PUT /v1/transactions/:id
func (h *TransactionHandler) Update(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req UpdateTransactionRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		return err
	}

	txn, err := h.transactions.Update(c.Context(), id, models.TransactionPatch{
		Date:        date,
		Amount:      req.Amount,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		AccountID:   req.AccountID,
		IsTaxable:   req.IsTaxable,
		Notes:       req.Notes,
	})
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, txn)
}

// Delete handles DELETE /v1/transactions/:id
func (h *TransactionHandler) Delete(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.transactions.Delete(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
