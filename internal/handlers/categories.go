package handlers

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/shopspring/decimal"

	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/ashmitsharp/contaspiccioli-api/internal/utils"
)

// CategoryService manages categories and their keywords
type CategoryService interface {
	List(ctx context.Context, typ models.CategoryType, activeOnly bool) ([]models.Category, error)
	Get(ctx context.Context, id int64) (*models.Category, error)
	Create(ctx context.Context, c models.Category) (*models.Category, error)
	Update(ctx context.Context, id int64, patch models.CategoryPatch) (*models.Category, error)
	Delete(ctx context.Context, id int64) error
}

// CategorizerStats exposes the keyword cache statistics
type CategorizerStats interface {
	Stats(ctx context.Context) (map[string]interface{}, error)
}

// CategoryHandler handles category management
type CategoryHandler struct {
	categories CategoryService
	stats      CategorizerStats
}

// NewCategoryHandler creates a new category handler instance
func NewCategoryHandler(categories CategoryService, stats CategorizerStats) *CategoryHandler {
	return &CategoryHandler{categories: categories, stats: stats}
}

func (h *CategoryHandler) Register(r fiber.Router) {
	g := r.Group("/categories")
	g.Get("/", h.List)
	g.Post("/", h.Create)
	g.Get("/stats", h.Stats)
	g.Get("/:id", h.Get)
	g.Put("/:id", h.Update)
	g.Delete("/:id", h.Delete)
}

// CreateCategoryRequest represents the request body for creating a category
type CreateCategoryRequest struct {
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	Icon          string          `json:"icon"`
	Color         string          `json:"color"`
	MonthlyBudget decimal.Decimal `json:"monthly_budget"`
	Keywords      []string        `json:"keywords"`
	PillarID      *int64          `json:"pillar_id"`
	DisplayOrder  int             `json:"display_order"`
}

// List returns categories
// GET /v1/categories?type=fixed&active_only=false
func (h *CategoryHandler) List(c fiber.Ctx) error {
	typ := models.CategoryType(c.Query("type"))
	if typ != "" && !typ.Valid() {
		return utils.NewBadRequestError("invalid type", string(typ))
	}
	activeOnly := c.Query("active_only") != "false"

	categories, err := h.categories.List(c.Context(), typ, activeOnly)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, fiber.Map{
		"categories": categories,
		"count":      len(categories),
	})
}

// Get returns a single category
// GET /v1/categories/:id
func (h *CategoryHandler) Get(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	category, err := h.categories.Get(c.Context(), id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, category)
}

// Create creates a new category
// POST /v1/categories
func (h *CategoryHandler) Create(c fiber.Ctx) error {
	var req CreateCategoryRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if req.Name == "" || req.Type == "" {
		return utils.NewBadRequestError("name and type are required", nil)
	}

	category, err := h.categories.Create(c.Context(), models.Category{
		Name:          req.Name,
		Type:          models.CategoryType(req.Type),
		Icon:          req.Icon,
		Color:         req.Color,
		MonthlyBudget: req.MonthlyBudget,
		Keywords:      req.Keywords,
		PillarID:      req.PillarID,
		DisplayOrder:  req.DisplayOrder,
	})
	if err != nil {
		return err
	}
	return utils.CreatedResponse(c, category)
}

// Update changes the given fields of a category
// PUT /v1/categories/:id
func (h *CategoryHandler) Update(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var patch models.CategoryPatch
	if err := bindJSON(c, &patch); err != nil {
		return err
	}
	category, err := h.categories.Update(c.Context(), id, patch)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, category)
}

// Delete deactivates a category (soft delete)
// DELETE /v1/categories/:id
func (h *CategoryHandler) Delete(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.categories.Delete(c.Context(), id); err != nil {
		return err
	}
	return utils.SuccessResponse(c, fiber.Map{
		"message": "Category deactivated",
		"id":      id,
	})
}

// Stats returns categorizer cache statistics
// GET /v1/categories/stats
func (h *CategoryHandler) Stats(c fiber.Ctx) error {
	stats, err := h.stats.Stats(c.Context())
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, stats)
}
