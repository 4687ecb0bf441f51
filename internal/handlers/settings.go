package handlers

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/ashmitsharp/contaspiccioli-api/internal/utils"
)

// SettingsService owns the single-user settings row and the bank accounts
type SettingsService interface {
	Get(ctx context.Context) (*models.UserSettings, error)
	Update(ctx context.Context, patch models.UserSettingsPatch) (*models.UserSettings, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
}

type SettingsHandler struct {
	settings SettingsService
}

func NewSettingsHandler(settings SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

func (h *SettingsHandler) Register(r fiber.Router) {
	r.Get("/settings", h.Get)
	r.Put("/settings", h.Update)
	r.Get("/accounts", h.ListAccounts)
}

// Get handles GET /v1/settings, creating the defaults on first access
func (h *SettingsHandler) Get(c fiber.Ctx) error {
	settings, err := h.settings.Get(c.Context())
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, settings)
}

// Update handles PUT /v1/settings
func (h *SettingsHandler) Update(c fiber.Ctx) error {
	var patch models.UserSettingsPatch
	if err := bindJSON(c, &patch); err != nil {
		return err
	}
	settings, err := h.settings.Update(c.Context(), patch)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, settings)
}

// ListAccounts handles GET /v1/accounts
func (h *SettingsHandler) ListAccounts(c fiber.Ctx) error {
	accounts, err := h.settings.ListAccounts(c.Context())
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, fiber.Map{
		"accounts": accounts,
		"count":    len(accounts),
	})
}
