package services

import (
	"context"
	"errors"

	"github.com/ashmitsharp/contaspiccioli-api/internal/database"
	"github.com/ashmitsharp/contaspiccioli-api/internal/logger"
	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
)

// SettingsService exposes the single-user profile and the account list
type SettingsService struct {
	store database.Store
}

func NewSettingsService(store database.Store) *SettingsService {
	return &SettingsService{store: store}
}

// Get returns the user settings, creating the defaults on first read.
func (s *SettingsService) Get(ctx context.Context) (*models.UserSettings, error) {
	var out *models.UserSettings
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		us, err := getOrCreateUserSettings(ctx, tx)
		out = us
		return err
	})
	return out, err
}

func getOrCreateUserSettings(ctx context.Context, store database.Store) (*models.UserSettings, error) {
	us, err := store.GetUserSettings(ctx)
	if err == nil {
		return us, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	defaults := models.DefaultUserSettings()
	if err := store.SaveUserSettings(ctx, &defaults); err != nil {
		return nil, err
	}
	return &defaults, nil
}

func (s *SettingsService) Update(ctx context.Context, patch models.UserSettingsPatch) (*models.UserSettings, error) {
	var out *models.UserSettings
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		us, err := getOrCreateUserSettings(ctx, tx)
		if err != nil {
			return err
		}
		if err := patch.Apply(us); err != nil {
			return err
		}
		if err := tx.SaveUserSettings(ctx, us); err != nil {
			return err
		}
		out = us
		return nil
	})
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)
	log.Info().
		Str("monthly_income", out.MonthlyIncome.StringFixed(2)).
		Msg("user settings updated")
	return out, nil
}

func (s *SettingsService) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return s.store.ListAccounts(ctx)
}
