package services

import (
	"context"
	"sort"
	"strings"

	"github.com/ashmitsharp/contaspiccioli-api/internal/database"
	"github.com/ashmitsharp/contaspiccioli-api/internal/logger"
	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/ashmitsharp/contaspiccioli-api/internal/money"
)

// CategoryService manages categories. Every write invalidates the
// categorizer cache so new keywords apply to the next import.
type CategoryService struct {
	store       database.Store
	categorizer *Categorizer
}

// NewCategoryService returns a category service. categorizer may be nil.
func NewCategoryService(store database.Store, categorizer *Categorizer) *CategoryService {
	return &CategoryService{store: store, categorizer: categorizer}
}

// List returns categories ordered by display order. An empty type lists all.
func (s *CategoryService) List(ctx context.Context, typ models.CategoryType, activeOnly bool) ([]models.Category, error) {
	if typ != "" && !typ.Valid() {
		return nil, models.Invalidf("unknown category type %q", typ)
	}
	cats, err := s.store.ListCategories(ctx, database.CategoryFilter{Type: typ, ActiveOnly: activeOnly})
	if err != nil {
		return nil, err
	}
	sortCategories(cats)
	return cats, nil
}

func (s *CategoryService) Get(ctx context.Context, id int64) (*models.Category, error) {
	return s.store.GetCategory(ctx, id)
}

func (s *CategoryService) Create(ctx context.Context, c models.Category) (*models.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return nil, models.Invalidf("name is required")
	}
	if !c.Type.Valid() {
		return nil, models.Invalidf("unknown category type %q", c.Type)
	}
	if c.MonthlyBudget.IsNegative() {
		return nil, models.Invalidf("monthly budget must be >= 0")
	}

	c.ID = 0
	c.MonthlyBudget = money.Round(c.MonthlyBudget)
	c.Keywords = models.NormalizeKeywords(c.Keywords)
	c.IsActive = true

	err := s.store.WithTx(ctx, func(tx database.Store) error {
		if c.PillarID != nil {
			if _, err := tx.GetPillar(ctx, *c.PillarID); err != nil {
				return err
			}
		}
		return tx.CreateCategory(ctx, &c)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate()
	log := logger.FromContext(ctx)
	log.Info().
		Int64("category_id", c.ID).
		Str("name", c.Name).
		Msg("category created")
	return &c, nil
}

func (s *CategoryService) Update(ctx context.Context, id int64, patch models.CategoryPatch) (*models.Category, error) {
	var out *models.Category
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		c, err := tx.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		if patch.PillarID != nil {
			if _, err := tx.GetPillar(ctx, *patch.PillarID); err != nil {
				return err
			}
		}
		if err := patch.Apply(c); err != nil {
			return err
		}
		if err := tx.UpdateCategory(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate()
	return out, nil
}

// Delete deactivates the category. Its transactions keep the reference.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	inactive := false
	if _, err := s.Update(ctx, id, models.CategoryPatch{IsActive: &inactive}); err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	log.Info().Int64("category_id", id).Msg("category deactivated")
	return nil
}

func (s *CategoryService) invalidate() {
	if s.categorizer != nil {
		s.categorizer.Invalidate()
	}
}

func sortCategories(cats []models.Category) {
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].DisplayOrder != cats[j].DisplayOrder {
			return cats[i].DisplayOrder < cats[j].DisplayOrder
		}
		return cats[i].ID < cats[j].ID
	})
}
