package services

import (
	"context"
	"time"

	"github.com/ashmitsharp/contaspiccioli-api/internal/database"
	"github.com/ashmitsharp/contaspiccioli-api/internal/logger"
	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/ashmitsharp/contaspiccioli-api/internal/money"
	"github.com/shopspring/decimal"
)

// PlannedExpenseStatus is a planned expense with its progress figures
type PlannedExpenseStatus struct {
	models.PlannedExpense
	Remaining            decimal.Decimal `json:"remaining"`
	CompletionPercentage decimal.Decimal `json:"completion_percentage"`
	MonthlyContribution  decimal.Decimal `json:"monthly_contribution"`
}

// PlannedExpenseService manages savings goals funded from pillar 3
type PlannedExpenseService struct {
	store database.Store
	now   func() time.Time
}

func NewPlannedExpenseService(store database.Store) *PlannedExpenseService {
	return &PlannedExpenseService{store: store, now: time.Now}
}

func (s *PlannedExpenseService) WithClock(now func() time.Time) *PlannedExpenseService {
	s.now = now
	return s
}

func (s *PlannedExpenseService) status(e models.PlannedExpense) PlannedExpenseStatus {
	return PlannedExpenseStatus{
		PlannedExpense:       e,
		Remaining:            e.Remaining(),
		CompletionPercentage: e.CompletionPercentage(),
		MonthlyContribution:  e.MonthlyContribution(s.now()),
	}
}

// List returns expenses ordered by target date. Completed ones are included
// only when asked for.
func (s *PlannedExpenseService) List(ctx context.Context, includeCompleted bool) ([]PlannedExpenseStatus, error) {
	expenses, err := s.store.ListPlannedExpenses(ctx, includeCompleted)
	if err != nil {
		return nil, err
	}
	out := make([]PlannedExpenseStatus, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, s.status(e))
	}
	return out, nil
}

func (s *PlannedExpenseService) Get(ctx context.Context, id int64) (*PlannedExpenseStatus, error) {
	e, err := s.store.GetPlannedExpense(ctx, id)
	if err != nil {
		return nil, err
	}
	st := s.status(*e)
	return &st, nil
}

// Create stores a new expense. Without an explicit pillar it is attached to
// the planned-expenses pillar.
func (s *PlannedExpenseService) Create(ctx context.Context, e models.PlannedExpense) (*PlannedExpenseStatus, error) {
	e.ID = 0
	e.TargetAmount = money.Round(e.TargetAmount)
	e.CurrentAmount = money.Round(e.CurrentAmount)
	e.TargetDate = models.Date(e.TargetDate)
	if err := e.Validate(); err != nil {
		return nil, err
	}

	err := s.store.WithTx(ctx, func(tx database.Store) error {
		if e.PillarID == nil {
			p3, err := tx.GetPillarByNumber(ctx, models.PillarPlanned)
			if err != nil {
				return err
			}
			e.PillarID = &p3.ID
		} else if _, err := tx.GetPillar(ctx, *e.PillarID); err != nil {
			return err
		}
		return tx.CreatePlannedExpense(ctx, &e)
	})
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int64("planned_expense_id", e.ID).
		Str("target_amount", e.TargetAmount.StringFixed(2)).
		Msg("planned expense created")
	st := s.status(e)
	return &st, nil
}

func (s *PlannedExpenseService) Update(ctx context.Context, id int64, patch models.PlannedExpensePatch) (*PlannedExpenseStatus, error) {
	var out models.PlannedExpense
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		e, err := tx.GetPlannedExpense(ctx, id)
		if err != nil {
			return err
		}
		if err := patch.Apply(e); err != nil {
			return err
		}
		if err := tx.UpdatePlannedExpense(ctx, e); err != nil {
			return err
		}
		out = *e
		return nil
	})
	if err != nil {
		return nil, err
	}
	st := s.status(out)
	return &st, nil
}

func (s *PlannedExpenseService) Delete(ctx context.Context, id int64) error {
	return s.store.DeletePlannedExpense(ctx, id)
}
