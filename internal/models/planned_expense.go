package models

import (
	"strings"
	"time"

	"github.com/ashmitsharp/contaspiccioli-api/internal/money"
	"github.com/shopspring/decimal"
)

// PlannedExpense is a savings goal funded from pillar 3
type PlannedExpense struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	TargetDate    time.Time       `json:"target_date"`
	PillarID      *int64          `json:"pillar_id,omitempty"`
	IsCompleted   bool            `json:"is_completed"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Remaining is target - current.
func (e PlannedExpense) Remaining() decimal.Decimal {
	return e.TargetAmount.Sub(e.CurrentAmount)
}

// CompletionPercentage is current/target*100 capped at 100; a zero target is
// complete.
func (e PlannedExpense) CompletionPercentage() decimal.Decimal {
	if e.TargetAmount.IsZero() {
		return money.Hundred
	}
	return decimal.Min(money.Percent(e.CurrentAmount, e.TargetAmount, money.Zero), money.Hundred)
}

// MonthlyContribution is what must be saved each month from `from` to reach
// the target on time. Past or same-month targets need the whole remainder now.
func (e PlannedExpense) MonthlyContribution(from time.Time) decimal.Decimal {
	if !Date(from).Before(Date(e.TargetDate)) {
		return e.Remaining()
	}
	months := MonthsBetween(from, e.TargetDate)
	if months <= 0 {
		return e.Remaining()
	}
	return money.Div(e.Remaining(), decimal.NewFromInt(int64(months)))
}

// Validate checks the fields required on create.
func (e PlannedExpense) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return Invalidf("name is required")
	}
	if !e.TargetAmount.IsPositive() {
		return Invalidf("target_amount must be > 0")
	}
	if e.CurrentAmount.IsNegative() {
		return Invalidf("current_amount must be >= 0")
	}
	if e.TargetDate.IsZero() {
		return Invalidf("target_date is required")
	}
	return nil
}

// PlannedExpensePatch holds the editable fields; nil means unchanged.
type PlannedExpensePatch struct {
	Name          *string          `json:"name,omitempty"`
	TargetAmount  *decimal.Decimal `json:"target_amount,omitempty"`
	CurrentAmount *decimal.Decimal `json:"current_amount,omitempty"`
	TargetDate    *time.Time       `json:"target_date,omitempty"`
	IsCompleted   *bool            `json:"is_completed,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
}

// Apply copies the set fields onto e and re-validates.
func (patch PlannedExpensePatch) Apply(e *PlannedExpense) error {
	if patch.Name != nil {
		e.Name = *patch.Name
	}
	if patch.TargetAmount != nil {
		e.TargetAmount = money.Round(*patch.TargetAmount)
	}
	if patch.CurrentAmount != nil {
		e.CurrentAmount = money.Round(*patch.CurrentAmount)
	}
	if patch.TargetDate != nil {
		e.TargetDate = Date(*patch.TargetDate)
	}
	if patch.IsCompleted != nil {
		e.IsCompleted = *patch.IsCompleted
	}
	if patch.Notes != nil {
		e.Notes = *patch.Notes
	}
	return e.Validate()
}
