package models

import (
	"time"

	"github.com/ashmitsharp/contaspiccioli-api/internal/money"
	"github.com/shopspring/decimal"
)

// Pillar numbers. Exactly one pillar exists per number.
const (
	PillarLiquidity   = 1
	PillarEmergency   = 2
	PillarPlanned     = 3 // taxes and planned expenses
	PillarInvestments = 4
)

// Default target horizons, in months of average expenses.
const (
	DefaultLiquidityMonths = 3
	DefaultEmergencyMonths = 6
)

// Pillar is one of the four savings buckets
type Pillar struct {
	ID             int64           `json:"id"`
	Number         int             `json:"number"`
	Name           string          `json:"name"`
	DisplayName    string          `json:"display_name"`
	Description    string          `json:"description"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	TargetBalance  decimal.Decimal `json:"target_balance"`
	TargetMonths   *int            `json:"target_months,omitempty"`
	Instrument     string          `json:"instrument"`
	AccountName    string          `json:"account_name"`
	IsFunded       bool            `json:"is_funded"`
	Priority       int             `json:"priority"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// RefreshFunded recomputes IsFunded from the balances.
func (p *Pillar) RefreshFunded() {
	p.IsFunded = p.CurrentBalance.GreaterThanOrEqual(p.TargetBalance)
}

// Shortfall is max(0, target - current).
func (p Pillar) Shortfall() decimal.Decimal {
	return money.NonNegative(p.TargetBalance.Sub(p.CurrentBalance))
}

// Surplus is max(0, current - target).
func (p Pillar) Surplus() decimal.Decimal {
	return money.NonNegative(p.CurrentBalance.Sub(p.TargetBalance))
}

// CompletionPercentage is current/target*100 capped at 100. A zero target is
// complete unless the balance is negative.
func (p Pillar) CompletionPercentage() decimal.Decimal {
	if p.TargetBalance.IsZero() {
		if p.CurrentBalance.IsNegative() {
			return money.Zero
		}
		return money.Hundred
	}
	pct := money.Percent(p.CurrentBalance, p.TargetBalance, money.Zero)
	return decimal.Min(pct, money.Hundred)
}

// TargetMonthsOr returns TargetMonths or def when unset.
func (p Pillar) TargetMonthsOr(def int) int {
	if p.TargetMonths == nil {
		return def
	}
	return *p.TargetMonths
}

// PillarPatch holds the editable pillar fields; nil means unchanged.
type PillarPatch struct {
	Name          *string          `json:"name,omitempty"`
	DisplayName   *string          `json:"display_name,omitempty"`
	Description   *string          `json:"description,omitempty"`
	TargetBalance *decimal.Decimal `json:"target_balance,omitempty"`
	TargetMonths  *int             `json:"target_months,omitempty"`
	Instrument    *string          `json:"instrument,omitempty"`
	AccountName   *string          `json:"account_name,omitempty"`
	Priority      *int             `json:"priority,omitempty"`
}

// Apply copies the set fields onto p and recomputes IsFunded.
func (patch PillarPatch) Apply(p *Pillar) error {
	if patch.TargetBalance != nil {
		if patch.TargetBalance.IsNegative() {
			return Invalidf("target balance must be >= 0")
		}
		p.TargetBalance = money.Round(*patch.TargetBalance)
	}
	if patch.TargetMonths != nil {
		if *patch.TargetMonths < 0 {
			return Invalidf("target months must be >= 0")
		}
		months := *patch.TargetMonths
		p.TargetMonths = &months
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.DisplayName != nil {
		p.DisplayName = *patch.DisplayName
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Instrument != nil {
		p.Instrument = *patch.Instrument
	}
	if patch.AccountName != nil {
		p.AccountName = *patch.AccountName
	}
	if patch.Priority != nil {
		p.Priority = *patch.Priority
	}
	p.RefreshFunded()
	return nil
}

// PillarTransfer records a completed move of funds between two pillars.
type PillarTransfer struct {
	ID           int64           `json:"id"`
	FromPillarID int64           `json:"from_pillar_id"`
	ToPillarID   int64           `json:"to_pillar_id"`
	Amount       decimal.Decimal `json:"amount"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
