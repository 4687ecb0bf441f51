package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineType is the kind of a forecast line.
type LineType string

const (
	LineIncome       LineType = "income"
	LineFixedCost    LineType = "fixed_cost"
	LineVariableCost LineType = "variable_cost"
)

// ForecastMonth is one cell of the yearly planned-vs-actual grid
type ForecastMonth struct {
	ID                    int64           `json:"id"`
	Year                  int             `json:"year"`
	Month                 int             `json:"month"`
	OpeningBalance        decimal.Decimal `json:"opening_balance"`
	ExpectedIncome        decimal.Decimal `json:"expected_income"`
	ActualIncome          decimal.Decimal `json:"actual_income"`
	ExpectedFixedCosts    decimal.Decimal `json:"expected_fixed_costs"`
	ActualFixedCosts      decimal.Decimal `json:"actual_fixed_costs"`
	ExpectedVariableCosts decimal.Decimal `json:"expected_variable_costs"`
	ActualVariableCosts   decimal.Decimal `json:"actual_variable_costs"`
	ActualsSyncedAt       *time.Time      `json:"actuals_synced_at,omitempty"`
	Notes                 string          `json:"notes,omitempty"`
	IsClosed              bool            `json:"is_closed"`
	Lines                 []ForecastLine  `json:"lines,omitempty"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

func (m ForecastMonth) MonthName() string { return MonthName(m.Month) }

func (m ForecastMonth) ExpectedTotalCosts() decimal.Decimal {
	return m.ExpectedFixedCosts.Add(m.ExpectedVariableCosts)
}

func (m ForecastMonth) ActualTotalCosts() decimal.Decimal {
	return m.ActualFixedCosts.Add(m.ActualVariableCosts)
}

// ExpectedBalance is opening + expected income - expected costs.
func (m ForecastMonth) ExpectedBalance() decimal.Decimal {
	return m.OpeningBalance.Add(m.ExpectedIncome).Sub(m.ExpectedTotalCosts())
}

// ActualBalance is opening + actual income - actual costs.
func (m ForecastMonth) ActualBalance() decimal.Decimal {
	return m.OpeningBalance.Add(m.ActualIncome).Sub(m.ActualTotalCosts())
}

// Variance is actual balance - expected balance.
func (m ForecastMonth) Variance() decimal.Decimal {
	return m.ActualBalance().Sub(m.ExpectedBalance())
}

// HasActuals reports whether actuals were ever synced from transactions.
func (m ForecastMonth) HasActuals() bool {
	return m.ActualsSyncedAt != nil
}

// ClosingBalance is the balance carried into the next month: the actual
// balance once actuals exist, otherwise the expected one.
func (m ForecastMonth) ClosingBalance() decimal.Decimal {
	if m.HasActuals() {
		return m.ActualBalance()
	}
	return m.ExpectedBalance()
}

// ForecastLine is one expected/actual entry inside a month
type ForecastLine struct {
	ID              int64           `json:"id"`
	ForecastMonthID int64           `json:"forecast_month_id"`
	CategoryID      *int64          `json:"category_id,omitempty"`
	TaxDeadlineID   *int64          `json:"tax_deadline_id,omitempty"`
	LineType        LineType        `json:"line_type"`
	Description     string          `json:"description"`
	ExpectedAmount  decimal.Decimal `json:"expected_amount"`
	ActualAmount    decimal.Decimal `json:"actual_amount"`
	IsRecurring     bool            `json:"is_recurring"`
	RecurrenceDay   *int            `json:"recurrence_day,omitempty"`
}

// Variance is actual - expected.
func (l ForecastLine) Variance() decimal.Decimal {
	return l.ActualAmount.Sub(l.ExpectedAmount)
}
