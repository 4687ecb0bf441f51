package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType distinguishes the real-world accounts that hold pillar money.
type AccountType string

const (
	AccountChecking AccountType = "checking"
	AccountBroker   AccountType = "broker"
	AccountTaxOnly  AccountType = "tax_only"
)

// Account is a bank or broker account
type Account struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Type      AccountType `json:"account_type"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
}

// UserSettings is the single-user profile
type UserSettings struct {
	ID                     int64           `json:"id"`
	MonthlyIncome          decimal.Decimal `json:"monthly_income"`
	IncomeType             string          `json:"income_type"`
	AverageMonthlyExpenses decimal.Decimal `json:"average_monthly_expenses"`
	SetupCompleted         bool            `json:"setup_completed"`
	NotificationsEnabled   bool            `json:"notifications_enabled"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// DefaultUserSettings are created on first read.
func DefaultUserSettings() UserSettings {
	return UserSettings{
		MonthlyIncome:          decimal.NewFromInt(3500),
		IncomeType:             string(RegimeForfettario),
		AverageMonthlyExpenses: decimal.NewFromInt(3500),
	}
}

// UserSettingsPatch holds the editable settings; nil means unchanged.
type UserSettingsPatch struct {
	MonthlyIncome          *decimal.Decimal `json:"monthly_income,omitempty"`
	IncomeType             *string          `json:"income_type,omitempty"`
	AverageMonthlyExpenses *decimal.Decimal `json:"average_monthly_expenses,omitempty"`
	SetupCompleted         *bool            `json:"setup_completed,omitempty"`
	NotificationsEnabled   *bool            `json:"notifications_enabled,omitempty"`
}

// Apply copies the set fields onto s.
func (patch UserSettingsPatch) Apply(s *UserSettings) error {
	if patch.MonthlyIncome != nil {
		if patch.MonthlyIncome.IsNegative() {
			return Invalidf("monthly_income must be >= 0")
		}
		s.MonthlyIncome = patch.MonthlyIncome.Round(2)
	}
	if patch.AverageMonthlyExpenses != nil {
		if patch.AverageMonthlyExpenses.IsNegative() {
			return Invalidf("average_monthly_expenses must be >= 0")
		}
		s.AverageMonthlyExpenses = patch.AverageMonthlyExpenses.Round(2)
	}
	if patch.IncomeType != nil {
		s.IncomeType = *patch.IncomeType
	}
	if patch.SetupCompleted != nil {
		s.SetupCompleted = *patch.SetupCompleted
	}
	if patch.NotificationsEnabled != nil {
		s.NotificationsEnabled = *patch.NotificationsEnabled
	}
	return nil
}
