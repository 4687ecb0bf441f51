package models

import (
	"time"

	"github.com/ashmitsharp/contaspiccioli-api/internal/money"
	"github.com/shopspring/decimal"
)

// TaxRegime is the taxpayer's regime. Only forfettario drives the engine.
type TaxRegime string

const (
	RegimeForfettario TaxRegime = "forfettario"
	RegimeOrdinario   TaxRegime = "ordinario"
	RegimeDipendente  TaxRegime = "dipendente"
)

// AdvanceMethod selects how advance payments are sized.
type AdvanceMethod string

const (
	// AdvanceHistoric bases advances on last year's paid amounts.
	AdvanceHistoric AdvanceMethod = "storico"
	// AdvanceProjected bases advances on this year's estimated income.
	AdvanceProjected AdvanceMethod = "previsionale"
)

// Valid reports whether m is a known method.
func (m AdvanceMethod) Valid() bool {
	return m == AdvanceHistoric || m == AdvanceProjected
}

// DeadlineType is the kind of F24 payment.
type DeadlineType string

const (
	DeadlineSaldo    DeadlineType = "saldo"
	DeadlineAcconto1 DeadlineType = "acconto_1"
	DeadlineAcconto2 DeadlineType = "acconto_2"
)

// TaxSettings is the per-year tax configuration
type TaxSettings struct {
	ID                     int64           `json:"id"`
	Year                   int             `json:"year"`
	Regime                 TaxRegime       `json:"regime"`
	Coefficient            decimal.Decimal `json:"coefficient"`
	InpsRate               decimal.Decimal `json:"inps_rate"`
	TaxRate                decimal.Decimal `json:"tax_rate"`
	AdvanceMethod          AdvanceMethod   `json:"advance_method"`
	PriorYearIncome        decimal.Decimal `json:"prior_year_income"`
	PriorYearTaxPaid       decimal.Decimal `json:"prior_year_tax_paid"`
	PriorYearInpsPaid      decimal.Decimal `json:"prior_year_inps_paid"`
	MinThreshold           decimal.Decimal `json:"min_threshold"`
	SinglePaymentThreshold decimal.Decimal `json:"single_payment_threshold"`
	Notes                  string          `json:"notes,omitempty"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// DefaultTaxSettings returns the forfettario defaults for year.
func DefaultTaxSettings(year int) TaxSettings {
	return TaxSettings{
		Year:                   year,
		Regime:                 RegimeForfettario,
		Coefficient:            decimal.RequireFromString("0.78"),
		InpsRate:               decimal.RequireFromString("0.2607"),
		TaxRate:                decimal.RequireFromString("0.15"),
		AdvanceMethod:          AdvanceHistoric,
		PriorYearIncome:        money.Zero,
		PriorYearTaxPaid:       money.Zero,
		PriorYearInpsPaid:      money.Zero,
		MinThreshold:           decimal.RequireFromString("52.00"),
		SinglePaymentThreshold: decimal.RequireFromString("258.00"),
	}
}

// TaxSettingsPatch holds the editable settings; nil means unchanged.
type TaxSettingsPatch struct {
	Regime                 *TaxRegime       `json:"regime,omitempty"`
	Coefficient            *decimal.Decimal `json:"coefficient,omitempty"`
	InpsRate               *decimal.Decimal `json:"inps_rate,omitempty"`
	TaxRate                *decimal.Decimal `json:"tax_rate,omitempty"`
	AdvanceMethod          *AdvanceMethod   `json:"advance_method,omitempty"`
	PriorYearIncome        *decimal.Decimal `json:"prior_year_income,omitempty"`
	PriorYearTaxPaid       *decimal.Decimal `json:"prior_year_tax_paid,omitempty"`
	PriorYearInpsPaid      *decimal.Decimal `json:"prior_year_inps_paid,omitempty"`
	MinThreshold           *decimal.Decimal `json:"min_threshold,omitempty"`
	SinglePaymentThreshold *decimal.Decimal `json:"single_payment_threshold,omitempty"`
	Notes                  *string          `json:"notes,omitempty"`
}

// Apply validates and copies the set fields onto s.
func (patch TaxSettingsPatch) Apply(s *TaxSettings) error {
	rates := []struct {
		name string
		v    *decimal.Decimal
		dst  *decimal.Decimal
	}{
		{"coefficient", patch.Coefficient, &s.Coefficient},
		{"inps_rate", patch.InpsRate, &s.InpsRate},
		{"tax_rate", patch.TaxRate, &s.TaxRate},
	}
	for _, r := range rates {
		if r.v == nil {
			continue
		}
		if r.v.IsNegative() || r.v.GreaterThan(decimal.NewFromInt(1)) {
			return Invalidf("%s must be between 0 and 1", r.name)
		}
		*r.dst = *r.v
	}

	amounts := []struct {
		name string
		v    *decimal.Decimal
		dst  *decimal.Decimal
	}{
		{"prior_year_income", patch.PriorYearIncome, &s.PriorYearIncome},
		{"prior_year_tax_paid", patch.PriorYearTaxPaid, &s.PriorYearTaxPaid},
		{"prior_year_inps_paid", patch.PriorYearInpsPaid, &s.PriorYearInpsPaid},
		{"min_threshold", patch.MinThreshold, &s.MinThreshold},
		{"single_payment_threshold", patch.SinglePaymentThreshold, &s.SinglePaymentThreshold},
	}
	for _, a := range amounts {
		if a.v == nil {
			continue
		}
		if a.v.IsNegative() {
			return Invalidf("%s must be >= 0", a.name)
		}
		*a.dst = money.Round(*a.v)
	}

	if patch.AdvanceMethod != nil {
		if !patch.AdvanceMethod.Valid() {
			return Invalidf("unknown advance method %q", *patch.AdvanceMethod)
		}
		s.AdvanceMethod = *patch.AdvanceMethod
	}
	if patch.Regime != nil {
		s.Regime = *patch.Regime
	}
	if patch.Notes != nil {
		s.Notes = *patch.Notes
	}
	return nil
}

// TaxBreakdown is the result of the forfettario computation.
type TaxBreakdown struct {
	GrossIncome      decimal.Decimal `json:"gross_income"`
	TaxableIncome    decimal.Decimal `json:"taxable_income"`
	Inps             decimal.Decimal `json:"inps"`
	IrpefBase        decimal.Decimal `json:"irpef_base"`
	Irpef            decimal.Decimal `json:"irpef"`
	TotalTax         decimal.Decimal `json:"total_tax"`
	NetIncome        decimal.Decimal `json:"net_income"`
	EffectiveRate    decimal.Decimal `json:"effective_rate"`
	MonthlyProvision decimal.Decimal `json:"monthly_provision"`
}

// TaxDeadline is a scheduled F24 payment
type TaxDeadline struct {
	ID               int64           `json:"id"`
	Year             int             `json:"year"`
	Type             DeadlineType    `json:"deadline_type"`
	Name             string          `json:"name"`
	DueDate          time.Time       `json:"due_date"`
	AmountDue        decimal.Decimal `json:"amount_due"`
	AmountPaid       decimal.Decimal `json:"amount_paid"`
	InstallmentsPaid int             `json:"installments_paid"`
	PillarID         *int64          `json:"pillar_id,omitempty"`
	IsCalculated     bool            `json:"is_calculated"`
	IsManualOverride bool            `json:"is_manual_override"`
	Notes            string          `json:"notes,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Remaining is amount_due - amount_paid. Overpayment makes it negative.
func (d TaxDeadline) Remaining() decimal.Decimal {
	return d.AmountDue.Sub(d.AmountPaid)
}

// IsPaid reports amount_paid >= amount_due.
func (d TaxDeadline) IsPaid() bool {
	return d.AmountPaid.GreaterThanOrEqual(d.AmountDue)
}

// DaysUntil returns whole days from today to the due date.
func (d TaxDeadline) DaysUntil(today time.Time) int {
	return int(Date(d.DueDate).Sub(Date(today)).Hours() / 24)
}

// TaxDeadlinePatch is a manual override of a deadline.
type TaxDeadlinePatch struct {
	AmountDue  *decimal.Decimal `json:"amount_due,omitempty"`
	AmountPaid *decimal.Decimal `json:"amount_paid,omitempty"`
	DueDate    *time.Time       `json:"due_date,omitempty"`
	Notes      *string          `json:"notes,omitempty"`
}

// Apply copies the set fields onto d. Changing what is owed or when marks the
// deadline as manually overridden.
func (patch TaxDeadlinePatch) Apply(d *TaxDeadline) error {
	if patch.AmountDue != nil {
		if patch.AmountDue.IsNegative() {
			return Invalidf("amount_due must be >= 0")
		}
		d.AmountDue = money.Round(*patch.AmountDue)
		d.IsManualOverride = true
	}
	if patch.DueDate != nil {
		d.DueDate = Date(*patch.DueDate)
		d.IsManualOverride = true
	}
	if patch.AmountPaid != nil {
		if patch.AmountPaid.IsNegative() {
			return Invalidf("amount_paid must be >= 0")
		}
		d.AmountPaid = money.Round(*patch.AmountPaid)
	}
	if patch.Notes != nil {
		d.Notes = *patch.Notes
	}
	return nil
}
