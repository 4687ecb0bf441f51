package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ashmitsharp/contaspiccioli-api/internal/database"
	"github.com/ashmitsharp/contaspiccioli-api/internal/logger"
	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/ashmitsharp/contaspiccioli-api/internal/money"
	"github.com/shopspring/decimal"
)

var (
	historicInpsShare = decimal.RequireFromString("0.80")
	twelve            = decimal.NewFromInt(12)
	two               = decimal.NewFromInt(2)
)

// CalculateTax computes the forfettario breakdown for a gross income. Every
// step is rounded to cents before the next one reads it.
func CalculateTax(gross decimal.Decimal, settings models.TaxSettings) models.TaxBreakdown {
	gross = money.Round(gross)
	taxable := money.Round(gross.Mul(settings.Coefficient))
	inps := money.Round(taxable.Mul(settings.InpsRate))
	irpefBase := taxable.Sub(inps)
	irpef := money.Round(irpefBase.Mul(settings.TaxRate))
	total := inps.Add(irpef)

	return models.TaxBreakdown{
		GrossIncome:      gross,
		TaxableIncome:    taxable,
		Inps:             inps,
		IrpefBase:        irpefBase,
		Irpef:            irpef,
		TotalTax:         total,
		NetIncome:        gross.Sub(total),
		EffectiveRate:    money.Percent(total, gross, money.Zero),
		MonthlyProvision: money.Div(total, twelve),
	}
}

// TotalAdvance is the advance owed for the year under the configured method.
func TotalAdvance(estimatedIncome decimal.Decimal, settings models.TaxSettings) decimal.Decimal {
	if settings.AdvanceMethod == models.AdvanceProjected {
		return CalculateTax(estimatedIncome, settings).TotalTax
	}
	inps := money.Round(settings.PriorYearInpsPaid.Mul(historicInpsShare))
	return settings.PriorYearTaxPaid.Add(inps)
}

// BuildDeadlines derives the F24 schedule for year from the advance total:
//
//	advance <  min_threshold             no deadlines
//	advance <  single_payment_threshold  one payment on November 30
//	otherwise                            half on July 16, the rest on November 30
func BuildDeadlines(year int, advance decimal.Decimal, settings models.TaxSettings, pillarID *int64) []models.TaxDeadline {
	if advance.LessThan(settings.MinThreshold) {
		return nil
	}

	november := models.NewDate(year, time.November, 30)
	if advance.LessThan(settings.SinglePaymentThreshold) {
		return []models.TaxDeadline{{
			Year:         year,
			Type:         models.DeadlineAcconto2,
			Name:         fmt.Sprintf("Acconto Unico %d", year),
			DueDate:      november,
			AmountDue:    advance,
			AmountPaid:   money.Zero,
			PillarID:     pillarID,
			IsCalculated: true,
		}}
	}

	first := money.Div(advance, two)
	return []models.TaxDeadline{
		{
			Year:         year,
			Type:         models.DeadlineSaldo,
			Name:         fmt.Sprintf("Saldo %d + 1° Acconto %d", year-1, year),
			DueDate:      models.NewDate(year, time.July, 16),
			AmountDue:    first,
			AmountPaid:   money.Zero,
			PillarID:     pillarID,
			IsCalculated: true,
		},
		{
			Year:         year,
			Type:         models.DeadlineAcconto2,
			Name:         fmt.Sprintf("2° Acconto %d", year),
			DueDate:      november,
			AmountDue:    advance.Sub(first),
			AmountPaid:   money.Zero,
			PillarID:     pillarID,
			IsCalculated: true,
		},
	}
}

// DeadlineStatus is a deadline with its countdown.
type DeadlineStatus struct {
	models.TaxDeadline
	Remaining     decimal.Decimal `json:"remaining"`
	IsPaid        bool            `json:"is_paid"`
	DaysRemaining int             `json:"days_remaining"`
}

// TaxCoverage compares the pillar 3 reserve with what is still owed.
type TaxCoverage struct {
	Accrued              decimal.Decimal  `json:"accrued"`
	TotalOwed            decimal.Decimal  `json:"total_owed"`
	CoveragePercentage   decimal.Decimal  `json:"coverage_percentage"`
	Shortfall            decimal.Decimal  `json:"shortfall"`
	Surplus              decimal.Decimal  `json:"surplus"`
	NextDeadline         *DeadlineStatus  `json:"next_deadline,omitempty"`
	MonthlyReserveNeeded decimal.Decimal  `json:"monthly_reserve_needed"`
	Deadlines            []DeadlineStatus `json:"deadlines"`
}

// TaxService owns tax settings and the deadline schedule
type TaxService struct {
	store database.Store
	now   func() time.Time
}

// NewTaxService creates a tax service over store
func NewTaxService(store database.Store) *TaxService {
	return &TaxService{store: store, now: time.Now}
}

// WithClock replaces the clock used for "today".
func (s *TaxService) WithClock(now func() time.Time) *TaxService {
	s.now = now
	return s
}

func (s *TaxService) today() time.Time {
	return models.Date(s.now())
}

// GetSettings returns the settings of year, creating the defaults on first use.
func (s *TaxService) GetSettings(ctx context.Context, year int) (*models.TaxSettings, error) {
	return getOrCreateTaxSettings(ctx, s.store, year)
}

func getOrCreateTaxSettings(ctx context.Context, store database.Store, year int) (*models.TaxSettings, error) {
	ts, err := store.GetTaxSettings(ctx, year)
	if err == nil {
		return ts, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	defaults := models.DefaultTaxSettings(year)
	if err := store.SaveTaxSettings(ctx, &defaults); err != nil {
		return nil, fmt.Errorf("failed to create tax settings for %d: %w", year, err)
	}
	return &defaults, nil
}

// UpdateSettings applies patch to the settings of year.
func (s *TaxService) UpdateSettings(ctx context.Context, year int, patch models.TaxSettingsPatch) (*models.TaxSettings, error) {
	ts, err := s.GetSettings(ctx, year)
	if err != nil {
		return nil, err
	}
	if err := patch.Apply(ts); err != nil {
		return nil, err
	}
	if err := s.store.SaveTaxSettings(ctx, ts); err != nil {
		return nil, fmt.Errorf("failed to save tax settings for %d: %w", year, err)
	}
	return ts, nil
}

// Calculate runs CalculateTax with the settings of year.
func (s *TaxService) Calculate(ctx context.Context, gross decimal.Decimal, year int) (models.TaxBreakdown, error) {
	if gross.IsNegative() {
		return models.TaxBreakdown{}, models.Invalidf("gross income must be >= 0")
	}
	ts, err := s.GetSettings(ctx, year)
	if err != nil {
		return models.TaxBreakdown{}, err
	}
	return CalculateTax(gross, *ts), nil
}

// ListDeadlines returns the deadlines of year by due date.
func (s *TaxService) ListDeadlines(ctx context.Context, year int) ([]DeadlineStatus, error) {
	deadlines, err := s.store.ListTaxDeadlines(ctx, database.DeadlineFilter{Year: year})
	if err != nil {
		return nil, err
	}
	return s.statuses(deadlines), nil
}

func (s *TaxService) statuses(deadlines []models.TaxDeadline) []DeadlineStatus {
	today := s.today()
	out := make([]DeadlineStatus, 0, len(deadlines))
	for _, d := range deadlines {
		out = append(out, DeadlineStatus{
			TaxDeadline:   d,
			Remaining:     d.Remaining(),
			IsPaid:        d.IsPaid(),
			DaysRemaining: d.DaysUntil(today),
		})
	}
	return out
}

// GenerateDeadlines replaces the deadlines of year with a fresh schedule.
// The delete and the inserts commit together.
func (s *TaxService) GenerateDeadlines(ctx context.Context, year int, estimatedIncome decimal.Decimal) ([]models.TaxDeadline, error) {
	log := logger.FromContext(ctx)

	var deadlines []models.TaxDeadline
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		ts, err := getOrCreateTaxSettings(ctx, tx, year)
		if err != nil {
			return err
		}

		var pillarID *int64
		p3, err := tx.GetPillarByNumber(ctx, models.PillarPlanned)
		switch {
		case err == nil:
			pillarID = &p3.ID
		case !errors.Is(err, models.ErrNotFound):
			return err
		}

		advance := TotalAdvance(estimatedIncome, *ts)
		deadlines = BuildDeadlines(year, advance, *ts, pillarID)
		if err := tx.ReplaceTaxDeadlines(ctx, year, deadlines); err != nil {
			return err
		}

		log.Info().
			Int("year", year).
			Str("method", string(ts.AdvanceMethod)).
			Str("advance", advance.StringFixed(2)).
			Int("deadlines", len(deadlines)).
			Msg("tax deadlines generated")
		return nil
	})
	if err != nil {
		return nil, err
	}
	if deadlines == nil {
		deadlines = []models.TaxDeadline{}
	}
	return deadlines, nil
}

// PayDeadline records a payment. Overpayment is accepted and leaves a
// negative remaining.
func (s *TaxService) PayDeadline(ctx context.Context, id int64, amount decimal.Decimal) (*models.TaxDeadline, error) {
	if !amount.IsPositive() {
		return nil, models.Invalidf("payment amount must be > 0")
	}

	var paid *models.TaxDeadline
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		d, err := tx.GetTaxDeadline(ctx, id)
		if err != nil {
			return err
		}
		d.AmountPaid = money.Round(d.AmountPaid.Add(amount))
		d.InstallmentsPaid++
		if err := tx.UpdateTaxDeadline(ctx, d); err != nil {
			return err
		}
		paid = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

// UpdateDeadline applies a manual override.
func (s *TaxService) UpdateDeadline(ctx context.Context, id int64, patch models.TaxDeadlinePatch) (*models.TaxDeadline, error) {
	d, err := s.store.GetTaxDeadline(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := patch.Apply(d); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTaxDeadline(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// MonthlyReserve is what to set aside each month to cover the deadlines of
// year that are not yet due.
func (s *TaxService) MonthlyReserve(ctx context.Context, year int) (decimal.Decimal, error) {
	today := s.today()
	deadlines, err := s.store.ListTaxDeadlines(ctx, database.DeadlineFilter{Year: year, DueFrom: today})
	if err != nil {
		return money.Zero, err
	}
	if len(deadlines) == 0 {
		return money.Zero, nil
	}

	total := money.Zero
	for _, d := range deadlines {
		total = total.Add(d.Remaining())
	}
	last := deadlines[len(deadlines)-1].DueDate
	return money.Div(total, monthsUntil(today, last)), nil
}

// Coverage compares the pillar 3 balance with every future deadline.
func (s *TaxService) Coverage(ctx context.Context) (*TaxCoverage, error) {
	today := s.today()

	accrued := money.Zero
	p3, err := s.store.GetPillarByNumber(ctx, models.PillarPlanned)
	switch {
	case err == nil:
		accrued = p3.CurrentBalance
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	deadlines, err := s.store.ListTaxDeadlines(ctx, database.DeadlineFilter{DueFrom: today})
	if err != nil {
		return nil, err
	}

	owed := money.Zero
	for _, d := range deadlines {
		owed = owed.Add(d.Remaining())
	}

	cov := &TaxCoverage{
		Accrued:              accrued,
		TotalOwed:            owed,
		CoveragePercentage:   money.Hundred,
		Shortfall:            money.NonNegative(owed.Sub(accrued)),
		Surplus:              money.NonNegative(accrued.Sub(owed)),
		MonthlyReserveNeeded: money.Zero,
		Deadlines:            s.statuses(deadlines),
	}
	if owed.IsPositive() {
		cov.CoveragePercentage = money.Percent(accrued, owed, money.Hundred)
	}
	if len(cov.Deadlines) > 0 {
		next := cov.Deadlines[0]
		cov.NextDeadline = &next
		if cov.Shortfall.IsPositive() {
			last := deadlines[len(deadlines)-1].DueDate
			cov.MonthlyReserveNeeded = money.Div(cov.Shortfall, monthsUntil(today, last))
		}
	}
	return cov, nil
}

// monthsUntil counts calendar months from today to due, at least one.
func monthsUntil(today, due time.Time) decimal.Decimal {
	months := models.MonthsBetween(today, due)
	if months < 1 {
		months = 1
	}
	return decimal.NewFromInt(int64(months))
}
