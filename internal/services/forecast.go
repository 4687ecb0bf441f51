package services

import (
	"context"
	"errors"
	"time"

	"github.com/ashmitsharp/contaspiccioli-api/internal/database"
	"github.com/ashmitsharp/contaspiccioli-api/internal/logger"
	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/ashmitsharp/contaspiccioli-api/internal/money"
	"github.com/shopspring/decimal"
)

// Comparison status values.
const (
	StatusOnTrack     = "on_track"
	StatusUnderBudget = "under_budget"
	StatusOverBudget  = "over_budget"
)

// onTrackTolerance is the absolute variance, in euros, still reported as on track.
var onTrackTolerance = decimal.NewFromInt(50)

// LineComparison is one row of the planned-vs-actual view.
type LineComparison struct {
	CategoryID   int64           `json:"category_id"`
	CategoryName string          `json:"category_name"`
	CategoryIcon string          `json:"category_icon"`
	Expected     decimal.Decimal `json:"expected"`
	Actual       decimal.Decimal `json:"actual"`
	Variance     decimal.Decimal `json:"variance"`
	IsOverBudget bool            `json:"is_over_budget"`
}

func newLineComparison(categoryID int64, name, icon string, expected, actual decimal.Decimal) LineComparison {
	return LineComparison{
		CategoryID:   categoryID,
		CategoryName: name,
		CategoryIcon: icon,
		Expected:     expected,
		Actual:       actual,
		Variance:     actual.Sub(expected),
		IsOverBudget: actual.GreaterThan(expected),
	}
}

// ForecastComparison is the month view that sets every line against its actual.
type ForecastComparison struct {
	Year               int              `json:"year"`
	Month              int              `json:"month"`
	MonthName          string           `json:"month_name"`
	OpeningBalance     decimal.Decimal  `json:"opening_balance"`
	Income             LineComparison   `json:"income"`
	FixedCosts         []LineComparison `json:"fixed_costs"`
	VariableCosts      []LineComparison `json:"variable_costs"`
	TotalExpectedCosts decimal.Decimal  `json:"total_expected_costs"`
	TotalActualCosts   decimal.Decimal  `json:"total_actual_costs"`
	ExpectedBalance    decimal.Decimal  `json:"expected_balance"`
	ActualBalance      decimal.Decimal  `json:"actual_balance"`
	BalanceVariance    decimal.Decimal  `json:"balance_variance"`
	TotalVariance      decimal.Decimal  `json:"total_variance"`
	Status             string           `json:"status"`
}

// classifyVariance maps a total variance onto a comparison status.
func classifyVariance(v decimal.Decimal) string {
	switch {
	case v.Abs().LessThan(onTrackTolerance):
		return StatusOnTrack
	case v.IsPositive():
		return StatusUnderBudget
	default:
		return StatusOverBudget
	}
}

type ForecastService struct {
	store database.Store
	now   func() time.Time
}

func NewForecastService(store database.Store) *ForecastService {
	return &ForecastService{store: store, now: time.Now}
}

// WithClock overrides the time source used to stamp synced actuals.
func (s *ForecastService) WithClock(now func() time.Time) *ForecastService {
	s.now = now
	return s
}

// GetOrCreateMonth returns the stored month or creates it. A new month opens
// with opening when given, otherwise with the closing balance of the month
// before it (zero when that month does not exist).
func (s *ForecastService) GetOrCreateMonth(ctx context.Context, year, month int, opening *decimal.Decimal) (*models.ForecastMonth, error) {
	var out *models.ForecastMonth
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		m, err := getOrCreateMonth(ctx, tx, year, month, opening)
		out = m
		return err
	})
	return out, err
}

func getOrCreateMonth(ctx context.Context, store database.Store, year, month int, opening *decimal.Decimal) (*models.ForecastMonth, error) {
	if month < 1 || month > 12 {
		return nil, models.Invalidf("month must be between 1 and 12, got %d", month)
	}

	m, err := store.GetForecastMonth(ctx, year, month)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	balance := money.Zero
	if opening != nil {
		balance = money.Round(*opening)
	} else {
		py, pm := models.PreviousMonth(year, month)
		prev, err := store.GetForecastMonth(ctx, py, pm)
		switch {
		case err == nil:
			balance = prev.ClosingBalance()
		case !errors.Is(err, models.ErrNotFound):
			return nil, err
		}
	}

	m = &models.ForecastMonth{
		Year:                  year,
		Month:                 month,
		OpeningBalance:        balance,
		ExpectedIncome:        money.Zero,
		ActualIncome:          money.Zero,
		ExpectedFixedCosts:    money.Zero,
		ActualFixedCosts:      money.Zero,
		ExpectedVariableCosts: money.Zero,
		ActualVariableCosts:   money.Zero,
	}
	if err := store.CreateForecastMonth(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// GenerateYearly rebuilds the twelve months of year from the active category
// budgets and the tax deadlines of the year. Existing lines are replaced, and
// each month opens with the expected balance of the month before.
func (s *ForecastService) GenerateYearly(ctx context.Context, year int, baseIncome, opening decimal.Decimal) ([]models.ForecastMonth, error) {
	if baseIncome.IsNegative() {
		return nil, models.Invalidf("base_income must be >= 0")
	}
	log := logger.FromContext(ctx)

	months := make([]models.ForecastMonth, 0, 12)
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		categories, err := tx.ListCategories(ctx, database.CategoryFilter{ActiveOnly: true})
		if err != nil {
			return err
		}
		deadlines, err := tx.ListTaxDeadlines(ctx, database.DeadlineFilter{Year: year})
		if err != nil {
			return err
		}

		balance := money.Round(opening)
		for month := 1; month <= 12; month++ {
			m, err := getOrCreateMonth(ctx, tx, year, month, &balance)
			if err != nil {
				return err
			}

			lines := buildLines(month, baseIncome, categories, deadlines)
			if err := tx.ReplaceForecastLines(ctx, m.ID, lines); err != nil {
				return err
			}

			m.OpeningBalance = balance
			m.ExpectedIncome, m.ExpectedFixedCosts, m.ExpectedVariableCosts = expectedTotals(lines)
			if err := tx.UpdateForecastMonth(ctx, m); err != nil {
				return err
			}
			m.Lines = lines

			balance = m.ExpectedBalance()
			months = append(months, *m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("year", year).
		Str("base_income", baseIncome.StringFixed(2)).
		Str("opening_balance", opening.StringFixed(2)).
		Str("closing_balance", months[len(months)-1].ExpectedBalance().StringFixed(2)).
		Msg("yearly forecast generated")
	return months, nil
}

// buildLines derives the lines of one month: income, fixed costs, the tax
// deadlines due that month, then variable costs.
func buildLines(month int, baseIncome decimal.Decimal, categories []models.Category, deadlines []models.TaxDeadline) []models.ForecastLine {
	var income, fixed, variable []models.ForecastLine

	// base_income stands in for the income budgets only when none is set,
	// and then it goes on the first income category.
	useBase := true
	for _, c := range categories {
		if c.Type == models.CategoryIncome && c.MonthlyBudget.IsPositive() {
			useBase = false
			break
		}
	}

	for _, c := range categories {
		amount := c.MonthlyBudget
		if c.Type == models.CategoryIncome && useBase {
			amount = baseIncome
			useBase = false
		}
		if !amount.IsPositive() {
			continue
		}

		id := c.ID
		line := models.ForecastLine{
			CategoryID:     &id,
			LineType:       c.Type.LineType(),
			Description:    c.Name,
			ExpectedAmount: money.Round(amount),
			ActualAmount:   money.Zero,
			IsRecurring:    true,
		}
		switch line.LineType {
		case models.LineIncome:
			income = append(income, line)
		case models.LineFixedCost:
			fixed = append(fixed, line)
		default:
			variable = append(variable, line)
		}
	}

	for _, dl := range deadlines {
		if int(dl.DueDate.Month()) != month {
			continue
		}
		id := dl.ID
		fixed = append(fixed, models.ForecastLine{
			TaxDeadlineID:  &id,
			LineType:       models.LineFixedCost,
			Description:    dl.Name,
			ExpectedAmount: dl.AmountDue,
			ActualAmount:   money.Zero,
		})
	}

	lines := make([]models.ForecastLine, 0, len(income)+len(fixed)+len(variable))
	lines = append(lines, income...)
	lines = append(lines, fixed...)
	return append(lines, variable...)
}

func expectedTotals(lines []models.ForecastLine) (income, fixed, variable decimal.Decimal) {
	income, fixed, variable = money.Zero, money.Zero, money.Zero
	for _, l := range lines {
		switch l.LineType {
		case models.LineIncome:
			income = income.Add(l.ExpectedAmount)
		case models.LineFixedCost:
			fixed = fixed.Add(l.ExpectedAmount)
		case models.LineVariableCost:
			variable = variable.Add(l.ExpectedAmount)
		}
	}
	return income, fixed, variable
}

func actualTotals(lines []models.ForecastLine) (income, fixed, variable decimal.Decimal) {
	income, fixed, variable = money.Zero, money.Zero, money.Zero
	for _, l := range lines {
		switch l.LineType {
		case models.LineIncome:
			income = income.Add(l.ActualAmount)
		case models.LineFixedCost:
			fixed = fixed.Add(l.ActualAmount)
		case models.LineVariableCost:
			variable = variable.Add(l.ActualAmount)
		}
	}
	return income, fixed, variable
}

// GetYear returns the stored months of year. Missing months are not created.
func (s *ForecastService) GetYear(ctx context.Context, year int) ([]models.ForecastMonth, error) {
	return s.store.ListForecastMonths(ctx, year)
}

// GetMonth returns a stored month with its lines.
func (s *ForecastService) GetMonth(ctx context.Context, year, month int) (*models.ForecastMonth, error) {
	m, err := s.store.GetForecastMonth(ctx, year, month)
	if err != nil {
		return nil, err
	}
	lines, err := s.store.ListForecastLines(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	m.Lines = lines
	return m, nil
}

// Comparison sets the expected lines of a month against their actuals.
func (s *ForecastService) Comparison(ctx context.Context, year, month int) (*ForecastComparison, error) {
	m, err := s.GetMonth(ctx, year, month)
	if err != nil {
		return nil, err
	}
	categories, err := s.store.ListCategories(ctx, database.CategoryFilter{})
	if err != nil {
		return nil, err
	}
	icons := make(map[int64]string, len(categories))
	for _, c := range categories {
		icons[c.ID] = c.Icon
	}

	expectedIncome, actualIncome := money.Zero, money.Zero
	fixed := make([]LineComparison, 0)
	variable := make([]LineComparison, 0)
	for _, l := range m.Lines {
		var catID int64
		icon := ""
		if l.CategoryID != nil {
			catID = *l.CategoryID
			icon = icons[catID]
		}

		switch l.LineType {
		case models.LineIncome:
			expectedIncome = expectedIncome.Add(l.ExpectedAmount)
			actualIncome = actualIncome.Add(l.ActualAmount)
		case models.LineFixedCost:
			if icon == "" {
				icon = "📋"
			}
			fixed = append(fixed, newLineComparison(catID, l.Description, icon, l.ExpectedAmount, l.ActualAmount))
		case models.LineVariableCost:
			if icon == "" {
				icon = "📦"
			}
			variable = append(variable, newLineComparison(catID, l.Description, icon, l.ExpectedAmount, l.ActualAmount))
		}
	}

	expectedCosts := m.ExpectedTotalCosts()
	actualCosts := m.ActualTotalCosts()
	totalVariance := actualIncome.Sub(expectedIncome).Sub(actualCosts.Sub(expectedCosts))

	return &ForecastComparison{
		Year:               year,
		Month:              month,
		MonthName:          m.MonthName(),
		OpeningBalance:     m.OpeningBalance,
		Income:             newLineComparison(0, "Totale Entrate", "💰", expectedIncome, actualIncome),
		FixedCosts:         fixed,
		VariableCosts:      variable,
		TotalExpectedCosts: expectedCosts,
		TotalActualCosts:   actualCosts,
		ExpectedBalance:    m.ExpectedBalance(),
		ActualBalance:      m.ActualBalance(),
		BalanceVariance:    m.Variance(),
		TotalVariance:      totalVariance,
		Status:             classifyVariance(totalVariance),
	}, nil
}

// SyncActuals writes the month's categorized transaction totals onto its
// lines and refreshes the actual totals. Uncategorized transactions and
// lines without a category are left alone.
func (s *ForecastService) SyncActuals(ctx context.Context, year, month int) (*models.ForecastMonth, error) {
	var out *models.ForecastMonth
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		m, err := getOrCreateMonth(ctx, tx, year, month, nil)
		if err != nil {
			return err
		}

		txns, err := tx.ListTransactions(ctx, models.TransactionFilter{Year: year, Month: month})
		if err != nil {
			return err
		}
		totals := make(map[int64]decimal.Decimal)
		for _, t := range txns {
			if t.CategoryID == nil {
				continue
			}
			totals[*t.CategoryID] = totals[*t.CategoryID].Add(t.Amount.Abs())
		}

		lines, err := tx.ListForecastLines(ctx, m.ID)
		if err != nil {
			return err
		}
		for i := range lines {
			l := &lines[i]
			if l.CategoryID == nil {
				continue
			}
			total, ok := totals[*l.CategoryID]
			if !ok || total.Equal(l.ActualAmount) {
				continue
			}
			l.ActualAmount = total
			if err := tx.UpdateForecastLine(ctx, l); err != nil {
				return err
			}
		}

		m.ActualIncome, m.ActualFixedCosts, m.ActualVariableCosts = actualTotals(lines)
		synced := s.now().UTC()
		m.ActualsSyncedAt = &synced
		if err := tx.UpdateForecastMonth(ctx, m); err != nil {
			return err
		}
		m.Lines = lines
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int("year", year).
		Int("month", month).
		Str("actual_balance", out.ActualBalance().StringFixed(2)).
		Msg("forecast actuals synced")
	return out, nil
}
