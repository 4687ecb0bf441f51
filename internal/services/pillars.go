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

// PillarStatus is a pillar with its derived progress figures.
type PillarStatus struct {
	ID                   int64           `json:"id"`
	Number               int             `json:"number"`
	Name                 string          `json:"name"`
	DisplayName          string          `json:"display_name"`
	CurrentBalance       decimal.Decimal `json:"current_balance"`
	TargetBalance        decimal.Decimal `json:"target_balance"`
	CompletionPercentage decimal.Decimal `json:"completion_percentage"`
	IsFunded             bool            `json:"is_funded"`
	Shortfall            decimal.Decimal `json:"shortfall"`
	Surplus              decimal.Decimal `json:"surplus"`
	Instrument           string          `json:"instrument"`
	AccountName          string          `json:"account_name"`
	Priority             int             `json:"priority"`
}

func statusOf(p models.Pillar) PillarStatus {
	return PillarStatus{
		ID:                   p.ID,
		Number:               p.Number,
		Name:                 p.Name,
		DisplayName:          p.DisplayName,
		CurrentBalance:       p.CurrentBalance,
		TargetBalance:        p.TargetBalance,
		CompletionPercentage: p.CompletionPercentage(),
		IsFunded:             p.IsFunded,
		Shortfall:            p.Shortfall(),
		Surplus:              p.Surplus(),
		Instrument:           p.Instrument,
		AccountName:          p.AccountName,
		Priority:             p.Priority,
	}
}

// PillarSummary aggregates every pillar for the dashboard.
type PillarSummary struct {
	Pillars           []PillarStatus  `json:"pillars"`
	TotalBalance      decimal.Decimal `json:"total_balance"`
	TotalTarget       decimal.Decimal `json:"total_target"`
	OverallCompletion decimal.Decimal `json:"overall_completion"`
	AllFunded         bool            `json:"all_funded"`
}

// AllocationSuggestion is one step of a surplus allocation plan.
type AllocationSuggestion struct {
	PillarID   int64           `json:"pillar_id"`
	PillarName string          `json:"pillar_name"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	Priority   int             `json:"priority"`
}

// TransferResult holds both pillars after a transfer.
type TransferResult struct {
	From     models.Pillar         `json:"from"`
	To       models.Pillar         `json:"to"`
	Transfer models.PillarTransfer `json:"transfer"`
}

// BudgetConfig holds the contribution rates used by MonthlyBudget.
type BudgetConfig struct {
	InvestmentPercentage  decimal.Decimal
	EmergencyContribution decimal.Decimal
	DefaultMonthlyIncome  decimal.Decimal
}

// DefaultBudgetConfig is 10% to investments and 5% to an underfunded
// emergency fund.
func DefaultBudgetConfig() BudgetConfig {
	return BudgetConfig{
		InvestmentPercentage:  decimal.RequireFromString("0.10"),
		EmergencyContribution: decimal.RequireFromString("0.05"),
		DefaultMonthlyIncome:  decimal.NewFromInt(3500),
	}
}

// MonthlyBudget shows how one month of income is split across the pillars.
type MonthlyBudget struct {
	GrossIncome            decimal.Decimal `json:"gross_income"`
	TaxProvision           decimal.Decimal `json:"tax_provision"`
	EmergencyContribution  decimal.Decimal `json:"emergency_contribution"`
	InvestmentContribution decimal.Decimal `json:"investment_contribution"`
	AvailableForLiquidity  decimal.Decimal `json:"available_for_p1"`
	FixedCosts             decimal.Decimal `json:"fixed_costs"`
	VariableBudget         decimal.Decimal `json:"variable_budget"`
	TaxRateEffective       decimal.Decimal `json:"tax_rate_effective"`
	InvestmentRate         decimal.Decimal `json:"investment_rate"`
	EmergencyRate          decimal.Decimal `json:"emergency_rate"`
}

// PillarService manages the four savings pillars
type PillarService struct {
	store database.Store
	now   func() time.Time
}

// NewPillarService creates a pillar service over store
func NewPillarService(store database.Store) *PillarService {
	return &PillarService{store: store, now: time.Now}
}

// WithClock replaces the clock used for "today".
func (s *PillarService) WithClock(now func() time.Time) *PillarService {
	s.now = now
	return s
}

func (s *PillarService) today() time.Time {
	return models.Date(s.now())
}

// List returns the pillars ordered by number.
func (s *PillarService) List(ctx context.Context) ([]models.Pillar, error) {
	return s.store.ListPillars(ctx)
}

// Get returns a single pillar.
func (s *PillarService) Get(ctx context.Context, id int64) (*models.Pillar, error) {
	return s.store.GetPillar(ctx, id)
}

// Status returns one status entry per pillar ordered by number.
func (s *PillarService) Status(ctx context.Context) ([]PillarStatus, error) {
	pillars, err := s.store.ListPillars(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PillarStatus, 0, len(pillars))
	for _, p := range pillars {
		out = append(out, statusOf(p))
	}
	return out, nil
}

// Summary totals balances and targets across the pillars.
func (s *PillarService) Summary(ctx context.Context) (*PillarSummary, error) {
	statuses, err := s.Status(ctx)
	if err != nil {
		return nil, err
	}

	sum := &PillarSummary{
		Pillars:      statuses,
		TotalBalance: money.Zero,
		TotalTarget:  money.Zero,
		AllFunded:    true,
	}
	for _, st := range statuses {
		sum.TotalBalance = sum.TotalBalance.Add(st.CurrentBalance)
		sum.TotalTarget = sum.TotalTarget.Add(st.TargetBalance)
		sum.AllFunded = sum.AllFunded && st.IsFunded
	}
	sum.OverallCompletion = money.Zero
	if sum.TotalTarget.IsPositive() {
		sum.OverallCompletion = money.Percent(sum.TotalBalance, sum.TotalTarget, money.Zero)
	}
	return sum, nil
}

// Update applies an edit to the pillar's descriptive fields and target.
func (s *PillarService) Update(ctx context.Context, id int64, patch models.PillarPatch) (*models.Pillar, error) {
	var updated *models.Pillar
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		p, err := tx.GetPillarForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := patch.Apply(p); err != nil {
			return err
		}
		if err := tx.UpdatePillar(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Reconcile overwrites the balance with the figure read from the bank.
func (s *PillarService) Reconcile(ctx context.Context, id int64, balance decimal.Decimal) (*models.Pillar, error) {
	var updated *models.Pillar
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		p, err := tx.GetPillarForUpdate(ctx, id)
		if err != nil {
			return err
		}
		p.CurrentBalance = money.Round(balance)
		p.RefreshFunded()
		if err := tx.UpdatePillar(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int64("pillar_id", id).
		Str("balance", updated.CurrentBalance.StringFixed(2)).
		Msg("pillar reconciled")
	return updated, nil
}

// Transfer moves amount between two pillars in one transaction. Either both
// balances change and the transfer is recorded, or nothing does.
func (s *PillarService) Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal, notes string) (*TransferResult, error) {
	amount = money.Round(amount)
	if !amount.IsPositive() {
		return nil, models.Invalidf("transfer amount must be positive")
	}
	if fromID == toID {
		return nil, models.Invalidf("cannot transfer a pillar to itself")
	}

	var res TransferResult
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		// Lock in id order so two opposite transfers cannot deadlock.
		firstID, secondID := fromID, toID
		if secondID < firstID {
			firstID, secondID = secondID, firstID
		}
		first, err := tx.GetPillarForUpdate(ctx, firstID)
		if err != nil {
			return err
		}
		second, err := tx.GetPillarForUpdate(ctx, secondID)
		if err != nil {
			return err
		}
		from, to := first, second
		if from.ID != fromID {
			from, to = second, first
		}

		if from.CurrentBalance.LessThan(amount) {
			return &models.InsufficientFundsError{
				Pillar:    from.DisplayName,
				Balance:   from.CurrentBalance,
				Requested: amount,
			}
		}

		from.CurrentBalance = from.CurrentBalance.Sub(amount)
		to.CurrentBalance = to.CurrentBalance.Add(amount)
		from.RefreshFunded()
		to.RefreshFunded()

		if err := tx.UpdatePillar(ctx, from); err != nil {
			return err
		}
		if err := tx.UpdatePillar(ctx, to); err != nil {
			return err
		}

		record := models.PillarTransfer{FromPillarID: from.ID, ToPillarID: to.ID, Amount: amount, Notes: notes}
		if err := tx.CreatePillarTransfer(ctx, &record); err != nil {
			return err
		}

		res = TransferResult{From: *from, To: *to, Transfer: record}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int64("from", fromID).
		Int64("to", toID).
		Str("amount", amount.StringFixed(2)).
		Msg("pillar transfer")
	return &res, nil
}

// futureDeadlinesRemaining sums what is still owed on deadlines in [from, to).
// A zero to means no upper bound. Overpaid deadlines count as zero.
func futureDeadlinesRemaining(ctx context.Context, store database.Store, from, to time.Time) (decimal.Decimal, error) {
	deadlines, err := store.ListTaxDeadlines(ctx, database.DeadlineFilter{DueFrom: from, DueTo: to})
	if err != nil {
		return money.Zero, err
	}
	total := money.Zero
	for _, d := range deadlines {
		total = total.Add(money.NonNegative(d.Remaining()))
	}
	return total, nil
}

// CalculateTargets computes the target of every pillar keyed by pillar id.
// Pillar 4 keeps its user-defined target.
func (s *PillarService) CalculateTargets(ctx context.Context, averageMonthlyExpenses decimal.Decimal) (map[int64]decimal.Decimal, error) {
	return s.calculateTargets(ctx, s.store, averageMonthlyExpenses)
}

func (s *PillarService) calculateTargets(ctx context.Context, store database.Store, avg decimal.Decimal) (map[int64]decimal.Decimal, error) {
	pillars, err := store.ListPillars(ctx)
	if err != nil {
		return nil, err
	}

	targets := make(map[int64]decimal.Decimal, len(pillars))
	for _, p := range pillars {
		switch p.Number {
		case models.PillarLiquidity:
			months := decimal.NewFromInt(int64(p.TargetMonthsOr(models.DefaultLiquidityMonths)))
			targets[p.ID] = money.Round(avg.Mul(months))
		case models.PillarEmergency:
			months := decimal.NewFromInt(int64(p.TargetMonthsOr(models.DefaultEmergencyMonths)))
			targets[p.ID] = money.Round(avg.Mul(months))
		case models.PillarPlanned:
			taxes, err := futureDeadlinesRemaining(ctx, store, s.today(), time.Time{})
			if err != nil {
				return nil, err
			}
			expenses, err := store.ListPlannedExpenses(ctx, false)
			if err != nil {
				return nil, err
			}
			planned := money.Zero
			for _, e := range expenses {
				planned = planned.Add(money.NonNegative(e.Remaining()))
			}
			targets[p.ID] = taxes.Add(planned)
		default:
			targets[p.ID] = p.TargetBalance
		}
	}
	return targets, nil
}

// RecalculateTargets applies CalculateTargets and refreshes is_funded.
func (s *PillarService) RecalculateTargets(ctx context.Context, averageMonthlyExpenses decimal.Decimal) ([]models.Pillar, error) {
	if averageMonthlyExpenses.IsNegative() {
		return nil, models.Invalidf("average monthly expenses must be >= 0")
	}

	var pillars []models.Pillar
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		targets, err := s.calculateTargets(ctx, tx, averageMonthlyExpenses)
		if err != nil {
			return err
		}
		pillars, err = tx.ListPillars(ctx)
		if err != nil {
			return err
		}
		for i := range pillars {
			target, ok := targets[pillars[i].ID]
			if !ok {
				continue
			}
			pillars[i].TargetBalance = target
			pillars[i].RefreshFunded()
			if err := tx.UpdatePillar(ctx, &pillars[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pillars, nil
}

// SuggestAllocation splits a surplus greedily: the emergency fund gap first,
// then tax deadlines of the next three months not yet covered by pillar 3,
// then investments with whatever is left.
func (s *PillarService) SuggestAllocation(ctx context.Context, surplus decimal.Decimal) ([]AllocationSuggestion, error) {
	suggestions := []AllocationSuggestion{}
	remaining := money.Round(surplus)
	if !remaining.IsPositive() {
		return suggestions, nil
	}

	lookup := func(number int) (*models.Pillar, error) {
		p, err := s.store.GetPillarByNumber(ctx, number)
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return p, err
	}

	p2, err := lookup(models.PillarEmergency)
	if err != nil {
		return nil, err
	}
	if p2 != nil && p2.CurrentBalance.LessThan(p2.TargetBalance) {
		allocation := decimal.Min(remaining, p2.TargetBalance.Sub(p2.CurrentBalance))
		if allocation.IsPositive() {
			suggestions = append(suggestions, AllocationSuggestion{
				PillarID:   p2.ID,
				PillarName: p2.DisplayName,
				Amount:     allocation,
				Reason:     fmt.Sprintf("Fondo emergenza sotto target (%d%%)", p2.CompletionPercentage().Round(0).IntPart()),
				Priority:   1,
			})
			remaining = remaining.Sub(allocation)
		}
	}

	p3, err := lookup(models.PillarPlanned)
	if err != nil {
		return nil, err
	}
	if p3 != nil && remaining.IsPositive() {
		today := s.today()
		y, m := models.AddMonths(today.Year(), int(today.Month()), 3)
		windowEnd := models.NewDate(y, time.Month(m), 1)

		nearTotal, err := futureDeadlinesRemaining(ctx, s.store, today, windowEnd)
		if err != nil {
			return nil, err
		}
		if nearTotal.GreaterThan(p3.CurrentBalance) {
			allocation := decimal.Min(remaining, nearTotal.Sub(p3.CurrentBalance))
			if allocation.IsPositive() {
				suggestions = append(suggestions, AllocationSuggestion{
					PillarID:   p3.ID,
					PillarName: p3.DisplayName,
					Amount:     allocation,
					Reason:     fmt.Sprintf("Scadenze fiscali nei prossimi 3 mesi: %s", money.Euro(nearTotal)),
					Priority:   2,
				})
				remaining = remaining.Sub(allocation)
			}
		}
	}

	p4, err := lookup(models.PillarInvestments)
	if err != nil {
		return nil, err
	}
	if p4 != nil && remaining.IsPositive() {
		suggestions = append(suggestions, AllocationSuggestion{
			PillarID:   p4.ID,
			PillarName: p4.DisplayName,
			Amount:     remaining,
			Reason:     "Investimenti a lungo termine",
			Priority:   3,
		})
	}

	return suggestions, nil
}

// MonthlyBudget splits the configured monthly income into tax provision,
// pillar contributions and the spending budget left on pillar 1.
func (s *PillarService) MonthlyBudget(ctx context.Context, cfg BudgetConfig) (*MonthlyBudget, error) {
	gross := cfg.DefaultMonthlyIncome
	us, err := s.store.GetUserSettings(ctx)
	switch {
	case err == nil:
		gross = us.MonthlyIncome
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	ts, err := getOrCreateTaxSettings(ctx, s.store, s.today().Year())
	if err != nil {
		return nil, err
	}
	provision := CalculateTax(gross.Mul(twelve), *ts).MonthlyProvision

	b := &MonthlyBudget{
		GrossIncome:           gross,
		TaxProvision:          provision,
		EmergencyContribution: money.Zero,
		EmergencyRate:         money.Zero,
		TaxRateEffective:      money.Percent(provision, gross, money.Zero),
	}

	p2, err := s.store.GetPillarByNumber(ctx, models.PillarEmergency)
	switch {
	case err == nil:
		if !p2.IsFunded {
			b.EmergencyContribution = money.Round(gross.Mul(cfg.EmergencyContribution))
			b.EmergencyRate = cfg.EmergencyContribution.Mul(money.Hundred)
		}
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	b.InvestmentContribution = money.Round(gross.Mul(cfg.InvestmentPercentage))
	b.InvestmentRate = cfg.InvestmentPercentage.Mul(money.Hundred)
	b.AvailableForLiquidity = gross.Sub(provision).Sub(b.EmergencyContribution).Sub(b.InvestmentContribution)

	fixed, err := s.store.ListCategories(ctx, database.CategoryFilter{Type: models.CategoryFixed, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	b.FixedCosts = money.Zero
	for _, c := range fixed {
		b.FixedCosts = b.FixedCosts.Add(c.MonthlyBudget)
	}
	b.VariableBudget = b.AvailableForLiquidity.Sub(b.FixedCosts)
	return b, nil
}
