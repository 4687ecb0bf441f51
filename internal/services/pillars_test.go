package services

import (
	"testing"
	"time"

	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPillarService_Status(t *testing.T) {
	store := seededStore(t)
	svc := NewPillarService(store)
	ctx := testContext()

	p1 := pillarByNumber(t, store, models.PillarLiquidity)
	_, err := svc.Update(ctx, p1.ID, models.PillarPatch{TargetBalance: ptr(d("9000"))})
	require.NoError(t, err)
	setBalance(t, store, models.PillarLiquidity, "12000")

	statuses, err := svc.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 4)
	for i, st := range statuses {
		assert.Equal(t, i+1, st.Number)
	}

	assertDecimal(t, "100", statuses[0].CompletionPercentage)
	assertDecimal(t, "3000", statuses[0].Surplus)
	assert.True(t, statuses[0].Shortfall.IsZero())
	assert.True(t, statuses[0].IsFunded)
	assertDecimal(t, "100", statuses[1].CompletionPercentage)
}

func TestPillarService_Summary(t *testing.T) {
	store := seededStore(t)
	svc := NewPillarService(store)
	ctx := testContext()

	sum, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.True(t, sum.OverallCompletion.IsZero(), "zero total target")
	assert.True(t, sum.AllFunded)

	p2 := pillarByNumber(t, store, models.PillarEmergency)
	_, err = svc.Update(ctx, p2.ID, models.PillarPatch{TargetBalance: ptr(d("4000"))})
	require.NoError(t, err)
	setBalance(t, store, models.PillarEmergency, "1000")
	setBalance(t, store, models.PillarLiquidity, "1000")

	sum, err = svc.Summary(ctx)
	require.NoError(t, err)
	assertDecimal(t, "2000", sum.TotalBalance)
	assertDecimal(t, "4000", sum.TotalTarget)
	assertDecimal(t, "50", sum.OverallCompletion)
	assert.False(t, sum.AllFunded)
}

func TestPillarService_UpdateRejectsNegativeTarget(t *testing.T) {
	store := seededStore(t)
	svc := NewPillarService(store)
	p1 := pillarByNumber(t, store, models.PillarLiquidity)

	_, err := svc.Update(testContext(), p1.ID, models.PillarPatch{TargetBalance: ptr(d("-1"))})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = svc.Update(testContext(), 999, models.PillarPatch{})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPillarService_Reconcile(t *testing.T) {
	store := seededStore(t)
	svc := NewPillarService(store)
	ctx := testContext()
	p2 := pillarByNumber(t, store, models.PillarEmergency)

	_, err := svc.Update(ctx, p2.ID, models.PillarPatch{TargetBalance: ptr(d("6000"))})
	require.NoError(t, err)

	got, err := svc.Reconcile(ctx, p2.ID, d("6000.004"))
	require.NoError(t, err)
	assertDecimal(t, "6000.00", got.CurrentBalance)
	assert.True(t, got.IsFunded)

	got, err = svc.Reconcile(ctx, p2.ID, d("5999.99"))
	require.NoError(t, err)
	assert.False(t, got.IsFunded)

	_, err = svc.Reconcile(ctx, 12345, d("1"))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPillarService_Transfer(t *testing.T) {
	ctx := testContext()

	t.Run("moves funds and conserves the total", func(t *testing.T) {
		store := seededStore(t)
		svc := NewPillarService(store)
		from := setBalance(t, store, models.PillarLiquidity, "5000")
		to := setBalance(t, store, models.PillarPlanned, "250.50")

		res, err := svc.Transfer(ctx, from.ID, to.ID, d("1200"), "accantonamento F24")
		require.NoError(t, err)
		assertDecimal(t, "3800", res.From.CurrentBalance)
		assertDecimal(t, "1450.50", res.To.CurrentBalance)
		assertDecimal(t, "5250.50", res.From.CurrentBalance.Add(res.To.CurrentBalance))

		transfers, err := store.ListPillarTransfers(ctx)
		require.NoError(t, err)
		require.Len(t, transfers, 1)
		assert.Equal(t, "accantonamento F24", transfers[0].Notes)
		assertDecimal(t, "1200", transfers[0].Amount)
	})

	t.Run("insufficient funds leaves balances unchanged", func(t *testing.T) {
		store := seededStore(t)
		svc := NewPillarService(store)
		from := setBalance(t, store, models.PillarLiquidity, "100")
		to := setBalance(t, store, models.PillarInvestments, "50")

		_, err := svc.Transfer(ctx, from.ID, to.ID, d("100.01"), "")
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrInsufficientFunds)
		assert.Equal(t, "Insufficient balance in Liquidità: 100.00€ < 100.01€", err.Error())

		assertDecimal(t, "100", pillarByNumber(t, store, models.PillarLiquidity).CurrentBalance)
		assertDecimal(t, "50", pillarByNumber(t, store, models.PillarInvestments).CurrentBalance)

		transfers, err := store.ListPillarTransfers(ctx)
		require.NoError(t, err)
		assert.Empty(t, transfers)
	})

	t.Run("exact balance is allowed", func(t *testing.T) {
		store := seededStore(t)
		svc := NewPillarService(store)
		from := setBalance(t, store, models.PillarLiquidity, "100")
		to := pillarByNumber(t, store, models.PillarEmergency)

		res, err := svc.Transfer(ctx, from.ID, to.ID, d("100"), "")
		require.NoError(t, err)
		assert.True(t, res.From.CurrentBalance.IsZero())
	})

	t.Run("validation", func(t *testing.T) {
		store := seededStore(t)
		svc := NewPillarService(store)
		p1 := pillarByNumber(t, store, models.PillarLiquidity)
		p2 := pillarByNumber(t, store, models.PillarEmergency)

		_, err := svc.Transfer(ctx, p1.ID, p2.ID, d("0"), "")
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
		_, err = svc.Transfer(ctx, p1.ID, p2.ID, d("-5"), "")
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
		// Rounds to 0.00 before the positivity check.
		_, err = svc.Transfer(ctx, p1.ID, p2.ID, d("0.004"), "")
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
		transfers, err := store.ListPillarTransfers(ctx)
		require.NoError(t, err)
		assert.Empty(t, transfers)
		_, err = svc.Transfer(ctx, p1.ID, 999, d("5"), "")
		assert.ErrorIs(t, err, models.ErrNotFound)
		_, err = svc.Transfer(ctx, 999, p1.ID, d("5"), "")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestPillarService_RecalculateTargets(t *testing.T) {
	store := seededStore(t)
	ctx := testContext()
	clock := clockAt(2026, time.January, 15)
	svc := NewPillarService(store).WithClock(clock)
	taxes := NewTaxService(store).WithClock(clock)

	_, err := taxes.UpdateSettings(ctx, 2026, models.TaxSettingsPatch{
		PriorYearTaxPaid:  ptr(d("5000")),
		PriorYearInpsPaid: ptr(d("8000")),
	})
	require.NoError(t, err)
	_, err = taxes.GenerateDeadlines(ctx, 2026, d("0"))
	require.NoError(t, err)

	require.NoError(t, store.CreatePlannedExpense(ctx, &models.PlannedExpense{
		Name: "Auto", TargetAmount: d("2000"), CurrentAmount: d("500"), TargetDate: models.NewDate(2026, time.June, 1),
	}))
	require.NoError(t, store.CreatePlannedExpense(ctx, &models.PlannedExpense{
		Name: "Dentista", TargetAmount: d("800"), CurrentAmount: d("800"), TargetDate: models.NewDate(2026, time.March, 1), IsCompleted: true,
	}))

	p4 := pillarByNumber(t, store, models.PillarInvestments)
	_, err = svc.Update(ctx, p4.ID, models.PillarPatch{TargetBalance: ptr(d("50000"))})
	require.NoError(t, err)
	setBalance(t, store, models.PillarLiquidity, "9000")

	pillars, err := svc.RecalculateTargets(ctx, d("2500"))
	require.NoError(t, err)
	require.Len(t, pillars, 4)

	assertDecimal(t, "7500", pillars[0].TargetBalance)
	assert.True(t, pillars[0].IsFunded)
	assertDecimal(t, "15000", pillars[1].TargetBalance)
	assert.False(t, pillars[1].IsFunded)
	assertDecimal(t, "12900", pillars[2].TargetBalance) // 11400 taxes + 1500 planned
	assertDecimal(t, "50000", pillars[3].TargetBalance)

	_, err = svc.RecalculateTargets(ctx, d("-1"))
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestPillarService_RecalculateTargetsIgnoresOverpayment(t *testing.T) {
	taxes, p3 := historicService(t)
	ctx := testContext()
	store := taxes.store

	deadlines, err := taxes.GenerateDeadlines(ctx, 2026, d("0"))
	require.NoError(t, err)
	require.Len(t, deadlines, 2)
	for _, dl := range deadlines {
		_, err := taxes.PayDeadline(ctx, dl.ID, dl.AmountDue.Add(d("500")))
		require.NoError(t, err)
	}
	require.NoError(t, store.CreatePlannedExpense(ctx, &models.PlannedExpense{
		Name: "Caldaia", TargetAmount: d("1000"), CurrentAmount: d("1500"), TargetDate: models.NewDate(2026, time.September, 1),
	}))

	svc := NewPillarService(store).WithClock(clockAt(2026, time.January, 15))
	pillars, err := svc.RecalculateTargets(ctx, d("2000"))
	require.NoError(t, err)

	for _, p := range pillars {
		if p.ID == p3.ID {
			assert.True(t, p.TargetBalance.IsZero(), p.TargetBalance.String())
			assert.True(t, p.IsFunded)
		}
	}
}

func TestPillarService_SuggestAllocation(t *testing.T) {
	ctx := testContext()

	setup := func(t *testing.T) (*PillarService, map[int]*models.Pillar) {
		store := seededStore(t)
		clock := clockAt(2026, time.June, 1)
		taxes := NewTaxService(store).WithClock(clock)
		_, err := taxes.UpdateSettings(ctx, 2026, models.TaxSettingsPatch{
			PriorYearTaxPaid:  ptr(d("5000")),
			PriorYearInpsPaid: ptr(d("8000")),
		})
		require.NoError(t, err)
		_, err = taxes.GenerateDeadlines(ctx, 2026, d("0"))
		require.NoError(t, err)

		svc := NewPillarService(store).WithClock(clock)
		p2 := pillarByNumber(t, store, models.PillarEmergency)
		_, err = svc.Update(ctx, p2.ID, models.PillarPatch{TargetBalance: ptr(d("6000"))})
		require.NoError(t, err)
		setBalance(t, store, models.PillarEmergency, "1500")
		setBalance(t, store, models.PillarPlanned, "1000")

		pillars := map[int]*models.Pillar{}
		for n := 1; n <= 4; n++ {
			pillars[n] = pillarByNumber(t, store, n)
		}
		return svc, pillars
	}

	t.Run("fills emergency, near deadlines, then investments", func(t *testing.T) {
		svc, pillars := setup(t)

		got, err := svc.SuggestAllocation(ctx, d("10000"))
		require.NoError(t, err)
		require.Len(t, got, 3)

		assert.Equal(t, pillars[2].ID, got[0].PillarID)
		assertDecimal(t, "4500", got[0].Amount)
		assert.Equal(t, "Fondo emergenza sotto target (25%)", got[0].Reason)
		assert.Equal(t, 1, got[0].Priority)

		assert.Equal(t, pillars[3].ID, got[1].PillarID)
		assertDecimal(t, "4700", got[1].Amount)
		assert.Equal(t, "Scadenze fiscali nei prossimi 3 mesi: 5700.00€", got[1].Reason)

		assert.Equal(t, pillars[4].ID, got[2].PillarID)
		assertDecimal(t, "800", got[2].Amount)
		assert.Equal(t, "Investimenti a lungo termine", got[2].Reason)
	})

	t.Run("small surplus stops at the emergency fund", func(t *testing.T) {
		svc, _ := setup(t)

		got, err := svc.SuggestAllocation(ctx, d("1000"))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assertDecimal(t, "1000", got[0].Amount)
	})

	t.Run("non-positive surplus", func(t *testing.T) {
		svc, _ := setup(t)

		got, err := svc.SuggestAllocation(ctx, d("0"))
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = svc.SuggestAllocation(ctx, d("-10"))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("deadlines outside the window are ignored", func(t *testing.T) {
		svc, _ := setup(t)
		svc.WithClock(clockAt(2026, time.January, 15))

		got, err := svc.SuggestAllocation(ctx, d("5000"))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 1, got[0].Priority)
		assert.Equal(t, 3, got[1].Priority)
		assertDecimal(t, "500", got[1].Amount)
	})
}

func TestPillarService_MonthlyBudget(t *testing.T) {
	store := seededStore(t)
	ctx := testContext()
	svc := NewPillarService(store).WithClock(clockAt(2026, time.March, 1))

	b, err := svc.MonthlyBudget(ctx, DefaultBudgetConfig())
	require.NoError(t, err)
	assertDecimal(t, "3500", b.GrossIncome)
	assertDecimal(t, "1014.45", b.TaxProvision)
	assert.True(t, b.EmergencyContribution.IsZero(), "pillar 2 funded at a zero target")
	assertDecimal(t, "350", b.InvestmentContribution)
	assertDecimal(t, "2135.55", b.AvailableForLiquidity)
	assertDecimal(t, "1100", b.FixedCosts)
	assertDecimal(t, "1035.55", b.VariableBudget)
	assertDecimal(t, "28.98", b.TaxRateEffective)
	assertDecimal(t, "10", b.InvestmentRate)

	p2 := pillarByNumber(t, store, models.PillarEmergency)
	_, err = svc.Update(ctx, p2.ID, models.PillarPatch{TargetBalance: ptr(d("6000"))})
	require.NoError(t, err)

	b, err = svc.MonthlyBudget(ctx, DefaultBudgetConfig())
	require.NoError(t, err)
	assertDecimal(t, "175", b.EmergencyContribution)
	assertDecimal(t, "5", b.EmergencyRate)
	assertDecimal(t, "860.55", b.VariableBudget)
}
