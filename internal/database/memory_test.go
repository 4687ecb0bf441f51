package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PillarLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	p := models.Pillar{Number: 2, Name: "emergenza", DisplayName: "Fondo Emergenza", Priority: 2}
	require.NoError(t, s.CreatePillar(ctx, &p))
	assert.NotZero(t, p.ID)

	err := s.CreatePillar(ctx, &models.Pillar{Number: 2})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	p.CurrentBalance = decimal.NewFromInt(100)
	require.NoError(t, s.UpdatePillar(ctx, &p))

	got, err := s.GetPillarByNumber(ctx, 2)
	require.NoError(t, err)
	assert.True(t, got.CurrentBalance.Equal(decimal.NewFromInt(100)))

	_, err = s.GetPillar(ctx, 999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryStore_WithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	p := models.Pillar{Number: 1, Name: "liquidita", CurrentBalance: decimal.NewFromInt(500)}
	require.NoError(t, s.CreatePillar(ctx, &p))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx Store) error {
		locked, err := tx.GetPillarForUpdate(ctx, p.ID)
		require.NoError(t, err)
		locked.CurrentBalance = decimal.Zero
		require.NoError(t, tx.UpdatePillar(ctx, locked))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetPillar(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentBalance.Equal(decimal.NewFromInt(500)), "write inside failed tx must not be visible")
}

func TestMemoryStore_WithTxCommits(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.WithTx(ctx, func(tx Store) error {
		return tx.CreateAccount(ctx, &models.Account{Name: "BBVA", Type: models.AccountChecking})
	})
	require.NoError(t, err)

	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestMemoryStore_CategoryKeywordsAreCopied(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	c := models.Category{Name: "Alimentari", Type: models.CategoryVariable, Keywords: []string{"ESSELUNGA"}, IsActive: true}
	require.NoError(t, s.CreateCategory(ctx, &c))

	got, err := s.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	got.Keywords[0] = "MUTATED"

	again, err := s.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ESSELUNGA"}, again.Keywords)
}

func TestMemoryStore_ListCategoriesFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, c := range []models.Category{
		{Name: "Fatture", Type: models.CategoryIncome, IsActive: true},
		{Name: "Affitto", Type: models.CategoryFixed, IsActive: true},
		{Name: "Vecchia", Type: models.CategoryFixed, IsActive: false},
	} {
		require.NoError(t, s.CreateCategory(ctx, &c))
	}

	all, err := s.ListCategories(ctx, CategoryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	fixed, err := s.ListCategories(ctx, CategoryFilter{Type: models.CategoryFixed, ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, fixed, 1)
	assert.Equal(t, "Affitto", fixed[0].Name)
}

func TestMemoryStore_Transactions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	jan := models.NewDate(2026, time.January, 10)
	feb := models.NewDate(2026, time.February, 3)
	for _, tx := range []models.Transaction{
		{Date: jan, Amount: decimal.RequireFromString("-45.30"), OriginalDescription: "ESSELUNGA"},
		{Date: feb, Amount: decimal.RequireFromString("3500"), OriginalDescription: "BONIFICO"},
	} {
		require.NoError(t, s.CreateTransaction(ctx, &tx))
	}

	list, err := s.ListTransactions(ctx, models.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, feb, list[0].Date, "newest first")

	janOnly, err := s.ListTransactions(ctx, models.TransactionFilter{Year: 2026, Month: 1})
	require.NoError(t, err)
	assert.Len(t, janOnly, 1)

	exists, err := s.TransactionExists(ctx, models.KeyFor(jan, decimal.RequireFromString("-45.3"), "ESSELUNGA"))
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.TransactionExists(ctx, models.KeyFor(jan, decimal.RequireFromString("-45.31"), "ESSELUNGA"))
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.DeleteTransaction(ctx, list[0].ID))
	assert.ErrorIs(t, s.DeleteTransaction(ctx, list[0].ID), models.ErrNotFound)
}

func TestMemoryStore_ForecastLines(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	m := models.ForecastMonth{Year: 2026, Month: 3}
	require.NoError(t, s.CreateForecastMonth(ctx, &m))
	assert.ErrorIs(t, s.CreateForecastMonth(ctx, &models.ForecastMonth{Year: 2026, Month: 3}), models.ErrInvalidArgument)

	lines := []models.ForecastLine{
		{LineType: models.LineIncome, Description: "Fatture", ExpectedAmount: decimal.NewFromInt(3500)},
		{LineType: models.LineFixedCost, Description: "Affitto", ExpectedAmount: decimal.NewFromInt(700)},
	}
	require.NoError(t, s.ReplaceForecastLines(ctx, m.ID, lines))
	assert.NotZero(t, lines[0].ID)

	require.NoError(t, s.ReplaceForecastLines(ctx, m.ID, lines[:1]))
	got, err := s.ListForecastLines(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	assert.ErrorIs(t, s.ReplaceForecastLines(ctx, 999, nil), models.ErrNotFound)
}

func TestMemoryStore_TaxDeadlinesFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	deadlines := []models.TaxDeadline{
		{Year: 2026, Type: models.DeadlineAcconto2, DueDate: models.NewDate(2026, time.November, 30)},
		{Year: 2026, Type: models.DeadlineSaldo, DueDate: models.NewDate(2026, time.July, 16)},
	}
	require.NoError(t, s.ReplaceTaxDeadlines(ctx, 2026, deadlines))

	all, err := s.ListTaxDeadlines(ctx, DeadlineFilter{Year: 2026})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, models.DeadlineSaldo, all[0].Type, "ordered by due date")

	window, err := s.ListTaxDeadlines(ctx, DeadlineFilter{
		DueFrom: models.NewDate(2026, time.July, 1),
		DueTo:   models.NewDate(2026, time.August, 1),
	})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, models.DeadlineSaldo, window[0].Type)

	require.NoError(t, s.ReplaceTaxDeadlines(ctx, 2026, nil))
	all, err = s.ListTaxDeadlines(ctx, DeadlineFilter{Year: 2026})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMemoryStore_UserSettingsSingleton(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.GetUserSettings(ctx)
	assert.ErrorIs(t, err, models.ErrNotFound)

	us := models.DefaultUserSettings()
	require.NoError(t, s.SaveUserSettings(ctx, &us))
	firstID := us.ID

	other := models.DefaultUserSettings()
	other.MonthlyIncome = decimal.NewFromInt(4000)
	require.NoError(t, s.SaveUserSettings(ctx, &other))
	assert.Equal(t, firstID, other.ID)

	got, err := s.GetUserSettings(ctx)
	require.NoError(t, err)
	assert.True(t, got.MonthlyIncome.Equal(decimal.NewFromInt(4000)))
}
