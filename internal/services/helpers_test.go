package services

import (
	"context"
	"testing"
	"time"

	"github.com/ashmitsharp/contaspiccioli-api/internal/database"
	"github.com/ashmitsharp/contaspiccioli-api/internal/logger"
	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testContext() context.Context {
	return logger.WithContext(context.Background(), logger.Discard())
}

func clockAt(year int, month time.Month, day int) func() time.Time {
	return func() time.Time {
		return time.Date(year, month, day, 10, 30, 0, 0, time.UTC)
	}
}

// seededStore returns a memory store with the default seed for 2026.
func seededStore(t *testing.T) *database.MemoryStore {
	t.Helper()
	s := database.NewMemoryStore()
	_, err := database.Seed(testContext(), s, 2026)
	require.NoError(t, err)
	return s
}

func pillarByNumber(t *testing.T, s database.Store, number int) *models.Pillar {
	t.Helper()
	p, err := s.GetPillarByNumber(testContext(), number)
	require.NoError(t, err)
	return p
}

func setBalance(t *testing.T, s database.Store, number int, balance string) *models.Pillar {
	t.Helper()
	p := pillarByNumber(t, s, number)
	p.CurrentBalance = d(balance)
	p.RefreshFunded()
	require.NoError(t, s.UpdatePillar(testContext(), p))
	return p
}

func categoryByName(t *testing.T, s database.Store, name string) models.Category {
	t.Helper()
	cats, err := s.ListCategories(testContext(), database.CategoryFilter{})
	require.NoError(t, err)
	for _, c := range cats {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("category %q not seeded", name)
	return models.Category{}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, d(want).Equal(got), "want %s, got %s", want, got.String())
}

func ptr[T any](v T) *T { return &v }
