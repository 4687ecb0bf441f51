// Package database persists the ledger. Store is implemented by an in-memory
// store (tests and local runs without DATABASE_URL) and a Postgres store.
package database

import (
	"context"
	"time"

	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
)

// CategoryFilter narrows category listings.
type CategoryFilter struct {
	Type       models.CategoryType
	ActiveOnly bool
}

// DeadlineFilter narrows tax deadline listings. Zero values mean no filter.
type DeadlineFilter struct {
	Year    int
	DueFrom time.Time // inclusive
	DueTo   time.Time // exclusive
}

// Store is the persistence contract used by the services. Lookups of unknown
// ids return an error wrapping models.ErrNotFound.
type Store interface {
	ListAccounts(ctx context.Context) ([]models.Account, error)
	CreateAccount(ctx context.Context, a *models.Account) error

	// ListPillars returns pillars ordered by number.
	ListPillars(ctx context.Context) ([]models.Pillar, error)
	GetPillar(ctx context.Context, id int64) (*models.Pillar, error)
	// GetPillarForUpdate is GetPillar that also locks the row until the
	// surrounding transaction ends.
	GetPillarForUpdate(ctx context.Context, id int64) (*models.Pillar, error)
	GetPillarByNumber(ctx context.Context, number int) (*models.Pillar, error)
	CreatePillar(ctx context.Context, p *models.Pillar) error
	UpdatePillar(ctx context.Context, p *models.Pillar) error
	CreatePillarTransfer(ctx context.Context, t *models.PillarTransfer) error
	ListPillarTransfers(ctx context.Context) ([]models.PillarTransfer, error)

	// ListCategories returns categories ordered by id.
	ListCategories(ctx context.Context, filter CategoryFilter) ([]models.Category, error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	CreateCategory(ctx context.Context, c *models.Category) error
	UpdateCategory(ctx context.Context, c *models.Category) error

	// ListTransactions returns transactions newest first.
	ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (*models.Transaction, error)
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	UpdateTransaction(ctx context.Context, tx *models.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
	TransactionExists(ctx context.Context, key models.DuplicateKey) (bool, error)

	GetForecastMonth(ctx context.Context, year, month int) (*models.ForecastMonth, error)
	// ListForecastMonths returns the stored months of year in month order.
	ListForecastMonths(ctx context.Context, year int) ([]models.ForecastMonth, error)
	CreateForecastMonth(ctx context.Context, m *models.ForecastMonth) error
	UpdateForecastMonth(ctx context.Context, m *models.ForecastMonth) error
	ListForecastLines(ctx context.Context, monthID int64) ([]models.ForecastLine, error)
	// ReplaceForecastLines deletes every line of the month and inserts lines,
	// assigning their ids.
	ReplaceForecastLines(ctx context.Context, monthID int64, lines []models.ForecastLine) error
	UpdateForecastLine(ctx context.Context, l *models.ForecastLine) error

	GetTaxSettings(ctx context.Context, year int) (*models.TaxSettings, error)
	SaveTaxSettings(ctx context.Context, s *models.TaxSettings) error
	// ListTaxDeadlines returns deadlines ordered by due date.
	ListTaxDeadlines(ctx context.Context, filter DeadlineFilter) ([]models.TaxDeadline, error)
	GetTaxDeadline(ctx context.Context, id int64) (*models.TaxDeadline, error)
	UpdateTaxDeadline(ctx context.Context, d *models.TaxDeadline) error
	// ReplaceTaxDeadlines deletes the deadlines of year and inserts deadlines.
	ReplaceTaxDeadlines(ctx context.Context, year int, deadlines []models.TaxDeadline) error

	// ListPlannedExpenses returns expenses ordered by target date.
	ListPlannedExpenses(ctx context.Context, includeCompleted bool) ([]models.PlannedExpense, error)
	GetPlannedExpense(ctx context.Context, id int64) (*models.PlannedExpense, error)
	CreatePlannedExpense(ctx context.Context, e *models.PlannedExpense) error
	UpdatePlannedExpense(ctx context.Context, e *models.PlannedExpense) error
	DeletePlannedExpense(ctx context.Context, id int64) error

	GetUserSettings(ctx context.Context) (*models.UserSettings, error)
	SaveUserSettings(ctx context.Context, s *models.UserSettings) error

	// WithTx runs fn atomically: either every write made through the Store
	// passed to fn is visible, or none is.
	WithTx(ctx context.Context, fn func(Store) error) error
}
