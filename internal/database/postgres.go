package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type scanner interface {
	Scan(dest ...any) error
}

// PostgresStore implements Store on top of a pgx pool.
type PostgresStore struct {
	db dbtx
}

// NewPostgresStore wraps pool. Call Migrate first on a fresh database.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool}
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(&PostgresStore{db: tx})
	})
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NotFoundf(format, args...)
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func requireAffected(tag pgconn.CommandTag, format string, args ...any) error {
	if tag.RowsAffected() == 0 {
		return models.NotFoundf(format, args...)
	}
	return nil
}

// Accounts

func (s *PostgresStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, account_type, is_active, created_at FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (models.Account, error) {
		var a models.Account
		err := r.Scan(&a.ID, &a.Name, &a.Type, &a.IsActive, &a.CreatedAt)
		return a, err
	})
}

func (s *PostgresStore) CreateAccount(ctx context.Context, a *models.Account) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO accounts (name, account_type, is_active) VALUES ($1, $2, $3) RETURNING id, created_at`,
		a.Name, a.Type, a.IsActive,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// Pillars

const pillarColumns = `id, number, name, display_name, description, current_balance, target_balance,
	target_months, instrument, account_name, is_funded, priority, created_at, updated_at`

func scanPillar(row scanner) (models.Pillar, error) {
	var p models.Pillar
	err := row.Scan(&p.ID, &p.Number, &p.Name, &p.DisplayName, &p.Description, &p.CurrentBalance,
		&p.TargetBalance, &p.TargetMonths, &p.Instrument, &p.AccountName, &p.IsFunded, &p.Priority,
		&p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *PostgresStore) ListPillars(ctx context.Context) ([]models.Pillar, error) {
	rows, err := s.db.Query(ctx, `SELECT `+pillarColumns+` FROM pillars ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pillars: %w", err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (models.Pillar, error) { return scanPillar(r) })
}

func (s *PostgresStore) GetPillar(ctx context.Context, id int64) (*models.Pillar, error) {
	p, err := scanPillar(s.db.QueryRow(ctx, `SELECT `+pillarColumns+` FROM pillars WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "pillar %d", id)
	}
	return &p, nil
}

func (s *PostgresStore) GetPillarForUpdate(ctx context.Context, id int64) (*models.Pillar, error) {
	p, err := scanPillar(s.db.QueryRow(ctx, `SELECT `+pillarColumns+` FROM pillars WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "pillar %d", id)
	}
	return &p, nil
}

func (s *PostgresStore) GetPillarByNumber(ctx context.Context, number int) (*models.Pillar, error) {
	p, err := scanPillar(s.db.QueryRow(ctx, `SELECT `+pillarColumns+` FROM pillars WHERE number = $1`, number))
	if err != nil {
		return nil, notFound(err, "pillar number %d", number)
	}
	return &p, nil
}

func (s *PostgresStore) CreatePillar(ctx context.Context, p *models.Pillar) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO pillars (number, name, display_name, description, current_balance, target_balance,
			target_months, instrument, account_name, is_funded, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		p.Number, p.Name, p.DisplayName, p.Description, p.CurrentBalance, p.TargetBalance,
		p.TargetMonths, p.Instrument, p.AccountName, p.IsFunded, p.Priority,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create pillar %d: %w", p.Number, err)
	}
	return nil
}

func (s *PostgresStore) UpdatePillar(ctx context.Context, p *models.Pillar) error {
	err := s.db.QueryRow(ctx, `
		UPDATE pillars SET name = $2, display_name = $3, description = $4, current_balance = $5,
			target_balance = $6, target_months = $7, instrument = $8, account_name = $9,
			is_funded = $10, priority = $11, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Name, p.DisplayName, p.Description, p.CurrentBalance, p.TargetBalance,
		p.TargetMonths, p.Instrument, p.AccountName, p.IsFunded, p.Priority,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return notFound(err, "pillar %d", p.ID)
	}
	return nil
}

func (s *PostgresStore) CreatePillarTransfer(ctx context.Context, t *models.PillarTransfer) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO pillar_transfers (from_pillar_id, to_pillar_id, amount, notes)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		t.FromPillarID, t.ToPillarID, t.Amount, t.Notes,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record transfer: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPillarTransfers(ctx context.Context) ([]models.PillarTransfer, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, from_pillar_id, to_pillar_id, amount, notes, created_at FROM pillar_transfers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (models.PillarTransfer, error) {
		var t models.PillarTransfer
		err := r.Scan(&t.ID, &t.FromPillarID, &t.ToPillarID, &t.Amount, &t.Notes, &t.CreatedAt)
		return t, err
	})
}

// Categories

const categoryColumns = `id, name, category_type, icon, color, monthly_budget, keywords, pillar_id,
	display_order, is_active, created_at`

func scanCategory(row scanner) (models.Category, error) {
	var c models.Category
	err := row.Scan(&c.ID, &c.Name, &c.Type, &c.Icon, &c.Color, &c.MonthlyBudget, &c.Keywords,
		&c.PillarID, &c.DisplayOrder, &c.IsActive, &c.CreatedAt)
	return c, err
}

func (s *PostgresStore) ListCategories(ctx context.Context, filter CategoryFilter) ([]models.Category, error) {
	var where []string
	var args []any
	if filter.ActiveOnly {
		where = append(where, "is_active")
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where = append(where, fmt.Sprintf("category_type = $%d", len(args)))
	}

	query := `SELECT ` + categoryColumns + ` FROM categories`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (models.Category, error) { return scanCategory(r) })
}

func (s *PostgresStore) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	c, err := scanCategory(s.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "category %d", id)
	}
	return &c, nil
}

func (s *PostgresStore) CreateCategory(ctx context.Context, c *models.Category) error {
	if c.Keywords == nil {
		c.Keywords = []string{}
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO categories (name, category_type, icon, color, monthly_budget, keywords, pillar_id,
			display_order, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		c.Name, c.Type, c.Icon, c.Color, c.MonthlyBudget, c.Keywords, c.PillarID, c.DisplayOrder, c.IsActive,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create category %q: %w", c.Name, err)
	}
	return nil
}

func (s *PostgresStore) UpdateCategory(ctx context.Context, c *models.Category) error {
	if c.Keywords == nil {
		c.Keywords = []string{}
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE categories SET name = $2, category_type = $3, icon = $4, color = $5, monthly_budget = $6,
			keywords = $7, pillar_id = $8, display_order = $9, is_active = $10
		WHERE id = $1`,
		c.ID, c.Name, c.Type, c.Icon, c.Color, c.MonthlyBudget, c.Keywords, c.PillarID, c.DisplayOrder, c.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to update category %d: %w", c.ID, err)
	}
	return requireAffected(tag, "category %d", c.ID)
}

// Transactions

const transactionColumns = `id, txn_date, amount, description, original_description, category_id,
	account_id, source, is_income, is_taxable, import_batch_id, notes, created_at`

func scanTransaction(row scanner) (models.Transaction, error) {
	var tx models.Transaction
	err := row.Scan(&tx.ID, &tx.Date, &tx.Amount, &tx.Description, &tx.OriginalDescription, &tx.CategoryID,
		&tx.AccountID, &tx.Source, &tx.IsIncome, &tx.IsTaxable, &tx.ImportBatchID, &tx.Notes, &tx.CreatedAt)
	return tx, err
}

func (s *PostgresStore) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	var where []string
	var args []any
	if filter.Year != 0 {
		args = append(args, filter.Year)
		where = append(where, fmt.Sprintf("EXTRACT(YEAR FROM txn_date) = $%d", len(args)))
	}
	if filter.Month != 0 {
		args = append(args, filter.Month)
		where = append(where, fmt.Sprintf("EXTRACT(MONTH FROM txn_date) = $%d", len(args)))
	}
	if filter.Uncategorized {
		where = append(where, "category_id IS NULL")
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY txn_date DESC, id DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (models.Transaction, error) { return scanTransaction(r) })
}

func (s *PostgresStore) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	tx, err := scanTransaction(s.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "transaction %d", id)
	}
	return &tx, nil
}

func (s *PostgresStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO transactions (txn_date, amount, description, original_description, category_id,
			account_id, source, is_income, is_taxable, import_batch_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`,
		tx.Date, tx.Amount, tx.Description, tx.OriginalDescription, tx.CategoryID, tx.AccountID,
		tx.Source, tx.IsIncome, tx.IsTaxable, tx.ImportBatchID, tx.Notes,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateTransaction(ctx context.Context, tx *models.Transaction) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE transactions SET txn_date = $2, amount = $3, description = $4, original_description = $5,
			category_id = $6, account_id = $7, source = $8, is_income = $9, is_taxable = $10,
			import_batch_id = $11, notes = $12
		WHERE id = $1`,
		tx.ID, tx.Date, tx.Amount, tx.Description, tx.OriginalDescription, tx.CategoryID, tx.AccountID,
		tx.Source, tx.IsIncome, tx.IsTaxable, tx.ImportBatchID, tx.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction %d: %w", tx.ID, err)
	}
	return requireAffected(tag, "transaction %d", tx.ID)
}

func (s *PostgresStore) DeleteTransaction(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction %d: %w", id, err)
	}
	return requireAffected(tag, "transaction %d", id)
}

func (s *PostgresStore) TransactionExists(ctx context.Context, key models.DuplicateKey) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE txn_date = $1::date AND amount = $2::numeric AND original_description = $3
		)`,
		key.Date, key.Amount, key.OriginalDescription,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate: %w", err)
	}
	return exists, nil
}

// Forecast

const monthColumns = `id, year, month, opening_balance, expected_income, actual_income,
	expected_fixed_costs, actual_fixed_costs, expected_variable_costs, actual_variable_costs,
	actuals_synced_at, notes, is_closed, updated_at`

func scanMonth(row scanner) (models.ForecastMonth, error) {
	var m models.ForecastMonth
	err := row.Scan(&m.ID, &m.Year, &m.Month, &m.OpeningBalance, &m.ExpectedIncome, &m.ActualIncome,
		&m.ExpectedFixedCosts, &m.ActualFixedCosts, &m.ExpectedVariableCosts, &m.ActualVariableCosts,
		&m.ActualsSyncedAt, &m.Notes, &m.IsClosed, &m.UpdatedAt)
	return m, err
}

func (s *PostgresStore) GetForecastMonth(ctx context.Context, year, month int) (*models.ForecastMonth, error) {
	m, err := scanMonth(s.db.QueryRow(ctx,
		`SELECT `+monthColumns+` FROM forecast_months WHERE year = $1 AND month = $2`, year, month))
	if err != nil {
		return nil, notFound(err, "forecast %d/%d", month, year)
	}
	return &m, nil
}

func (s *PostgresStore) ListForecastMonths(ctx context.Context, year int) ([]models.ForecastMonth, error) {
	rows, err := s.db.Query(ctx, `SELECT `+monthColumns+` FROM forecast_months WHERE year = $1 ORDER BY month`, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list forecast months: %w", err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (models.ForecastMonth, error) { return scanMonth(r) })
}

func (s *PostgresStore) CreateForecastMonth(ctx context.Context, m *models.ForecastMonth) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO forecast_months (year, month, opening_balance, expected_income, actual_income,
			expected_fixed_costs, actual_fixed_costs, expected_variable_costs, actual_variable_costs,
			actuals_synced_at, notes, is_closed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, updated_at`,
		m.Year, m.Month, m.OpeningBalance, m.ExpectedIncome, m.ActualIncome, m.ExpectedFixedCosts,
		m.ActualFixedCosts, m.ExpectedVariableCosts, m.ActualVariableCosts, m.ActualsSyncedAt, m.Notes, m.IsClosed,
	).Scan(&m.ID, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create forecast %d/%d: %w", m.Month, m.Year, err)
	}
	return nil
}

func (s *PostgresStore) UpdateForecastMonth(ctx context.Context, m *models.ForecastMonth) error {
	err := s.db.QueryRow(ctx, `
		UPDATE forecast_months SET opening_balance = $2, expected_income = $3, actual_income = $4,
			expected_fixed_costs = $5, actual_fixed_costs = $6, expected_variable_costs = $7,
			actual_variable_costs = $8, actuals_synced_at = $9, notes = $10, is_closed = $11, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		m.ID, m.OpeningBalance, m.ExpectedIncome, m.ActualIncome, m.ExpectedFixedCosts, m.ActualFixedCosts,
		m.ExpectedVariableCosts, m.ActualVariableCosts, m.ActualsSyncedAt, m.Notes, m.IsClosed,
	).Scan(&m.UpdatedAt)
	if err != nil {
		return notFound(err, "forecast month %d", m.ID)
	}
	return nil
}

const lineColumns = `id, forecast_month_id, category_id, tax_deadline_id, line_type, description,
	expected_amount, actual_amount, is_recurring, recurrence_day`

func (s *PostgresStore) ListForecastLines(ctx context.Context, monthID int64) ([]models.ForecastLine, error) {
	rows, err := s.db.Query(ctx, `SELECT `+lineColumns+` FROM forecast_lines WHERE forecast_month_id = $1 ORDER BY id`, monthID)
	if err != nil {
		return nil, fmt.Errorf("failed to list forecast lines: %w", err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (models.ForecastLine, error) {
		var l models.ForecastLine
		err := r.Scan(&l.ID, &l.ForecastMonthID, &l.CategoryID, &l.TaxDeadlineID, &l.LineType, &l.Description,
			&l.ExpectedAmount, &l.ActualAmount, &l.IsRecurring, &l.RecurrenceDay)
		return l, err
	})
}

func (s *PostgresStore) ReplaceForecastLines(ctx context.Context, monthID int64, lines []models.ForecastLine) error {
	return s.WithTx(ctx, func(st Store) error {
		tx := st.(*PostgresStore)
		if _, err := tx.db.Exec(ctx, `DELETE FROM forecast_lines WHERE forecast_month_id = $1`, monthID); err != nil {
			return fmt.Errorf("failed to delete forecast lines: %w", err)
		}
		for i := range lines {
			l := &lines[i]
			l.ForecastMonthID = monthID
			err := tx.db.QueryRow(ctx, `
				INSERT INTO forecast_lines (forecast_month_id, category_id, tax_deadline_id, line_type,
					description, expected_amount, actual_amount, is_recurring, recurrence_day)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				RETURNING id`,
				monthID, l.CategoryID, l.TaxDeadlineID, l.LineType, l.Description, l.ExpectedAmount,
				l.ActualAmount, l.IsRecurring, l.RecurrenceDay,
			).Scan(&l.ID)
			if err != nil {
				return fmt.Errorf("failed to insert forecast line: %w", err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) UpdateForecastLine(ctx context.Context, l *models.ForecastLine) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE forecast_lines SET category_id = $2, line_type = $3, description = $4, expected_amount = $5,
			actual_amount = $6, is_recurring = $7, recurrence_day = $8
		WHERE id = $1`,
		l.ID, l.CategoryID, l.LineType, l.Description, l.ExpectedAmount, l.ActualAmount, l.IsRecurring, l.RecurrenceDay,
	)
	if err != nil {
		return fmt.Errorf("failed to update forecast line %d: %w", l.ID, err)
	}
	return requireAffected(tag, "forecast line %d", l.ID)
}

// Taxes

const taxSettingsColumns = `id, year, regime, coefficient, inps_rate, tax_rate, advance_method,
	prior_year_income, prior_year_tax_paid, prior_year_inps_paid, min_threshold,
	single_payment_threshold, notes, updated_at`

func (s *PostgresStore) GetTaxSettings(ctx context.Context, year int) (*models.TaxSettings, error) {
	var ts models.TaxSettings
	err := s.db.QueryRow(ctx, `SELECT `+taxSettingsColumns+` FROM tax_settings WHERE year = $1`, year).Scan(
		&ts.ID, &ts.Year, &ts.Regime, &ts.Coefficient, &ts.InpsRate, &ts.TaxRate, &ts.AdvanceMethod,
		&ts.PriorYearIncome, &ts.PriorYearTaxPaid, &ts.PriorYearInpsPaid, &ts.MinThreshold,
		&ts.SinglePaymentThreshold, &ts.Notes, &ts.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "tax settings %d", year)
	}
	return &ts, nil
}

func (s *PostgresStore) SaveTaxSettings(ctx context.Context, ts *models.TaxSettings) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO tax_settings (year, regime, coefficient, inps_rate, tax_rate, advance_method,
			prior_year_income, prior_year_tax_paid, prior_year_inps_paid, min_threshold,
			single_payment_threshold, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (year) DO UPDATE SET regime = EXCLUDED.regime, coefficient = EXCLUDED.coefficient,
			inps_rate = EXCLUDED.inps_rate, tax_rate = EXCLUDED.tax_rate,
			advance_method = EXCLUDED.advance_method, prior_year_income = EXCLUDED.prior_year_income,
			prior_year_tax_paid = EXCLUDED.prior_year_tax_paid,
			prior_year_inps_paid = EXCLUDED.prior_year_inps_paid, min_threshold = EXCLUDED.min_threshold,
			single_payment_threshold = EXCLUDED.single_payment_threshold, notes = EXCLUDED.notes,
			updated_at = NOW()
		RETURNING id, updated_at`,
		ts.Year, ts.Regime, ts.Coefficient, ts.InpsRate, ts.TaxRate, ts.AdvanceMethod, ts.PriorYearIncome,
		ts.PriorYearTaxPaid, ts.PriorYearInpsPaid, ts.MinThreshold, ts.SinglePaymentThreshold, ts.Notes,
	).Scan(&ts.ID, &ts.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save tax settings %d: %w", ts.Year, err)
	}
	return nil
}

const deadlineColumns = `id, year, deadline_type, name, due_date, amount_due, amount_paid,
	installments_paid, pillar_id, is_calculated, is_manual_override, notes, created_at`

func scanDeadline(row scanner) (models.TaxDeadline, error) {
	var d models.TaxDeadline
	err := row.Scan(&d.ID, &d.Year, &d.Type, &d.Name, &d.DueDate, &d.AmountDue, &d.AmountPaid,
		&d.InstallmentsPaid, &d.PillarID, &d.IsCalculated, &d.IsManualOverride, &d.Notes, &d.CreatedAt)
	return d, err
}

func (s *PostgresStore) ListTaxDeadlines(ctx context.Context, filter DeadlineFilter) ([]models.TaxDeadline, error) {
	var where []string
	var args []any
	if filter.Year != 0 {
		args = append(args, filter.Year)
		where = append(where, fmt.Sprintf("year = $%d", len(args)))
	}
	if !filter.DueFrom.IsZero() {
		args = append(args, filter.DueFrom)
		where = append(where, fmt.Sprintf("due_date >= $%d", len(args)))
	}
	if !filter.DueTo.IsZero() {
		args = append(args, filter.DueTo)
		where = append(where, fmt.Sprintf("due_date < $%d", len(args)))
	}

	query := `SELECT ` + deadlineColumns + ` FROM tax_deadlines`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY due_date, id"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tax deadlines: %w", err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (models.TaxDeadline, error) { return scanDeadline(r) })
}

func (s *PostgresStore) GetTaxDeadline(ctx context.Context, id int64) (*models.TaxDeadline, error) {
	d, err := scanDeadline(s.db.QueryRow(ctx, `SELECT `+deadlineColumns+` FROM tax_deadlines WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "tax deadline %d", id)
	}
	return &d, nil
}

func (s *PostgresStore) UpdateTaxDeadline(ctx context.Context, d *models.TaxDeadline) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE tax_deadlines SET deadline_type = $2, name = $3, due_date = $4, amount_due = $5,
			amount_paid = $6, installments_paid = $7, pillar_id = $8, is_calculated = $9,
			is_manual_override = $10, notes = $11
		WHERE id = $1`,
		d.ID, d.Type, d.Name, d.DueDate, d.AmountDue, d.AmountPaid, d.InstallmentsPaid, d.PillarID,
		d.IsCalculated, d.IsManualOverride, d.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to update tax deadline %d: %w", d.ID, err)
	}
	return requireAffected(tag, "tax deadline %d", d.ID)
}

func (s *PostgresStore) ReplaceTaxDeadlines(ctx context.Context, year int, deadlines []models.TaxDeadline) error {
	return s.WithTx(ctx, func(st Store) error {
		tx := st.(*PostgresStore)
		if _, err := tx.db.Exec(ctx, `DELETE FROM tax_deadlines WHERE year = $1`, year); err != nil {
			return fmt.Errorf("failed to delete tax deadlines %d: %w", year, err)
		}
		for i := range deadlines {
			d := &deadlines[i]
			err := tx.db.QueryRow(ctx, `
				INSERT INTO tax_deadlines (year, deadline_type, name, due_date, amount_due, amount_paid,
					installments_paid, pillar_id, is_calculated, is_manual_override, notes)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
				RETURNING id, created_at`,
				d.Year, d.Type, d.Name, d.DueDate, d.AmountDue, d.AmountPaid, d.InstallmentsPaid, d.PillarID,
				d.IsCalculated, d.IsManualOverride, d.Notes,
			).Scan(&d.ID, &d.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert tax deadline: %w", err)
			}
		}
		return nil
	})
}

// Planned expenses

const plannedColumns = `id, name, target_amount, current_amount, target_date, pillar_id, is_completed, notes, created_at`

func scanPlanned(row scanner) (models.PlannedExpense, error) {
	var e models.PlannedExpense
	err := row.Scan(&e.ID, &e.Name, &e.TargetAmount, &e.CurrentAmount, &e.TargetDate, &e.PillarID,
		&e.IsCompleted, &e.Notes, &e.CreatedAt)
	return e, err
}

func (s *PostgresStore) ListPlannedExpenses(ctx context.Context, includeCompleted bool) ([]models.PlannedExpense, error) {
	query := `SELECT ` + plannedColumns + ` FROM planned_expenses`
	if !includeCompleted {
		query += ` WHERE NOT is_completed`
	}
	query += ` ORDER BY target_date, id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list planned expenses: %w", err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (models.PlannedExpense, error) { return scanPlanned(r) })
}

func (s *PostgresStore) GetPlannedExpense(ctx context.Context, id int64) (*models.PlannedExpense, error) {
	e, err := scanPlanned(s.db.QueryRow(ctx, `SELECT `+plannedColumns+` FROM planned_expenses WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "planned expense %d", id)
	}
	return &e, nil
}

func (s *PostgresStore) CreatePlannedExpense(ctx context.Context, e *models.PlannedExpense) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO planned_expenses (name, target_amount, current_amount, target_date, pillar_id, is_completed, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		e.Name, e.TargetAmount, e.CurrentAmount, e.TargetDate, e.PillarID, e.IsCompleted, e.Notes,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create planned expense: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdatePlannedExpense(ctx context.Context, e *models.PlannedExpense) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE planned_expenses SET name = $2, target_amount = $3, current_amount = $4, target_date = $5,
			pillar_id = $6, is_completed = $7, notes = $8
		WHERE id = $1`,
		e.ID, e.Name, e.TargetAmount, e.CurrentAmount, e.TargetDate, e.PillarID, e.IsCompleted, e.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to update planned expense %d: %w", e.ID, err)
	}
	return requireAffected(tag, "planned expense %d", e.ID)
}

func (s *PostgresStore) DeletePlannedExpense(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM planned_expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete planned expense %d: %w", id, err)
	}
	return requireAffected(tag, "planned expense %d", id)
}

// User settings

func (s *PostgresStore) GetUserSettings(ctx context.Context) (*models.UserSettings, error) {
	var us models.UserSettings
	err := s.db.QueryRow(ctx, `
		SELECT id, monthly_income, income_type, average_monthly_expenses, setup_completed,
			notifications_enabled, updated_at
		FROM user_settings ORDER BY id LIMIT 1`,
	).Scan(&us.ID, &us.MonthlyIncome, &us.IncomeType, &us.AverageMonthlyExpenses, &us.SetupCompleted,
		&us.NotificationsEnabled, &us.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "user settings")
	}
	return &us, nil
}

func (s *PostgresStore) SaveUserSettings(ctx context.Context, us *models.UserSettings) error {
	if us.ID == 0 {
		existing, err := s.GetUserSettings(ctx)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return err
		}
		if existing != nil {
			us.ID = existing.ID
		}
	}

	if us.ID == 0 {
		err := s.db.QueryRow(ctx, `
			INSERT INTO user_settings (monthly_income, income_type, average_monthly_expenses, setup_completed,
				notifications_enabled)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, updated_at`,
			us.MonthlyIncome, us.IncomeType, us.AverageMonthlyExpenses, us.SetupCompleted, us.NotificationsEnabled,
		).Scan(&us.ID, &us.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create user settings: %w", err)
		}
		return nil
	}

	err := s.db.QueryRow(ctx, `
		UPDATE user_settings SET monthly_income = $2, income_type = $3, average_monthly_expenses = $4,
			setup_completed = $5, notifications_enabled = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		us.ID, us.MonthlyIncome, us.IncomeType, us.AverageMonthlyExpenses, us.SetupCompleted, us.NotificationsEnabled,
	).Scan(&us.UpdatedAt)
	if err != nil {
		return notFound(err, "user settings")
	}
	return nil
}
