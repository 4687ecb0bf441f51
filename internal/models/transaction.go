package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionSource records how a transaction entered the ledger.
type TransactionSource string

const (
	SourceManual     TransactionSource = "manual"
	SourceBankImport TransactionSource = "bank_import"
)

// Transaction is a signed money movement; positive amounts are income
type Transaction struct {
	ID                  int64             `json:"id"`
	Date                time.Time         `json:"date"`
	Amount              decimal.Decimal   `json:"amount"`
	Description         string            `json:"description"`
	OriginalDescription string            `json:"original_description"`
	CategoryID          *int64            `json:"category_id,omitempty"`
	AccountID           *int64            `json:"account_id,omitempty"`
	Source              TransactionSource `json:"source"`
	IsIncome            bool              `json:"is_income"`
	IsTaxable           bool              `json:"is_taxable"`
	ImportBatchID       string            `json:"import_batch_id,omitempty"`
	Notes               string            `json:"notes,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
}

// TransactionFilter narrows transaction listings. Zero values mean no filter.
type TransactionFilter struct {
	Year          int
	Month         int
	CategoryID    *int64
	Uncategorized bool
}

// Matches reports whether tx passes the filter.
func (f TransactionFilter) Matches(tx Transaction) bool {
	if f.Year != 0 && tx.Date.Year() != f.Year {
		return false
	}
	if f.Month != 0 && int(tx.Date.Month()) != f.Month {
		return false
	}
	if f.Uncategorized && tx.CategoryID != nil {
		return false
	}
	if f.CategoryID != nil && (tx.CategoryID == nil || *tx.CategoryID != *f.CategoryID) {
		return false
	}
	return true
}

// TransactionPatch holds the editable transaction fields; nil means unchanged.
type TransactionPatch struct {
	Date        *time.Time       `json:"date,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Description *string          `json:"description,omitempty"`
	CategoryID  *int64           `json:"category_id,omitempty"`
	AccountID   *int64           `json:"account_id,omitempty"`
	IsTaxable   *bool            `json:"is_taxable,omitempty"`
	Notes       *string          `json:"notes,omitempty"`
}

// Apply copies the set fields onto tx. Changing the amount re-derives IsIncome.
func (patch TransactionPatch) Apply(tx *Transaction) {
	if patch.Date != nil {
		tx.Date = Date(*patch.Date)
	}
	if patch.Amount != nil {
		tx.Amount = patch.Amount.Round(2)
		tx.IsIncome = tx.Amount.IsPositive()
	}
	if patch.Description != nil {
		tx.Description = *patch.Description
	}
	if patch.CategoryID != nil {
		id := *patch.CategoryID
		tx.CategoryID = &id
	}
	if patch.AccountID != nil {
		id := *patch.AccountID
		tx.AccountID = &id
	}
	if patch.IsTaxable != nil {
		tx.IsTaxable = *patch.IsTaxable
	}
	if patch.Notes != nil {
		tx.Notes = *patch.Notes
	}
}

// ParsedTransaction is a statement row after parsing, before persistence
type ParsedTransaction struct {
	Date                time.Time       `json:"date"`
	Amount              decimal.Decimal `json:"amount"`
	Description         string          `json:"description"`
	OriginalDescription string          `json:"original_description"`
	Row                 int             `json:"row"`
}

// DuplicateKey identifies a statement row for duplicate detection.
type DuplicateKey struct {
	Date                string
	Amount              string
	OriginalDescription string
}

// KeyFor builds the duplicate key for a date/amount/description triple.
func KeyFor(date time.Time, amount decimal.Decimal, original string) DuplicateKey {
	return DuplicateKey{
		Date:                date.Format("2006-01-02"),
		Amount:              amount.StringFixed(2),
		OriginalDescription: original,
	}
}

// ImportResult is the outcome of one statement import.
type ImportResult struct {
	BatchID            string        `json:"batch_id"`
	TotalRows          int           `json:"total_rows"`
	Imported           int           `json:"imported"`
	Skipped            int           `json:"skipped"`
	UncategorizedCount int           `json:"uncategorized_count"`
	Errors             []string      `json:"errors"`
	Transactions       []Transaction `json:"transactions"`
	ArchiveKey         string        `json:"archive_key,omitempty"`
}
