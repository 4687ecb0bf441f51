package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ashmitsharp/contaspiccioli-api/internal/database"
	"github.com/ashmitsharp/contaspiccioli-api/internal/logger"
	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/google/uuid"
)

// StatementArchive keeps the raw statements that were imported.
// *StorageService implements it.
type StatementArchive interface {
	GenerateStatementKey(year, month int, filename string) (string, error)
	UploadFile(ctx context.Context, key string, body io.Reader, contentType string) error
	DownloadFile(ctx context.Context, key string) (io.ReadCloser, error)
	DeleteFile(ctx context.Context, key string) error
}

// ImportService turns bank statements into categorized transactions
type ImportService struct {
	store       database.Store
	parser      *Parser
	categorizer *Categorizer
	validator   *FileValidator
	archive     StatementArchive
}

func NewImportService(store database.Store, categorizer *Categorizer, validator *FileValidator) *ImportService {
	return &ImportService{
		store:       store,
		parser:      NewParser(),
		categorizer: categorizer,
		validator:   validator,
	}
}

// WithArchive stores every uploaded statement before it is imported.
func (s *ImportService) WithArchive(archive StatementArchive) *ImportService {
	s.archive = archive
	return s
}

func validatePeriod(year, month int) error {
	if month < 1 || month > 12 {
		return models.Invalidf("month must be between 1 and 12, got %d", month)
	}
	if year < 2000 || year > 2100 {
		return models.Invalidf("year out of range: %d", year)
	}
	return nil
}

func emptyResult() *models.ImportResult {
	return &models.ImportResult{
		BatchID:      uuid.NewString(),
		Errors:       []string{},
		Transactions: []models.Transaction{},
	}
}

// ImportStatement imports the rows of a CSV statement dated within
// (year, month). Rows already stored, or repeated within the statement, are
// skipped. Parse problems are reported in the result, not as an error.
func (s *ImportService) ImportStatement(ctx context.Context, content string, year, month int, format BankFormat) (*models.ImportResult, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}
	parsed, err := s.parser.ParseStatement(ctx, content, format)
	if err != nil && !errors.Is(err, ErrNoRows) {
		res := emptyResult()
		res.Errors = append(res.Errors, fmt.Sprintf("Failed to parse CSV: %v", err))
		return res, nil
	}
	return s.importParsed(ctx, parsed, year, month)
}

// ImportFile validates an uploaded statement, archives it when an archive is
// configured, then imports it.
func (s *ImportService) ImportFile(ctx context.Context, r io.Reader, filename, contentType string, year, month int, format BankFormat) (*models.ImportResult, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}

	validation, data, err := s.validator.ValidateFile(r, filename, contentType)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		return nil, fmt.Errorf("%w: %w", validation.Err(), models.ErrInvalidArgument)
	}

	var key string
	if s.archive != nil {
		key, err = s.archive.GenerateStatementKey(year, month, filename)
		if err != nil {
			return nil, err
		}
		if err := s.archive.UploadFile(ctx, key, bytes.NewReader(data), contentType); err != nil {
			return nil, fmt.Errorf("failed to archive statement: %w", err)
		}
	}

	res, err := s.importData(ctx, data, validation.DetectedType, year, month, format)
	if err != nil || res.Imported == 0 {
		s.discardArchived(ctx, key)
		return res, err
	}
	res.ArchiveKey = key
	return res, nil
}

// discardArchived removes a statement that contributed nothing. Failures are
// only logged; the import result stands.
func (s *ImportService) discardArchived(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.archive.DeleteFile(ctx, key); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("key", key).Msg("failed to remove unused statement")
	}
}

// ImportArchived imports a statement previously stored under key, for
// example one uploaded through a presigned URL.
func (s *ImportService) ImportArchived(ctx context.Context, key string, year, month int, format BankFormat) (*models.ImportResult, error) {
	if s.archive == nil {
		return nil, models.Invalidf("statement storage is not configured")
	}
	if key == "" {
		return nil, models.Invalidf("key is required")
	}
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}

	body, err := s.archive.DownloadFile(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, s.validator.maxSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read archived statement: %w", err)
	}
	if err := s.validator.ValidateFileSize(int64(len(data))); err != nil {
		return nil, fmt.Errorf("%w: %w", err, models.ErrInvalidArgument)
	}
	detected, err := s.validator.ValidateMagicBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", err, models.ErrInvalidArgument)
	}

	res, err := s.importData(ctx, data, detected, year, month, format)
	if err != nil {
		return nil, err
	}
	res.ArchiveKey = key
	return res, nil
}

func (s *ImportService) importData(ctx context.Context, data []byte, detected string, year, month int, format BankFormat) (*models.ImportResult, error) {
	if detected == TypeXLSX {
		parsed, err := s.parser.ParseXLSX(ctx, bytes.NewReader(data), format)
		if err != nil && !errors.Is(err, ErrNoRows) {
			res := emptyResult()
			res.Errors = append(res.Errors, fmt.Sprintf("Failed to parse XLSX: %v", err))
			return res, nil
		}
		return s.importParsed(ctx, parsed, year, month)
	}
	return s.ImportStatement(ctx, string(data), year, month, format)
}

func (s *ImportService) importParsed(ctx context.Context, parsed []models.ParsedTransaction, year, month int) (*models.ImportResult, error) {
	log := logger.FromContext(ctx)
	res := emptyResult()

	if len(parsed) == 0 {
		res.Errors = append(res.Errors, "No transactions found in CSV")
		return res, nil
	}
	res.TotalRows = len(parsed)

	inMonth := make([]models.ParsedTransaction, 0, len(parsed))
	for _, p := range parsed {
		if p.Date.Year() == year && int(p.Date.Month()) == month {
			inMonth = append(inMonth, p)
		}
	}
	res.Skipped = res.TotalRows - len(inMonth)
	if len(inMonth) == 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("No transactions found for %d/%d", month, year))
		return res, nil
	}

	// Categorize before the write transaction: the categorizer reads
	// through its own store handle.
	candidates := make([]models.Transaction, 0, len(inMonth))
	for _, p := range inMonth {
		cat, err := s.categorizer.Categorize(ctx, p.OriginalDescription)
		if err != nil {
			return nil, err
		}
		txn := models.Transaction{
			Date:                models.Date(p.Date),
			Amount:              p.Amount,
			Description:         p.Description,
			OriginalDescription: p.OriginalDescription,
			Source:              models.SourceBankImport,
			IsIncome:            p.Amount.IsPositive(),
			IsTaxable:           p.Amount.IsPositive(),
			ImportBatchID:       res.BatchID,
		}
		if cat != nil {
			txn.CategoryID = &cat.ID
		}
		candidates = append(candidates, txn)
	}

	var imported []models.Transaction
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		imported = imported[:0]
		seen := make(map[models.DuplicateKey]bool, len(candidates))
		for _, txn := range candidates {
			key := models.KeyFor(txn.Date, txn.Amount, txn.OriginalDescription)
			if seen[key] {
				continue
			}
			seen[key] = true

			exists, err := tx.TransactionExists(ctx, key)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			if err := tx.CreateTransaction(ctx, &txn); err != nil {
				return err
			}
			imported = append(imported, txn)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Imported = len(imported)
	res.Skipped += len(candidates) - len(imported)
	res.Transactions = append(res.Transactions, imported...)
	for _, txn := range imported {
		if txn.CategoryID == nil {
			res.UncategorizedCount++
		}
	}

	log.Info().
		Str("batch_id", res.BatchID).
		Int("year", year).
		Int("month", month).
		Int("total_rows", res.TotalRows).
		Int("imported", res.Imported).
		Int("skipped", res.Skipped).
		Int("uncategorized", res.UncategorizedCount).
		Msg("statement imported")
	return res, nil
}

// ListUncategorized returns transactions without a category, newest first.
// Zero year or month means no filter.
func (s *ImportService) ListUncategorized(ctx context.Context, year, month int) ([]models.Transaction, error) {
	filter := models.TransactionFilter{Uncategorized: true, Year: year}
	if year != 0 {
		filter.Month = month
	}
	return s.store.ListTransactions(ctx, filter)
}

// CategorizeAndLearn assigns a category to a transaction. With learn set, a
// keyword from the transaction is also added to the category.
func (s *ImportService) CategorizeAndLearn(ctx context.Context, transactionID, categoryID int64, learn bool) (*models.Transaction, error) {
	if learn {
		if _, err := s.categorizer.Learn(ctx, transactionID, categoryID); err != nil {
			return nil, err
		}
		return s.store.GetTransaction(ctx, transactionID)
	}

	var out *models.Transaction
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		txn, err := tx.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if _, err := tx.GetCategory(ctx, categoryID); err != nil {
			return err
		}
		txn.CategoryID = &categoryID
		if err := tx.UpdateTransaction(ctx, txn); err != nil {
			return err
		}
		out = txn
		return nil
	})
	return out, err
}
