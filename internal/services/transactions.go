package services

import (
	"context"
	"strings"

	"github.com/ashmitsharp/contaspiccioli-api/internal/database"
	"github.com/ashmitsharp/contaspiccioli-api/internal/logger"
	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/ashmitsharp/contaspiccioli-api/internal/money"
)

// TransactionService manages ledger transactions outside the import flow
type TransactionService struct {
	store database.Store
}

func NewTransactionService(store database.Store) *TransactionService {
	return &TransactionService{store: store}
}

func (s *TransactionService) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	if filter.Month < 0 || filter.Month > 12 {
		return nil, models.Invalidf("month must be between 1 and 12, got %d", filter.Month)
	}
	return s.store.ListTransactions(ctx, filter)
}

func (s *TransactionService) Get(ctx context.Context, id int64) (*models.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// Create records a manual transaction. The sign of the amount decides
// IsIncome; the original description defaults to the description.
func (s *TransactionService) Create(ctx context.Context, txn models.Transaction) (*models.Transaction, error) {
	txn.Description = strings.TrimSpace(txn.Description)
	if txn.Description == "" {
		return nil, models.Invalidf("description is required")
	}
	if txn.Date.IsZero() {
		return nil, models.Invalidf("date is required")
	}
	if txn.Amount.IsZero() {
		return nil, models.Invalidf("amount must not be zero")
	}

	txn.ID = 0
	txn.Date = models.Date(txn.Date)
	txn.Amount = money.Round(txn.Amount)
	txn.IsIncome = txn.Amount.IsPositive()
	txn.Source = models.SourceManual
	txn.ImportBatchID = ""
	if txn.OriginalDescription == "" {
		txn.OriginalDescription = txn.Description
	}

	err := s.store.WithTx(ctx, func(tx database.Store) error {
		if err := checkReferences(ctx, tx, txn.CategoryID, txn.AccountID); err != nil {
			return err
		}
		return tx.CreateTransaction(ctx, &txn)
	})
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int64("transaction_id", txn.ID).
		Str("amount", txn.Amount.StringFixed(2)).
		Msg("manual transaction created")
	return &txn, nil
}

func (s *TransactionService) Update(ctx context.Context, id int64, patch models.TransactionPatch) (*models.Transaction, error) {
	if patch.Amount != nil && patch.Amount.IsZero() {
		return nil, models.Invalidf("amount must not be zero")
	}
	if patch.Description != nil && strings.TrimSpace(*patch.Description) == "" {
		return nil, models.Invalidf("description is required")
	}

	var out *models.Transaction
	err := s.store.WithTx(ctx, func(tx database.Store) error {
		txn, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if err := checkReferences(ctx, tx, patch.CategoryID, patch.AccountID); err != nil {
			return err
		}
		patch.Apply(txn)
		if err := tx.UpdateTransaction(ctx, txn); err != nil {
			return err
		}
		out = txn
		return nil
	})
	return out, err
}

func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	log.Info().Int64("transaction_id", id).Msg("transaction deleted")
	return nil
}

// checkReferences fails with NotFound when a referenced category or account
// does not exist.
func checkReferences(ctx context.Context, store database.Store, categoryID, accountID *int64) error {
	if categoryID != nil {
		if _, err := store.GetCategory(ctx, *categoryID); err != nil {
			return err
		}
	}
	if accountID == nil {
		return nil
	}
	accounts, err := store.ListAccounts(ctx)
	if err != nil {
		return err
	}
	for _, a := range accounts {
		if a.ID == *accountID {
			return nil
		}
	}
	return models.NotFoundf("account %d", *accountID)
}
