package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/ashmitsharp/contaspiccioli-api/internal/database"
	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeArchive keeps uploaded statements in memory
type fakeArchive struct {
	files     map[string][]byte
	uploadErr error
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{files: map[string][]byte{}}
}

func (a *fakeArchive) GenerateStatementKey(year, month int, filename string) (string, error) {
	return fmt.Sprintf("statements/%d/%02d/%d-%s", year, month, len(a.files), filename), nil
}

func (a *fakeArchive) UploadFile(ctx context.Context, key string, body io.Reader, contentType string) error {
	if a.uploadErr != nil {
		return a.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	a.files[key] = data
	return nil
}

func (a *fakeArchive) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := a.files[key]
	if !ok {
		return nil, models.NotFoundf("statement %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (a *fakeArchive) DeleteFile(ctx context.Context, key string) error {
	delete(a.files, key)
	return nil
}

func newImportService(store database.Store) *ImportService {
	return NewImportService(store, NewCategorizer(store), NewFileValidator(5*1024*1024))
}

func TestImportStatement_GenericSample(t *testing.T) {
	ctx := testContext()
	store := seededStore(t)
	svc := newImportService(store)

	res, err := svc.ImportStatement(ctx, readFixture(t, "generic_sample.csv"), 2026, 1, FormatGeneric)
	require.NoError(t, err)

	assert.NotEmpty(t, res.BatchID)
	assert.Equal(t, 5, res.TotalRows)
	assert.Equal(t, 5, res.Imported)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 1, res.UncategorizedCount)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Transactions, 5)

	byDescription := map[string]models.Transaction{}
	for _, txn := range res.Transactions {
		assert.Equal(t, models.SourceBankImport, txn.Source)
		assert.Equal(t, res.BatchID, txn.ImportBatchID)
		assert.NotZero(t, txn.ID)
		byDescription[txn.OriginalDescription] = txn
	}

	invoice := byDescription["BONIFICO FATTURA 12/2025 ACME SRL"]
	assertDecimal(t, "3500", invoice.Amount)
	assert.True(t, invoice.IsIncome)
	assert.True(t, invoice.IsTaxable)
	require.NotNil(t, invoice.CategoryID)
	assert.Equal(t, categoryByName(t, store, "Fatture").ID, *invoice.CategoryID)

	grocery := byDescription["PAGAMENTO POS ESSELUNGA MILANO"]
	assertDecimal(t, "-45.30", grocery.Amount)
	assert.False(t, grocery.IsIncome)
	assert.False(t, grocery.IsTaxable)
	require.NotNil(t, grocery.CategoryID)
	assert.Equal(t, categoryByName(t, store, "Alimentari").ID, *grocery.CategoryID)

	assert.Nil(t, byDescription["PAGAMENTO POS GELATERIA VENCHI"].CategoryID)

	stored, err := store.ListTransactions(ctx, models.TransactionFilter{Year: 2026, Month: 1})
	require.NoError(t, err)
	assert.Len(t, stored, 5)
}

func TestImportStatement_ReimportSkipsDuplicates(t *testing.T) {
	ctx := testContext()
	store := seededStore(t)
	svc := newImportService(store)
	content := readFixture(t, "generic_sample.csv")

	first, err := svc.ImportStatement(ctx, content, 2026, 1, FormatGeneric)
	require.NoError(t, err)
	require.Equal(t, 5, first.Imported)

	second, err := svc.ImportStatement(ctx, content, 2026, 1, FormatGeneric)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 5, second.Skipped)
	assert.NotEqual(t, first.BatchID, second.BatchID)

	stored, err := store.ListTransactions(ctx, models.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 5)
}

func TestImportStatement_DuplicateRowsWithinFile(t *testing.T) {
	svc := newImportService(seededStore(t))
	content := "Data;Descrizione;Importo\n" +
		"05/01/2026;PAGAMENTO POS ESSELUNGA MILANO;-45,30\n" +
		"05/01/2026;PAGAMENTO POS ESSELUNGA MILANO;-45,30\n"

	res, err := svc.ImportStatement(testContext(), content, 2026, 1, FormatGeneric)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalRows)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Skipped)
}

func TestImportStatement_OtherMonth(t *testing.T) {
	svc := newImportService(seededStore(t))

	res, err := svc.ImportStatement(testContext(), readFixture(t, "generic_sample.csv"), 2026, 2, FormatGeneric)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, 5, res.Skipped)
	assert.Equal(t, []string{"No transactions found for 2/2026"}, res.Errors)
}

func TestImportStatement_RowsOutsideMonthAreSkipped(t *testing.T) {
	svc := newImportService(seededStore(t))
	content := "Data;Descrizione;Importo\n" +
		"31/12/2025;PAGAMENTO POS ESSELUNGA MILANO;-10,00\n" +
		"02/01/2026;PAGAMENTO POS ESSELUNGA MILANO;-20,00\n"

	res, err := svc.ImportStatement(testContext(), content, 2026, 1, FormatGeneric)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	assertDecimal(t, "-20", res.Transactions[0].Amount)
}

func TestImportStatement_NoRows(t *testing.T) {
	svc := newImportService(seededStore(t))

	res, err := svc.ImportStatement(testContext(), "Data;Descrizione;Importo\n", 2026, 1, FormatGeneric)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, []string{"No transactions found in CSV"}, res.Errors)
}

func TestImportStatement_InvalidMonth(t *testing.T) {
	svc := newImportService(seededStore(t))

	for _, month := range []int{0, 13} {
		_, err := svc.ImportStatement(testContext(), "x", 2026, month, FormatGeneric)
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	}
}

func TestImportStatement_BankFormats(t *testing.T) {
	tests := []struct {
		fixture  string
		format   BankFormat
		year     int
		month    int
		imported int
	}{
		{"intesa_sample.csv", FormatIntesa, 2026, 2, 3},
		{"fineco_sample.csv", FormatFineco, 2026, 3, 3},
		{"n26_sample.csv", FormatN26, 2026, 4, 3},
		{"revolut_sample.csv", FormatRevolut, 2026, 5, 2},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			svc := newImportService(seededStore(t))
			res, err := svc.ImportStatement(testContext(), readFixture(t, tt.fixture), tt.year, tt.month, tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.imported, res.Imported, res.Errors)
		})
	}
}

func TestImportFile_ArchivesAndImports(t *testing.T) {
	ctx := testContext()
	archive := newFakeArchive()
	svc := newImportService(seededStore(t)).WithArchive(archive)
	content := readFixture(t, "generic_sample.csv")

	res, err := svc.ImportFile(ctx, bytes.NewReader([]byte(content)), "gennaio.csv", "text/csv", 2026, 1, FormatGeneric)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Imported)
	require.NotEmpty(t, res.ArchiveKey)
	assert.Equal(t, content, string(archive.files[res.ArchiveKey]))
}

func TestImportFile_DiscardsStatementsThatImportNothing(t *testing.T) {
	ctx := testContext()
	archive := newFakeArchive()
	svc := newImportService(seededStore(t)).WithArchive(archive)
	content := []byte(readFixture(t, "generic_sample.csv"))

	res, err := svc.ImportFile(ctx, bytes.NewReader(content), "gennaio.csv", "text/csv", 2026, 2, FormatGeneric)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Imported)
	assert.Empty(t, res.ArchiveKey)
	assert.Empty(t, archive.files)

	first, err := svc.ImportFile(ctx, bytes.NewReader(content), "gennaio.csv", "text/csv", 2026, 1, FormatGeneric)
	require.NoError(t, err)
	require.NotEmpty(t, first.ArchiveKey)

	again, err := svc.ImportFile(ctx, bytes.NewReader(content), "gennaio.csv", "text/csv", 2026, 1, FormatGeneric)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Imported)
	assert.Empty(t, again.ArchiveKey)
	assert.Len(t, archive.files, 1)
	assert.Contains(t, archive.files, first.ArchiveKey)
}

func TestImportFile_XLSX(t *testing.T) {
	svc := newImportService(seededStore(t))
	data := xlsxStatement(t, [][]interface{}{
		{"Data", "Descrizione", "Importo"},
		{"05/01/2026", "PAGAMENTO POS ESSELUNGA MILANO", "-45,30"},
		{"10/01/2026", "BONIFICO FATTURA ACME", "3.500,00"},
	})

	res, err := svc.ImportFile(testContext(), bytes.NewReader(data), "movimenti.xlsx", xlsxMime, 2026, 1, FormatGeneric)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Empty(t, res.ArchiveKey)
}

func TestImportFile_RejectsInvalidUpload(t *testing.T) {
	svc := newImportService(seededStore(t))

	_, err := svc.ImportFile(testContext(), bytes.NewReader([]byte("a;b\n")), "statement.exe", "application/x-msdownload", 2026, 1, FormatGeneric)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "unsupported file extension")
}

func TestImportFile_ArchiveFailure(t *testing.T) {
	archive := newFakeArchive()
	archive.uploadErr = errors.New("bucket unavailable")
	store := seededStore(t)
	svc := newImportService(store).WithArchive(archive)

	_, err := svc.ImportFile(testContext(), bytes.NewReader([]byte(readFixture(t, "generic_sample.csv"))), "a.csv", "text/csv", 2026, 1, FormatGeneric)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unavailable")

	stored, err := store.ListTransactions(testContext(), models.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestImportArchived(t *testing.T) {
	ctx := testContext()
	archive := newFakeArchive()
	archive.files["statements/2026/01/presigned.csv"] = []byte(readFixture(t, "generic_sample.csv"))
	svc := newImportService(seededStore(t)).WithArchive(archive)

	res, err := svc.ImportArchived(ctx, "statements/2026/01/presigned.csv", 2026, 1, FormatGeneric)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Imported)
	assert.Equal(t, "statements/2026/01/presigned.csv", res.ArchiveKey)

	_, err = svc.ImportArchived(ctx, "statements/missing.csv", 2026, 1, FormatGeneric)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.ImportArchived(ctx, "", 2026, 1, FormatGeneric)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestImportArchived_NoArchive(t *testing.T) {
	svc := newImportService(seededStore(t))
	_, err := svc.ImportArchived(testContext(), "k", 2026, 1, FormatGeneric)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestListUncategorizedAndCategorize(t *testing.T) {
	ctx := testContext()
	store := seededStore(t)
	svc := newImportService(store)

	_, err := svc.ImportStatement(ctx, readFixture(t, "generic_sample.csv"), 2026, 1, FormatGeneric)
	require.NoError(t, err)

	pending, err := svc.ListUncategorized(ctx, 2026, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "PAGAMENTO POS GELATERIA VENCHI", pending[0].OriginalDescription)

	ristoranti := categoryByName(t, store, "Ristoranti")
	txn, err := svc.CategorizeAndLearn(ctx, pending[0].ID, ristoranti.ID, false)
	require.NoError(t, err)
	require.NotNil(t, txn.CategoryID)
	assert.Equal(t, ristoranti.ID, *txn.CategoryID)
	assert.False(t, categoryByName(t, store, "Ristoranti").HasKeyword("GELATERIA"))

	pending, err = svc.ListUncategorized(ctx, 2026, 1)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCategorizeAndLearn_LearnsKeyword(t *testing.T) {
	ctx := testContext()
	store := seededStore(t)
	svc := newImportService(store)

	_, err := svc.ImportStatement(ctx, readFixture(t, "generic_sample.csv"), 2026, 1, FormatGeneric)
	require.NoError(t, err)
	pending, err := svc.ListUncategorized(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	ristoranti := categoryByName(t, store, "Ristoranti")
	_, err = svc.CategorizeAndLearn(ctx, pending[0].ID, ristoranti.ID, true)
	require.NoError(t, err)
	assert.True(t, categoryByName(t, store, "Ristoranti").HasKeyword("GELATERIA"))

	// The next statement with the same shop is auto-categorized.
	res, err := svc.ImportStatement(ctx, "Data;Descrizione;Importo\n03/02/2026;GELATERIA VENCHI TORINO;-6,00\n", 2026, 2, FormatGeneric)
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	require.NotNil(t, res.Transactions[0].CategoryID)
	assert.Equal(t, ristoranti.ID, *res.Transactions[0].CategoryID)
	assert.Equal(t, 0, res.UncategorizedCount)
}

func TestCategorizeAndLearn_NotFound(t *testing.T) {
	ctx := testContext()
	store := seededStore(t)
	svc := newImportService(store)
	altro := categoryByName(t, store, "Altro")

	_, err := svc.CategorizeAndLearn(ctx, 999, altro.ID, false)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = svc.CategorizeAndLearn(ctx, 999, altro.ID, true)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
