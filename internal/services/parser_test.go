package services

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/" + name)
	require.NoError(t, err)
	return string(data)
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, ';', DetectDelimiter("Data;Descrizione;Importo\n01/01/2026;x;1,00"))
	assert.Equal(t, '\t', DetectDelimiter("Date\tPayee\tAmount\n"))
	assert.Equal(t, ',', DetectDelimiter("Date,Description,Amount"))
	// Only the header line is inspected.
	assert.Equal(t, ',', DetectDelimiter("Date,Description,Amount\n01/01/2026;a;b"))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"15/01/2026", time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)},
		{"15-01-2026", time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)},
		{"2026-01-15", time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)},
		{"15/01/26", time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)},
		{"15.01.2026", time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)},
		{" 2026-01-15 10:22:11 ", time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, input := range []string{"", "31/02/2026", "gennaio 2026", "01/15/2026"} {
		_, err := ParseDate(input)
		assert.Error(t, err, input)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1.234,56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"-45,30", "-45.30"},
		{"12.50", "12.50"},
		{"1.234.567,89", "1234567.89"},
		{"€ 1.000,00", "1000.00"},
		{"-89.99 $", "-89.99"},
		{"£3", "3"},
		{"3500", "3500"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			require.NoError(t, err)
			assertDecimal(t, tt.want, got)
		})
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, input := range []string{"", " ", "abc", "€", "1,2,3.4.5x"} {
		_, err := ParseAmount(input)
		assert.Error(t, err, input)
	}
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "ESSELUNGA MILANO", CleanDescription("PAGAMENTO POS   ESSELUNGA  MILANO"))
	assert.Equal(t, "ENEL ENERGIA", CleanDescription("Addebito SDD ENEL ENERGIA"))
	assert.Equal(t, "DA ACME SRL", CleanDescription("BONIFICO DA ACME SRL"))
	assert.Equal(t, "Netflix", CleanDescription(" Netflix "))
}

func TestParseBankFormat(t *testing.T) {
	assert.Equal(t, FormatIntesa, ParseBankFormat("Intesa"))
	assert.Equal(t, FormatRevolut, ParseBankFormat(" revolut "))
	assert.Equal(t, FormatGeneric, ParseBankFormat("unicredit"))
	assert.Equal(t, FormatGeneric, ParseBankFormat(""))
}

func TestParseStatement_Generic(t *testing.T) {
	p := NewParser()
	txns, err := p.ParseStatement(testContext(), readFixture(t, "generic_sample.csv"), FormatGeneric)
	require.NoError(t, err)
	require.Len(t, txns, 5)

	first := txns[0]
	assert.Equal(t, time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC), first.Date)
	assertDecimal(t, "-45.30", first.Amount)
	assert.Equal(t, "ESSELUNGA MILANO", first.Description)
	assert.Equal(t, "PAGAMENTO POS ESSELUNGA MILANO", first.OriginalDescription)
	assert.Equal(t, 2, first.Row)

	assertDecimal(t, "3500.00", txns[1].Amount)
}

func TestParseStatement_Intesa(t *testing.T) {
	txns, err := NewParser().ParseStatement(testContext(), readFixture(t, "intesa_sample.csv"), FormatIntesa)
	require.NoError(t, err)
	require.Len(t, txns, 3, "empty and balance rows are skipped")

	assert.Equal(t, time.Date(2026, time.February, 2, 0, 0, 0, 0, time.UTC), txns[0].Date)
	assertDecimal(t, "-23.40", txns[0].Amount)
	assertDecimal(t, "1250.00", txns[1].Amount)
	assert.Equal(t, "COMPENSO CLIENTE", txns[1].Description)
}

func TestParseStatement_FinecoIncomeAndExpenseColumns(t *testing.T) {
	txns, err := NewParser().ParseStatement(testContext(), readFixture(t, "fineco_sample.csv"), FormatFineco)
	require.NoError(t, err)
	require.Len(t, txns, 3, "the row with a bad date is skipped")

	assertDecimal(t, "-45.00", txns[0].Amount)
	assert.Equal(t, "AMAZON MKTPLACE PMTS", txns[0].OriginalDescription)
	assertDecimal(t, "3000.00", txns[1].Amount)
	assert.Equal(t, "BONIFICO DA UFFICIO FURORE SRL", txns[1].OriginalDescription)
	assertDecimal(t, "-12.50", txns[2].Amount)
}

func TestParseStatement_N26(t *testing.T) {
	txns, err := NewParser().ParseStatement(testContext(), readFixture(t, "n26_sample.csv"), FormatN26)
	require.NoError(t, err)
	require.Len(t, txns, 3)

	assert.Equal(t, "Spotify AB", txns[0].Description)
	assertDecimal(t, "-10.99", txns[0].Amount)
	assertDecimal(t, "1200.50", txns[1].Amount)
}

func TestParseStatement_Revolut(t *testing.T) {
	txns, err := NewParser().ParseStatement(testContext(), readFixture(t, "revolut_sample.csv"), FormatRevolut)
	require.NoError(t, err)
	require.Len(t, txns, 2, "the pending row has no completed date")

	assert.Equal(t, time.Date(2026, time.May, 3, 0, 0, 0, 0, time.UTC), txns[0].Date)
	assert.Equal(t, "Ryanair", txns[0].Description)
	assertDecimal(t, "-89.99", txns[0].Amount)
}

func TestParseStatement_FallbackColumns(t *testing.T) {
	content := "Quando,Cosa,Quanto\n01/06/2026,Caffe,\"1,20\"\n"
	txns, err := NewParser().ParseStatement(testContext(), content, FormatGeneric)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "Caffe", txns[0].Description)
	assertDecimal(t, "1.20", txns[0].Amount)
}

func TestParseStatement_Empty(t *testing.T) {
	_, err := NewParser().ParseStatement(testContext(), "", FormatGeneric)
	assert.ErrorIs(t, err, ErrNoRows)

	txns, err := NewParser().ParseStatement(testContext(), "Data;Descrizione;Importo\n", FormatGeneric)
	require.NoError(t, err)
	assert.Empty(t, txns)
}

// xlsxStatement builds a one-sheet workbook from rows the way a bank export
// would lay it out.
func xlsxStatement(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	data := xlsxStatement(t, [][]interface{}{
		{"Data operazione", "Descrizione", "Importo"},
		{"07/01/2026", "PAGAMENTO POS FARMACIA CENTRALE", "-12,90"},
		{"08/01/2026", "ACCREDITO COMPENSO", "800"},
		{"", "", ""},
		{"Totale", "", "787,10"},
	})

	txns, err := NewParser().ParseXLSX(testContext(), bytes.NewReader(data), FormatGeneric)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "FARMACIA CENTRALE", txns[0].Description)
	assertDecimal(t, "-12.90", txns[0].Amount)
	assertDecimal(t, "800", txns[1].Amount)
}

func TestParseXLSX_NotAWorkbook(t *testing.T) {
	_, err := NewParser().ParseXLSX(testContext(), bytes.NewReader([]byte("Data;Descrizione")), FormatGeneric)
	assert.Error(t, err)
}
