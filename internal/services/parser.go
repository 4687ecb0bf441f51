package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ashmitsharp/contaspiccioli-api/internal/logger"
	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// BankFormat is the statement layout hint given by the caller.
type BankFormat string

const (
	FormatGeneric BankFormat = "generic"
	FormatIntesa  BankFormat = "intesa"
	FormatFineco  BankFormat = "fineco"
	FormatN26     BankFormat = "n26"
	FormatRevolut BankFormat = "revolut"
)

// ParseBankFormat maps a hint onto a known format. Unknown hints are generic.
func ParseBankFormat(s string) BankFormat {
	switch f := BankFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatIntesa, FormatFineco, FormatN26, FormatRevolut:
		return f
	default:
		return FormatGeneric
	}
}

// columnHints are the lowercased header names tried, in order, for each field.
type columnHints struct {
	Date        []string
	Description []string
	Amount      []string
}

var genericHints = columnHints{
	Date:        []string{"data", "date", "data operazione", "data valuta", "data contabile"},
	Description: []string{"descrizione", "description", "causale", "descrizione operazione", "dettagli"},
	Amount:      []string{"importo", "amount", "dare/avere", "importo eur"},
}

// ErrNoRows is returned when a statement has no header row.
var ErrNoRows = errors.New("empty statement")

// Parser turns bank statement exports into ParsedTransactions
type Parser struct {
	bankHints map[BankFormat]columnHints
}

// NewParser creates a new parser with the headers used by the supported banks.
// Bank specific names are tried before the generic ones.
func NewParser() *Parser {
	return &Parser{
		bankHints: map[BankFormat]columnHints{
			FormatIntesa: {
				Date:        []string{"data contabile", "data operazione"},
				Description: []string{"descrizione", "operazione", "dettagli"},
				Amount:      []string{"importo"},
			},
			FormatFineco: {
				Date:        []string{"data_operazione", "data operazione", "data"},
				Description: []string{"descrizione_completa", "descrizione completa", "descrizione"},
				Amount:      []string{"importo"},
			},
			FormatN26: {
				Date:        []string{"booking date", "value date", "date"},
				Description: []string{"payee", "partner name", "payment reference"},
				Amount:      []string{"amount (eur)", "amount"},
			},
			FormatRevolut: {
				Date:        []string{"completed date", "started date"},
				Description: []string{"description"},
				Amount:      []string{"amount"},
			},
		},
	}
}

// columnMap holds the resolved column indexes of a statement, -1 when unused.
type columnMap struct {
	date, description, amount int
	income, expense           int
}

func (p *Parser) mapColumns(format BankFormat, headers []string) columnMap {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	find := func(bank, generic []string) int {
		for _, candidates := range [][]string{bank, generic} {
			for _, c := range candidates {
				if i, ok := index[c]; ok {
					return i
				}
			}
		}
		return -1
	}

	hints := p.bankHints[format]
	cols := columnMap{
		date:        find(hints.Date, genericHints.Date),
		description: find(hints.Description, genericHints.Description),
		amount:      find(hints.Amount, genericHints.Amount),
		income:      -1,
		expense:     -1,
	}

	in, hasIn := index["entrate"]
	out, hasOut := index["uscite"]
	if hasIn && hasOut {
		cols.income, cols.expense = in, out
		if cols.amount < 0 {
			cols.amount = out
		}
	}

	if cols.date < 0 && len(headers) > 0 {
		cols.date = 0
	}
	if cols.description < 0 && len(headers) > 1 {
		cols.description = 1
	}
	if cols.amount < 0 && len(headers) > 2 {
		cols.amount = 2
	}
	return cols
}

// DetectDelimiter inspects the header line: semicolon, then tab, else comma.
func DetectDelimiter(content string) rune {
	first, _, _ := strings.Cut(content, "\n")
	switch {
	case strings.Contains(first, ";"):
		return ';'
	case strings.Contains(first, "\t"):
		return '\t'
	default:
		return ','
	}
}

var dateLayouts = []string{
	"02/01/2006",
	"02-01-2006",
	"2006-01-02",
	"02/01/06",
	"02.01.2006",
}

// ParseDate parses the day-first and ISO layouts used by Italian banks. A
// trailing time of day ("2026-01-15 10:22:11") is ignored.
func ParseDate(dateStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t, nil
		}
	}
	if day, _, ok := strings.Cut(dateStr, " "); ok {
		return ParseDate(day)
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %q", dateStr)
}

// ParseAmount parses European ("1.234,56") and US ("1,234.56") amounts.
// When both separators appear the rightmost one is the decimal separator; a
// lone comma is decimal.
func ParseAmount(amountStr string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '€', '$', '£', ' ', '\u00a0':
			return -1
		}
		return r
	}, strings.TrimSpace(amountStr))

	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case lastComma >= 0 && lastDot >= 0:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case lastComma >= 0:
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount: %q", amountStr)
	}
	return amount, nil
}

var descriptionPrefixes = []string{"PAGAMENTO POS ", "ADDEBITO SDD ", "BONIFICO ", "ACCREDITO "}

// CleanDescription collapses whitespace and strips the bank's operation prefix.
func CleanDescription(description string) string {
	description = strings.Join(strings.Fields(description), " ")
	for _, prefix := range descriptionPrefixes {
		if strings.HasPrefix(strings.ToUpper(description), prefix) {
			description = description[len(prefix):]
		}
	}
	return strings.TrimSpace(description)
}

// ParseStatement parses CSV statement content. Rows that cannot be parsed are
// logged and skipped.
func (p *Parser) ParseStatement(ctx context.Context, content string, format BankFormat) ([]models.ParsedTransaction, error) {
	content = strings.TrimPrefix(content, "\ufeff")
	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = DetectDelimiter(content)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, row)
	}
	return p.ParseRows(ctx, rows, format)
}

// ParseXLSX parses the first sheet of an XLSX statement.
func (p *Parser) ParseXLSX(ctx context.Context, r io.Reader, format BankFormat) ([]models.ParsedTransaction, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoRows
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return p.ParseRows(ctx, rows, format)
}

// ParseRows maps a header row plus data rows onto transactions.
func (p *Parser) ParseRows(ctx context.Context, rows [][]string, format BankFormat) ([]models.ParsedTransaction, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	log := logger.FromContext(ctx)
	cols := p.mapColumns(format, rows[0])

	transactions := make([]models.ParsedTransaction, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rowNum := i + 2
		if isEmptyRow(row) || isSummaryRow(row) {
			continue
		}

		txn, err := parseRow(row, cols)
		if err != nil {
			log.Warn().Int("row", rowNum).Err(err).Msg("skipping statement row")
			continue
		}
		txn.Row = rowNum
		transactions = append(transactions, txn)
	}
	return transactions, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseRow(row []string, cols columnMap) (models.ParsedTransaction, error) {
	var txn models.ParsedTransaction

	date, err := ParseDate(cell(row, cols.date))
	if err != nil {
		return txn, err
	}

	description := cell(row, cols.description)
	if description == "" {
		return txn, fmt.Errorf("empty description")
	}

	var amount decimal.Decimal
	if cols.income >= 0 {
		income, inErr := ParseAmount(cell(row, cols.income))
		expense, outErr := ParseAmount(cell(row, cols.expense))
		if inErr != nil && outErr != nil {
			return txn, fmt.Errorf("no amount in entrate/uscite")
		}
		amount = income.Sub(expense.Abs())
	} else {
		amount, err = ParseAmount(cell(row, cols.amount))
		if err != nil {
			return txn, err
		}
	}

	txn.Date = date
	txn.Amount = amount.Round(2)
	txn.Description = CleanDescription(description)
	txn.OriginalDescription = description
	return txn, nil
}

// isEmptyRow checks if all fields in a row are empty
func isEmptyRow(row []string) bool {
	for _, field := range row {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// isSummaryRow matches the balance and total lines some exports append.
func isSummaryRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(row[0]))
	for _, kw := range []string{"totale", "saldo iniziale", "saldo finale", "saldo contabile"} {
		if strings.HasPrefix(first, kw) {
			return true
		}
	}
	return false
}
