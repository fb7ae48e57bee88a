package rfm

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// Column names recognised in the header row.
const (
	ColumnCustomerID        = "customer_id"
	ColumnCustomerName      = "customer_name"
	ColumnTransactionDate   = "transaction_date"
	ColumnTransactionAmount = "transaction_amount"
)

var requiredColumns = []string{ColumnCustomerID, ColumnTransactionDate, ColumnTransactionAmount}

// Accepted transaction_date layouts, tried in order. Anything with a time
// part is truncated to its UTC calendar date.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Transaction is a typed, validated input row.
type Transaction struct {
	CustomerID   string
	CustomerName string
	Date         time.Time
	Amount       float64
}

// RowStatus tags the outcome of reading one data row.
type RowStatus int

const (
	ParsedRow RowStatus = iota
	SkippedRow
)

func (s RowStatus) String() string {
	if s == ParsedRow {
		return "parsed"
	}
	return "skipped"
}

// Row is one data row of the input. Skipped rows are part of the leniency
// policy for ragged or unusable input and never surface as errors.
type Row struct {
	// Index is the 1-based position of the row among the non-blank data rows.
	Index       int
	Status      RowStatus
	Reason      string
	Transaction Transaction
}

// ParseOptions controls how raw delimited text is read.
type ParseOptions struct {
	// Comma is the field delimiter shared by the header and data rows.
	Comma rune
}

func (o ParseOptions) comma() rune {
	if o.Comma == 0 {
		return ','
	}
	return o.Comma
}

// ParseCSV reads delimited text with a header row and returns the parsed
// transactions. Skipped rows are dropped silently.
func ParseCSV(r io.Reader, opts ParseOptions) ([]Transaction, error) {
	rows, err := ParseRows(r, opts)
	if err != nil {
		return nil, err
	}

	transactions := make([]Transaction, 0, len(rows))
	for _, row := range rows {
		if row.Status == ParsedRow {
			transactions = append(transactions, row.Transaction)
		}
	}
	if len(transactions) == 0 {
		return nil, ErrNoValidTransactions
	}
	return transactions, nil
}

// ParseRows validates the header and tags every data row as parsed or
// skipped. It fails only on file-level problems.
func ParseRows(r io.Reader, opts ParseOptions) ([]Row, error) {
	lines, err := nonBlankLines(r)
	if err != nil {
		return nil, err
	}
	if len(lines) < 2 {
		return nil, ErrEmptyFile
	}

	comma := string(opts.comma())
	header := strings.Split(lines[0], comma)
	columns := headerIndex(header)
	if missing := missingColumns(columns); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}
	_, hasName := columns[ColumnCustomerName]

	// Each line is one row; quotes carry no meaning, so a malformed row
	// never swallows the rows after it.
	rows := make([]Row, 0, len(lines)-1)
	for i, line := range lines[1:] {
		n := i + 1
		record := strings.Split(line, comma)
		if len(record) != len(header) {
			rows = append(rows, Row{Index: n, Status: SkippedRow, Reason: "field count does not match header"})
			continue
		}
		rows = append(rows, parseRecord(n, record, columns, hasName))
	}
	return rows, nil
}

func parseRecord(n int, record []string, columns map[string]int, hasName bool) Row {
	field := func(name string) string {
		return strings.TrimSpace(record[columns[name]])
	}

	tx := Transaction{CustomerID: field(ColumnCustomerID)}
	if tx.CustomerID == "" {
		return Row{Index: n, Status: SkippedRow, Reason: "empty customer_id"}
	}
	if hasName {
		tx.CustomerName = field(ColumnCustomerName)
	}

	date, err := ParseDate(field(ColumnTransactionDate))
	if err != nil {
		return Row{Index: n, Status: SkippedRow, Reason: err.Error()}
	}
	tx.Date = date

	amount, err := strconv.ParseFloat(field(ColumnTransactionAmount), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Row{Index: n, Status: SkippedRow, Reason: "transaction_amount is not a finite number"}
	}
	tx.Amount = amount

	return Row{Index: n, Status: ParsedRow, Transaction: tx}
}

// ParseDate reads a transaction date and returns midnight UTC of that day.
func ParseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid transaction_date %q", value)
}

func nonBlankLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var lines []string
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return lines, nil
}

func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}
	return index
}

func missingColumns(index map[string]int) []string {
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
