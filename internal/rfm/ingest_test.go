package rfm

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseCSV_Valid(t *testing.T) {
	input := "Customer_ID, Transaction_Date ,TRANSACTION_AMOUNT,customer_name\n" +
		"c1,2024-01-05,100.50,Alice\n" +
		"\n" +
		"c2,2024-02-10,20,\n"

	txs, err := ParseCSV(strings.NewReader(input), ParseOptions{})
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, Transaction{CustomerID: "c1", CustomerName: "Alice", Date: day("2024-01-05"), Amount: 100.50}, txs[0])
	assert.Equal(t, Transaction{CustomerID: "c2", Date: day("2024-02-10"), Amount: 20}, txs[1])
}

func TestParseCSV_WithoutNameColumn(t *testing.T) {
	input := "customer_id,transaction_date,transaction_amount\nc1,2024-01-05,10\n"

	txs, err := ParseCSV(strings.NewReader(input), ParseOptions{})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Empty(t, txs[0].CustomerName)
}

func TestParseCSV_MissingColumns(t *testing.T) {
	input := "customer_id,amount\nc1,10\n"

	_, err := ParseCSV(strings.NewReader(input), ParseOptions{})
	require.Error(t, err)

	var columnsErr *MissingColumnsError
	require.True(t, errors.As(err, &columnsErr))
	assert.Equal(t, []string{"transaction_date", "transaction_amount"}, columnsErr.Columns)
	assert.Equal(t, "Missing required columns: transaction_date, transaction_amount", err.Error())
	assert.True(t, IsInputError(err))
}

func TestParseCSV_EmptyFile(t *testing.T) {
	for _, input := range []string{"", "\n\n", "customer_id,transaction_date,transaction_amount\n  \n"} {
		_, err := ParseCSV(strings.NewReader(input), ParseOptions{})
		assert.ErrorIs(t, err, ErrEmptyFile, "input %q", input)
		assert.True(t, IsInputError(err))
	}
}

func TestParseCSV_NoValidTransactions(t *testing.T) {
	input := "customer_id,transaction_date,transaction_amount\n" +
		"c1,2024-01-05\n" +
		"c2,2024-01-05,10,extra\n"

	_, err := ParseCSV(strings.NewReader(input), ParseOptions{})
	assert.ErrorIs(t, err, ErrNoValidTransactions)
	assert.Equal(t, "No valid transactions found in CSV", err.Error())
}

func TestParseRows_TagsSkippedRows(t *testing.T) {
	input := "customer_id,transaction_date,transaction_amount\n" +
		"c1,2024-01-05,10\n" +
		"c2,2024-01-05\n" +
		",2024-01-05,10\n" +
		"c3,05/01/2024,10\n" +
		"c4,2024-01-05,abc\n" +
		"c5,2024-01-05,NaN\n" +
		"c6,2024-01-05,-5\n"

	rows, err := ParseRows(strings.NewReader(input), ParseOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 7)

	statuses := make([]RowStatus, len(rows))
	for i, row := range rows {
		statuses[i] = row.Status
		assert.Equal(t, i+1, row.Index)
	}
	assert.Equal(t, []RowStatus{ParsedRow, SkippedRow, SkippedRow, SkippedRow, SkippedRow, SkippedRow, ParsedRow}, statuses)
	assert.Equal(t, -5.0, rows[6].Transaction.Amount)
	assert.Equal(t, "field count does not match header", rows[1].Reason)
}

func TestParseRows_StrayQuoteStaysInItsRow(t *testing.T) {
	input := "customer_id,transaction_date,transaction_amount\n" +
		"C1,2024-01-01,10\n" +
		"\"C2,2024-01-02,20\n" +
		"C3,2024-01-03,30\n" +
		"C4,2024-01-04,40\n"

	rows, err := ParseRows(strings.NewReader(input), ParseOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 4)

	// the quote is kept as part of the id; the row itself is still well formed
	assert.Equal(t, ParsedRow, rows[1].Status)
	assert.Equal(t, "\"C2", rows[1].Transaction.CustomerID)

	txs, err := ParseCSV(strings.NewReader(input), ParseOptions{})
	require.NoError(t, err)
	ids := make([]string, len(txs))
	for i, tx := range txs {
		ids[i] = tx.CustomerID
	}
	assert.Equal(t, []string{"C1", "\"C2", "C3", "C4"}, ids)
}

func TestParseRows_QuotesDoNotProtectDelimiters(t *testing.T) {
	input := "customer_id,transaction_date,transaction_amount\n" +
		"\"C1,x\",2024-01-01,10\n" +
		"\"C2,2024-01-02\n" +
		"C3,2024-01-03,30\n"

	rows, err := ParseRows(strings.NewReader(input), ParseOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, SkippedRow, rows[0].Status)
	assert.Equal(t, "field count does not match header", rows[0].Reason)
	assert.Equal(t, SkippedRow, rows[1].Status)
	assert.Equal(t, ParsedRow, rows[2].Status)
	assert.Equal(t, "C3", rows[2].Transaction.CustomerID)
	assert.Equal(t, 3, rows[2].Index)
}

func TestParseCSV_CustomDelimiter(t *testing.T) {
	input := "customer_id;transaction_date;transaction_amount\nc1;2024-03-01;7.25\nc2,2024-03-01,1\n"

	txs, err := ParseCSV(strings.NewReader(input), ParseOptions{Comma: ';'})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, 7.25, txs[0].Amount)
}

func TestParseCSV_ByteOrderMarkAndCRLF(t *testing.T) {
	input := "\ufeffcustomer_id,transaction_date,transaction_amount\r\nc1,2024-03-01,3\r\n"

	txs, err := ParseCSV(strings.NewReader(input), ParseOptions{})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "c1", txs[0].CustomerID)
}

func TestParseDate(t *testing.T) {
	cases := map[string]time.Time{
		"2024-03-01":                day("2024-03-01"),
		"2024-03-01T23:10:00Z":      day("2024-03-01"),
		"2024-03-01T23:10:00-05:00": day("2024-03-02"),
		"2024-03-01 08:00:00":       day("2024-03-01"),
	}
	for input, want := range cases {
		got, err := ParseDate(input)
		require.NoError(t, err, input)
		assert.True(t, want.Equal(got), "%s: got %v want %v", input, got, want)
	}

	_, err := ParseDate("01/03/2024")
	assert.Error(t, err)
}
