// Package report renders offline RFM scoring results for export.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/rfm"

	"gopkg.in/yaml.v3"
)

// Supported output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

const dateLayout = "2006-01-02"

// CustomerRow is the scoring of one customer.
type CustomerRow struct {
	CustomerID          string `json:"customer_id" yaml:"customer_id"`
	CustomerName        string `json:"customer_name,omitempty" yaml:"customer_name,omitempty"`
	Segment             string `json:"segment" yaml:"segment"`
	RecencyScore        int    `json:"recency_score" yaml:"recency_score"`
	FrequencyScore      int    `json:"frequency_score" yaml:"frequency_score"`
	MonetaryScore       int    `json:"monetary_score" yaml:"monetary_score"`
	RecencyDays         int    `json:"recency_days" yaml:"recency_days"`
	TotalTransactions   int    `json:"total_transactions" yaml:"total_transactions"`
	TotalSpend          string `json:"total_spend" yaml:"total_spend"`
	AvgSpend            string `json:"avg_spend" yaml:"avg_spend"`
	LastTransactionDate string `json:"last_transaction_date" yaml:"last_transaction_date"`
}

// SegmentRow counts the customers of one segment.
type SegmentRow struct {
	Segment   string `json:"segment" yaml:"segment"`
	Customers int    `json:"customers" yaml:"customers"`
	Revenue   string `json:"revenue" yaml:"revenue"`
}

// Report is the exported result of one scoring run.
type Report struct {
	AsOf         string        `json:"as_of" yaml:"as_of"`
	Transactions int           `json:"transactions" yaml:"transactions"`
	Customers    int           `json:"customers" yaml:"customers"`
	Segments     []SegmentRow  `json:"segments" yaml:"segments"`
	Rows         []CustomerRow `json:"rows" yaml:"rows"`
}

// Build converts assignments into a report. onRow, when not nil, is called
// once per customer row.
func Build(assignments []rfm.Assignment, transactions int, asOf time.Time, onRow func()) Report {
	r := Report{
		AsOf:         asOf.UTC().Format(dateLayout),
		Transactions: transactions,
		Customers:    len(assignments),
		Rows:         make([]CustomerRow, 0, len(assignments)),
	}

	for _, c := range rfm.Summarize(assignments) {
		r.Segments = append(r.Segments, SegmentRow{
			Segment:   string(c.Segment),
			Customers: c.Customers,
			Revenue:   c.Revenue.StringFixed(2),
		})
	}

	for _, a := range assignments {
		r.Rows = append(r.Rows, CustomerRow{
			CustomerID:          a.CustomerID,
			CustomerName:        a.CustomerName,
			Segment:             string(a.Segment),
			RecencyScore:        a.RecencyScore,
			FrequencyScore:      a.FrequencyScore,
			MonetaryScore:       a.MonetaryScore,
			RecencyDays:         a.RecencyDays,
			TotalTransactions:   a.Frequency,
			TotalSpend:          a.Monetary.StringFixed(2),
			AvgSpend:            a.AvgSpend.StringFixed(2),
			LastTransactionDate: a.LastTransactionDate.Format(dateLayout),
		})
		if onRow != nil {
			onRow()
		}
	}
	return r
}

// Encode writes the report in the given format.
func Encode(w io.Writer, r Report, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to write JSON: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to write YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to write YAML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
	return nil
}

// TimestampedFilename returns baseDir/name_YYYYMMDD_HHMMSS.format.
func TimestampedFilename(baseDir, name, format string, t time.Time) string {
	return filepath.Join(baseDir, fmt.Sprintf("%s_%s.%s", name, t.Format("20060102_150405"), format))
}
