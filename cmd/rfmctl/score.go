package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/report"
	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/rfm"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

const reportName = "rfm_segments"

type scoreOptions struct {
	now       string
	delimiter string
	format    string
	outDir    string
}

func scoreCmd() *cobra.Command {
	var opts scoreOptions

	cmd := &cobra.Command{
		Use:   "score [csv-file]",
		Short: "Score a CSV file offline without touching the database",
		Long: `Parse a transaction CSV, score every customer and print the segments.

Examples:
  rfmctl score sales.csv
  rfmctl score sales.csv --now 2024-06-30 --format yaml
  rfmctl score sales.csv --delimiter ';' --out reports/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.now, "now", "", "reference date (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&opts.delimiter, "delimiter", ",", "field delimiter")
	cmd.Flags().StringVar(&opts.format, "format", report.FormatJSON, "output format (json, yaml)")
	cmd.Flags().StringVar(&opts.outDir, "out", "", "write a timestamped report file into this directory instead of stdout")

	return cmd
}

func runScore(out io.Writer, path string, opts scoreOptions) error {
	if opts.format != report.FormatJSON && opts.format != report.FormatYAML {
		return fmt.Errorf("unsupported format %q", opts.format)
	}
	if utf8.RuneCountInString(opts.delimiter) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", opts.delimiter)
	}
	comma, _ := utf8.DecodeRuneInString(opts.delimiter)

	now := time.Now().UTC()
	if opts.now != "" {
		parsed, err := rfm.ParseDate(opts.now)
		if err != nil {
			return fmt.Errorf("--now: %w", err)
		}
		now = parsed
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	transactions, err := rfm.ParseCSV(f, rfm.ParseOptions{Comma: comma})
	if err != nil {
		return err
	}

	assignments := rfm.Run(transactions, now)

	bar := progressbar.NewOptions(len(assignments),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("scoring"),
		progressbar.OptionClearOnFinish(),
	)
	r := report.Build(assignments, len(transactions), now, func() { _ = bar.Add(1) })
	_ = bar.Finish()

	if opts.outDir == "" {
		return report.Encode(out, r, opts.format)
	}

	filename := report.TimestampedFilename(opts.outDir, reportName, opts.format, time.Now())
	if err := writeReportFile(filename, r, opts.format); err != nil {
		return err
	}
	fmt.Fprintf(out, "Exported %d customers to %s\n", r.Customers, filename)
	return nil
}

func writeReportFile(filename string, r report.Report, format string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := report.Encode(file, r, format); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
