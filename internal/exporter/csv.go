package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
	Comma     rune // Field delimiter, ',' when zero
	// SectionBreak separates tables with an empty line followed by the table
	// name when more than one table is written
	SectionBreak bool
}

// CSVWriter writes rendered tables as CSV
type CSVWriter struct {
	options WriteOptions
	logger  *slog.Logger
}

// NewCSVWriter creates a CSV writer
func NewCSVWriter(options WriteOptions, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{
		options: options,
		logger:  logger.With(slog.String("component", "csv_writer")),
	}
}

// Write streams tables to w
func (c *CSVWriter) Write(w io.Writer, tables ...Table) error {
	if c.options.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if c.options.Comma != 0 {
		writer.Comma = c.options.Comma
	}

	sections := c.options.SectionBreak && len(tables) > 1
	for i, t := range tables {
		if sections {
			if i > 0 {
				if err := writer.Write(nil); err != nil {
					return fmt.Errorf("failed to write section break: %w", err)
				}
			}
			if err := writer.Write([]string{"# " + t.Name}); err != nil {
				return fmt.Errorf("failed to write section name: %w", err)
			}
		}

		if err := writer.Write(t.Headers); err != nil {
			return fmt.Errorf("failed to write headers of %s: %w", t.Name, err)
		}
		for j, record := range t.Records {
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write record %d of %s: %w", j, t.Name, err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	c.logger.Debug("CSV written", slog.Int("table_count", len(tables)))
	return nil
}

