package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"wagebrowser/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// TableOptions configures table export
type TableOptions struct {
	// Limit of zero or less writes every row
	Limit     int
	BOMPrefix bool
}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger}
}

// WriteCSV writes headers and records to out
func (w *CSVWriter) WriteCSV(out io.Writer, options WriteOptions) error {
	stream, err := NewStreamWriter(out, options.Headers, options.BOMPrefix)
	if err != nil {
		return err
	}
	for i, record := range options.Records {
		if err := stream.WriteRecord(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return stream.Flush()
}

// WriteFile writes a CSV file, creating its directory when needed
func (w *CSVWriter) WriteFile(filePath string, options WriteOptions) error {
	w.logger.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(options.Records)))

	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := w.WriteCSV(file, options); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// StreamWriter provides streaming CSV writing for large tables
type StreamWriter struct {
	writer *csv.Writer
}

// NewStreamWriter writes the optional BOM and header row to out
func NewStreamWriter(out io.Writer, headers []string, bom bool) (*StreamWriter, error) {
	if bom {
		if _, err := out.Write(utf8BOM); err != nil {
			return nil, fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)
	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}
	return &StreamWriter{writer: writer}, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	return s.writer.Write(record)
}

// Flush writes any buffered records
func (s *StreamWriter) Flush() error {
	s.writer.Flush()
	return s.writer.Error()
}

// WriteTable streams t to out with its column names as the header row
func WriteTable(out io.Writer, t *domain.Table, opts TableOptions) error {
	if t == nil {
		return fmt.Errorf("write table: nil table")
	}
	t = t.Head(opts.Limit)

	stream, err := NewStreamWriter(out, t.Columns, opts.BOMPrefix)
	if err != nil {
		return err
	}
	for i, row := range t.Cells {
		if err := stream.WriteRecord(formatRow(row)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	return stream.Flush()
}

// ExportTable writes t to filePath
func (w *CSVWriter) ExportTable(filePath string, t *domain.Table, opts TableOptions) error {
	if t == nil {
		return fmt.Errorf("export table: nil table")
	}
	t = t.Head(opts.Limit)

	records := make([][]string, len(t.Cells))
	for i, row := range t.Cells {
		records[i] = formatRow(row)
	}
	return w.WriteFile(filePath, WriteOptions{
		Headers:   t.Columns,
		Records:   records,
		BOMPrefix: opts.BOMPrefix,
	})
}
