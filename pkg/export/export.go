package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
)

// Format is an operator report encoding.
type Format string

// Supported formats.
const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// FormatFromPath picks the format from a file extension, defaulting to CSV.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return FormatPDF
	}
	return FormatCSV
}

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Render encodes data in the requested format.
func Render(format Format, data Dataset, title string) ([]byte, error) {
	if err := data.check(); err != nil {
		return nil, err
	}
	switch format {
	case FormatCSV:
		return renderCSV(data)
	case FormatPDF:
		return NewPDFExporter().Render(data, title)
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}

// check rejects datasets without columns and rows carrying a column the report does not declare.
func (d Dataset) check() error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("report requires at least one header")
	}
	known := make(map[string]bool, len(d.Headers))
	for _, h := range d.Headers {
		known[h] = true
	}
	for i, row := range d.Rows {
		for col := range row {
			if !known[col] {
				return fmt.Errorf("report row %d has undeclared column %q", i, col)
			}
		}
	}
	return nil
}

// renderCSV writes the header line then one record per row; missing cells stay empty.
func renderCSV(data Dataset) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write report header: %w", err)
	}
	record := make([]string, len(data.Headers))
	for _, row := range data.Rows {
		for i, h := range data.Headers {
			record[i] = row[h]
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write report row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush report: %w", err)
	}
	return buf.Bytes(), nil
}
