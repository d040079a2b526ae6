// Package ingest turns uploaded spreadsheets into a uniform row table.
//
// Supported sources: CSV, Excel (.xlsx/.xls via excelize) and Google Sheets.
// Whatever the source, the output is a Table whose rows are padded to the
// header width with fully-empty trailing rows trimmed.
package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is a parsed spreadsheet: one header row plus data rows.
type Table struct {
	Headers []string
	Rows    [][]string
	Source  string
}

// SampleValues returns up to n non-empty values from the column under the
// given header, for showing the user what an unknown column contains.
func (t *Table) SampleValues(header string, n int) []string {
	col := -1
	for i, h := range t.Headers {
		if h == header {
			col = i
			break
		}
	}
	if col < 0 {
		return nil
	}
	var out []string
	for _, row := range t.Rows {
		if col < len(row) {
			if v := strings.TrimSpace(row[col]); v != "" {
				out = append(out, v)
				if len(out) == n {
					break
				}
			}
		}
	}
	return out
}

// Allowed reports whether the filename has an importable extension.
func Allowed(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".xlsx", ".xls":
		return true
	}
	return false
}

// Parse dispatches on the file extension.
func Parse(filename string, r io.Reader) (*Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ParseCSV(filename, r)
	case ".xlsx", ".xls":
		return ParseExcel(filename, r)
	default:
		return nil, fmt.Errorf("ingest: unsupported file type %q", filepath.Ext(filename))
	}
}

// ParseCSV reads an entire CSV stream. Rows may be ragged; they are padded
// to the header width. Quoting is lenient to survive hand-edited exports.
func ParseCSV(source string, r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ingest: read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("ingest: %s: empty file", source)
	}

	headers := trimAll(records[0])
	rows := padRows(records[1:], len(headers))
	return &Table{Headers: headers, Rows: trimEmptyRows(rows), Source: source}, nil
}

// ParseExcel reads the first sheet of an .xlsx/.xls workbook.
func ParseExcel(source string, r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("ingest: open excel: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("ingest: %s: no sheets", source)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("ingest: read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("ingest: %s: empty sheet", source)
	}

	headers := trimAll(rows[0])
	data := padRows(rows[1:], len(headers))
	return &Table{Headers: headers, Rows: trimEmptyRows(data), Source: source}, nil
}

// WriteCSV serializes the table back to CSV, used for staging snapshots.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return fmt.Errorf("ingest: write csv header: %w", err)
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("ingest: write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("ingest: flush csv: %w", err)
	}
	return nil
}

// Bytes renders the table as CSV in memory.
func (t *Table) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func trimAll(row []string) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func padRows(rows [][]string, width int) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) >= width {
			out[i] = row[:width]
			continue
		}
		padded := make([]string, width)
		copy(padded, row)
		out[i] = padded
	}
	return out
}

func trimEmptyRows(rows [][]string) [][]string {
	isEmpty := func(r []string) bool {
		for _, v := range r {
			if strings.TrimSpace(v) != "" {
				return false
			}
		}
		return true
	}
	for len(rows) > 0 && isEmpty(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	return rows
}
