// Package export renders leads as CSV in canonical schema order.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/kexy2025/leadgen/internal/domain"
)

// metaColumns are appended after the schema columns on every export.
var metaColumns = []string{"lead_id", "source_file", "date_added", "lead_status"}

// WriteCSV writes a header row of schema columns (plus bookkeeping columns)
// followed by one row per lead.
func WriteCSV(w io.Writer, columns []string, leads []domain.Lead) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(columns)+len(metaColumns))
	header = append(header, columns...)
	header = append(header, metaColumns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}

	row := make([]string, len(header))
	for i := range leads {
		l := &leads[i]
		for j, col := range columns {
			row[j] = l.Field(col)
		}
		n := len(columns)
		row[n] = l.LeadID
		row[n+1] = l.SourceFile
		row[n+2] = l.DateAdded.UTC().Format("2006-01-02 15:04:05")
		row[n+3] = l.Status
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: write row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}
	return nil
}
