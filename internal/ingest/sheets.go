package ingest

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// DefaultSheetRange covers the columns a lead sheet realistically uses.
const DefaultSheetRange = "A1:ZZ"

// SheetsClient fetches spreadsheet ranges through the Google Sheets API.
type SheetsClient struct {
	svc *sheets.Service
}

// NewSheetsClient builds a read-only Sheets client with an API key.
// Only works for spreadsheets shared as "anyone with the link".
func NewSheetsClient(ctx context.Context, apiKey string) (*SheetsClient, error) {
	svc, err := sheets.NewService(ctx,
		option.WithAPIKey(apiKey),
		option.WithScopes(sheets.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("ingest: sheets service: %w", err)
	}
	return &SheetsClient{svc: svc}, nil
}

// Fetch reads a range from the spreadsheet and converts it to a Table.
// An empty readRange falls back to DefaultSheetRange.
func (c *SheetsClient) Fetch(ctx context.Context, spreadsheetID, readRange string) (*Table, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, fmt.Errorf("ingest: spreadsheet id is required")
	}
	if readRange == "" {
		readRange = DefaultSheetRange
	}

	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("ingest: fetch sheet %s: %w", spreadsheetID, err)
	}
	if len(resp.Values) == 0 {
		return nil, fmt.Errorf("ingest: sheet %s: empty range %s", spreadsheetID, readRange)
	}

	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = strings.TrimSpace(fmt.Sprint(v))
		}
		rows[i] = cells
	}

	headers := rows[0]
	data := padRows(rows[1:], len(headers))
	return &Table{
		Headers: headers,
		Rows:    trimEmptyRows(data),
		Source:  "sheets:" + spreadsheetID,
	}, nil
}
