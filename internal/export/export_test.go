package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kexy2025/leadgen/internal/domain"
)

func TestWriteCSV(t *testing.T) {
	added := time.Date(2026, 8, 23, 10, 30, 0, 0, time.UTC)
	leads := []domain.Lead{
		{
			LeadID:      "jane@acme.com",
			Name:        "Jane",
			Email:       "jane@acme.com",
			CompanyName: "Acme, Inc.",
			Extra:       map[string]string{"quirk_factor": "high"},
			SourceFile:  "batch.csv",
			DateAdded:   added,
			Status:      domain.StatusActive,
		},
	}

	var buf bytes.Buffer
	err := WriteCSV(&buf, []string{"name", "email", "company_name", "quirk_factor"}, leads)
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []string{
		"name", "email", "company_name", "quirk_factor",
		"lead_id", "source_file", "date_added", "lead_status",
	}, records[0])
	assert.Equal(t, []string{
		"Jane", "jane@acme.com", "Acme, Inc.", "high",
		"jane@acme.com", "batch.csv", "2026-08-23 10:30:00", "Active",
	}, records[1])
}

func TestWriteCSVNoLeads(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []string{"email"}, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1, "header only")
}
