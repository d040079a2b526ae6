package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseCSV(t *testing.T) {
	in := strings.Join([]string{
		`Email,Name,Company`,
		`jane@acme.com,Jane,"Acme, Inc."`,
		`bob@example.com,Bob`, // ragged: padded to header width
		``,
		``,
	}, "\n")

	tbl, err := ParseCSV("leads.csv", strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"Email", "Name", "Company"}, tbl.Headers)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"jane@acme.com", "Jane", "Acme, Inc."}, tbl.Rows[0])
	assert.Equal(t, []string{"bob@example.com", "Bob", ""}, tbl.Rows[1])
	assert.Equal(t, "leads.csv", tbl.Source)
}

func TestParseCSVEmpty(t *testing.T) {
	_, err := ParseCSV("empty.csv", strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseExcel(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Email", "Name"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"jane@acme.com", "Jane"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"bob@example.com"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	tbl, err := ParseExcel("leads.xlsx", buf)
	require.NoError(t, err)

	assert.Equal(t, []string{"Email", "Name"}, tbl.Headers)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"jane@acme.com", "Jane"}, tbl.Rows[0])
	assert.Equal(t, []string{"bob@example.com", ""}, tbl.Rows[1])
}

func TestParseDispatch(t *testing.T) {
	_, err := Parse("leads.txt", strings.NewReader("x"))
	assert.Error(t, err)

	tbl, err := Parse("leads.csv", strings.NewReader("A,B\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, tbl.Headers)
}

func TestAllowed(t *testing.T) {
	assert.True(t, Allowed("leads.csv"))
	assert.True(t, Allowed("Leads.XLSX"))
	assert.True(t, Allowed("old.xls"))
	assert.False(t, Allowed("leads.pdf"))
	assert.False(t, Allowed("leads"))
}

func TestSampleValues(t *testing.T) {
	tbl := &Table{
		Headers: []string{"Email", "Quirk"},
		Rows: [][]string{
			{"a@x.com", ""},
			{"b@x.com", "high"},
			{"c@x.com", "low"},
			{"d@x.com", "mid"},
			{"e@x.com", "max"},
		},
	}
	assert.Equal(t, []string{"high", "low", "mid"}, tbl.SampleValues("Quirk", 3))
	assert.Nil(t, tbl.SampleValues("Missing", 3))
}

func TestStagingRoundTrip(t *testing.T) {
	st, err := NewStaging(t.TempDir())
	require.NoError(t, err)

	in := &Table{
		Headers: []string{"Email", "Name"},
		Rows:    [][]string{{"jane@acme.com", "Jane"}},
		Source:  "leads.xlsx",
	}
	token, err := st.Put(in)
	require.NoError(t, err)

	out, err := st.Get(token)
	require.NoError(t, err)
	assert.Equal(t, in.Headers, out.Headers)
	assert.Equal(t, in.Rows, out.Rows)
	assert.Equal(t, "leads.xlsx", out.Source, "original source survives staging")

	st.Remove(token)
	_, err = st.Get(token)
	assert.Error(t, err)
}

func TestStagingRejectsBadToken(t *testing.T) {
	st, err := NewStaging(t.TempDir())
	require.NoError(t, err)

	_, err = st.Get("../../etc/passwd")
	assert.Error(t, err)
}
