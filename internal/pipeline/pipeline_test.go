package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kexy2025/leadgen/internal/domain"
	"github.com/kexy2025/leadgen/internal/ingest"
	"github.com/kexy2025/leadgen/internal/store"
)

// fakeStore keeps leads in memory and mimics the unique lead_id index.
type fakeStore struct {
	emails   map[string]bool
	phones   map[string]bool
	leadIDs  map[string]bool
	inserted []domain.Lead
	logs     []domain.ImportLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		emails:  make(map[string]bool),
		phones:  make(map[string]bool),
		leadIDs: make(map[string]bool),
	}
}

func (f *fakeStore) ExistsByEmail(_ context.Context, e string) (bool, error) {
	return f.emails[e], nil
}

func (f *fakeStore) ExistsByPhone(_ context.Context, p string) (bool, error) {
	return f.phones[p], nil
}

func (f *fakeStore) InsertLead(_ context.Context, l *domain.Lead) error {
	if f.leadIDs[l.LeadID] {
		return store.ErrDuplicateLead
	}
	f.leadIDs[l.LeadID] = true
	if l.EmailNorm != "" {
		f.emails[l.EmailNorm] = true
	}
	if l.PhoneNorm != "" {
		f.phones[l.PhoneNorm] = true
	}
	f.inserted = append(f.inserted, *l)
	return nil
}

func (f *fakeStore) SaveImportLog(_ context.Context, log *domain.ImportLog) error {
	f.logs = append(f.logs, *log)
	return nil
}

func TestProcess(t *testing.T) {
	fs := newFakeStore()
	// One pre-existing lead, keyed by email, with a known phone.
	fs.emails["taken@acme.com"] = true
	fs.phones["5550100"] = true

	tbl := &ingest.Table{
		Source:  "batch.csv",
		Headers: []string{"Email", "Mobile", "First Name", "Notes"},
		Rows: [][]string{
			{"new@acme.com", "555-0199", "Jane", "keep"},        // new
			{"TAKEN@Acme.com ", "", "Dupe", ""},                 // dup by email (case-insensitive)
			{"", "(555) 0100", "Phil", ""},                      // dup by phone (digits-only)
			{"", "", "Bob", "no identifier"},                    // skipped
			{"new@acme.com", "", "Jane Again", "same batch"},    // dup within batch
			{"", "555-2222", "Pat", ""},                         // new, phone-keyed
		},
	}
	headerMap := map[string]string{
		"Email":      "email",
		"Mobile":     "mobile_phone",
		"First Name": "name",
		// "Notes" intentionally unmapped: a skipped column.
	}

	res, err := Process(context.Background(), tbl, headerMap, Config{Store: fs})
	require.NoError(t, err)

	assert.Equal(t, "success", res.Status)
	assert.Equal(t, "batch.csv", res.SourceFile)
	assert.Equal(t, 6, res.TotalProcessed)
	assert.Equal(t, 2, res.LeadsAdded)
	assert.Equal(t, 3, res.DuplicatesSkipped)
	assert.Equal(t, 1, res.SkippedRows)
	assert.InDelta(t, 33.3, res.SuccessRate, 0.05)

	require.Len(t, fs.inserted, 2)

	first := fs.inserted[0]
	assert.Equal(t, "new@acme.com", first.LeadID)
	assert.Equal(t, "new@acme.com", first.EmailNorm)
	assert.Equal(t, "5550199", first.PhoneNorm)
	assert.Equal(t, "Jane", first.Name)
	assert.Equal(t, domain.StatusActive, first.Status)
	assert.Equal(t, "batch.csv", first.SourceFile)
	assert.Empty(t, first.Extra, "unmapped columns must not leak into the lead")

	second := fs.inserted[1]
	assert.Equal(t, "PHONE_5552222", second.LeadID)
	assert.Equal(t, "", second.EmailNorm)
	assert.Equal(t, "5552222", second.PhoneNorm)

	require.Len(t, fs.logs, 1)
	log := fs.logs[0]
	assert.Equal(t, "batch.csv", log.SourceFile)
	assert.Equal(t, 2, log.LeadsAdded)
	assert.Equal(t, 3, log.DuplicatesSkipped)
	assert.Equal(t, 1, log.SkippedRows)
	assert.Equal(t, "system", log.User)
}

func TestProcessCompanyPhoneFallback(t *testing.T) {
	fs := newFakeStore()

	tbl := &ingest.Table{
		Source:  "phones.csv",
		Headers: []string{"Work Phone"},
		Rows:    [][]string{{"555-3333"}},
	}
	headerMap := map[string]string{"Work Phone": "company_phone"}

	res, err := Process(context.Background(), tbl, headerMap, Config{Store: fs})
	require.NoError(t, err)

	assert.Equal(t, 1, res.LeadsAdded)
	require.Len(t, fs.inserted, 1)
	assert.Equal(t, "PHONE_5553333", fs.inserted[0].LeadID,
		"company phone is the identifier when mobile is absent")
}

func TestProcessEmptyTable(t *testing.T) {
	fs := newFakeStore()

	res, err := Process(context.Background(), &ingest.Table{
		Source:  "empty.csv",
		Headers: []string{"Email"},
	}, map[string]string{"Email": "email"}, Config{Store: fs})
	require.NoError(t, err)

	assert.Equal(t, 0, res.TotalProcessed)
	assert.Equal(t, float64(0), res.SuccessRate)
	require.Len(t, fs.logs, 1, "even empty imports are logged")
}

func TestProcessNoStore(t *testing.T) {
	_, err := Process(context.Background(), &ingest.Table{}, nil, Config{})
	assert.Error(t, err)
}
