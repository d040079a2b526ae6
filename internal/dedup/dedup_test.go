package dedup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct {
	emails       map[string]bool
	phones       map[string]bool
	phoneLookups int
}

func (f *fakeIndex) ExistsByEmail(_ context.Context, e string) (bool, error) {
	return f.emails[e], nil
}

func (f *fakeIndex) ExistsByPhone(_ context.Context, p string) (bool, error) {
	f.phoneLookups++
	return f.phones[p], nil
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@acme.com", NormalizeEmail("  Jane@ACME.com "))
	assert.Equal(t, "", NormalizeEmail("   "))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "15550102030", NormalizePhone("+1 (555) 010-2030"))
	assert.Equal(t, "", NormalizePhone("ext."))
	assert.Equal(t, "", NormalizePhone(""))
}

func TestLeadID(t *testing.T) {
	assert.Equal(t, "jane@acme.com", LeadID("Jane@Acme.com", "555-0100"))
	assert.Equal(t, "PHONE_5550100", LeadID("", "555-0100"))
	assert.Equal(t, "PHONE_5550100", LeadID("   ", "(555) 0100"))
	assert.Equal(t, "", LeadID("", ""))
}

func TestCheckEmailMatchWinsFirst(t *testing.T) {
	idx := &fakeIndex{
		emails: map[string]bool{"jane@acme.com": true},
		phones: map[string]bool{"5550100": true},
	}
	e := NewEngine(idx)

	dup, err := e.Check(context.Background(), "JANE@acme.com", "555-0100")
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Zero(t, idx.phoneLookups, "phone must not be consulted after an email hit")
}

func TestCheckFallsBackToPhone(t *testing.T) {
	idx := &fakeIndex{
		emails: map[string]bool{},
		phones: map[string]bool{"5550100": true},
	}
	e := NewEngine(idx)

	// Unknown email but a known phone is still a duplicate.
	dup, err := e.Check(context.Background(), "new@acme.com", "555-0100")
	require.NoError(t, err)
	assert.True(t, dup)

	// Phone-only row.
	dup, err = e.Check(context.Background(), "", "(555) 0100")
	require.NoError(t, err)
	assert.True(t, dup)
}

func TestCheckNoMatch(t *testing.T) {
	idx := &fakeIndex{emails: map[string]bool{}, phones: map[string]bool{}}
	e := NewEngine(idx)

	dup, err := e.Check(context.Background(), "new@acme.com", "555-9999")
	require.NoError(t, err)
	assert.False(t, dup)

	// No identifiers at all: never a duplicate.
	dup, err = e.Check(context.Background(), "", "")
	require.NoError(t, err)
	assert.False(t, dup)
}
