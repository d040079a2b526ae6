package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kexy2025/leadgen/internal/domain"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"E-Mail Address":  "emailaddress",
		"  Work Email  ":  "workemail",
		"Téléphone":       "telephone",
		"# of Employees":  "ofemployees",
		"person_linkedin": "personlinkedin",
		"":                "",
		"---":             "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestMapHeadersWithDefaults(t *testing.T) {
	s := New(Defaults())

	headerMap, unknown := s.MapHeaders([]string{
		"Email Address", "First Name", "COMPANY", "Quirk Factor", "",
	})

	assert.Equal(t, map[string]string{
		"Email Address": "email",
		"First Name":    "name",
		"COMPANY":       "company_name",
	}, headerMap)
	assert.Equal(t, []string{"Quirk Factor"}, unknown)
}

func TestLookup(t *testing.T) {
	s := New(Defaults())

	col, ok := s.Lookup("e-mail")
	require.True(t, ok)
	assert.Equal(t, "email", col)

	_, ok = s.Lookup("zodiac sign")
	assert.False(t, ok)
}

func TestSuggestRanksByConfidence(t *testing.T) {
	s := New(Defaults())

	got := s.Suggest("E-mail Adress") // one letter short of "email address"
	require.NotEmpty(t, got)
	assert.Equal(t, "email", got[0].Column)
	assert.InDelta(t, 0.917, got[0].Confidence, 0.01)
	assert.LessOrEqual(t, len(got), MaxSuggestions)
}

func TestSuggestHonorsThreshold(t *testing.T) {
	s := New(Defaults())
	assert.Empty(t, s.Suggest("zzzzzzzzzz"))
	assert.Empty(t, s.Suggest(""))
}

func TestSuggestTieBreaksOnShorterName(t *testing.T) {
	s := New([]domain.SchemaColumn{
		{Name: "fax_number", Aliases: []string{"telefax2"}},
		{Name: "fax", Aliases: []string{"telefax"}},
	})

	// "telefaxx" is distance 1 from both aliases, so the scores tie and the
	// shorter canonical name must come first.
	got := s.Suggest("telefaxx")
	require.Len(t, got, 2)
	assert.Equal(t, "fax", got[0].Column)
	assert.Equal(t, "fax_number", got[1].Column)
	assert.InDelta(t, got[0].Confidence, got[1].Confidence, 1e-9)
}

func TestValidateRequired(t *testing.T) {
	s := New(Defaults())

	missing := s.ValidateRequired(map[string]string{"Name": "name"})
	assert.Equal(t, []string{"email"}, missing)

	missing = s.ValidateRequired(map[string]string{"Work Email": "email"})
	assert.Empty(t, missing)
}

func TestValidColumnName(t *testing.T) {
	assert.True(t, ValidColumnName("custom_field"))
	assert.True(t, ValidColumnName("f2"))
	assert.False(t, ValidColumnName("Bad-Name"))
	assert.False(t, ValidColumnName("1abc"))
	assert.False(t, ValidColumnName("drop table"))
	assert.False(t, ValidColumnName(""))
}

func TestValidateMapping(t *testing.T) {
	s := New(Defaults())

	assert.NoError(t, s.ValidateMapping(MappingRequest{
		OriginalHeader: "Quirk", Action: ActionSkip,
	}))
	assert.NoError(t, s.ValidateMapping(MappingRequest{
		OriginalHeader: "Quirk", Action: ActionMapExisting, TargetColumn: "industry",
	}))
	assert.Error(t, s.ValidateMapping(MappingRequest{
		OriginalHeader: "Quirk", Action: ActionMapExisting, TargetColumn: "nope",
	}))
	assert.NoError(t, s.ValidateMapping(MappingRequest{
		OriginalHeader: "Quirk", Action: ActionCreateNew, NewColumnName: "quirk_factor",
	}))
	assert.Error(t, s.ValidateMapping(MappingRequest{
		OriginalHeader: "Quirk", Action: ActionCreateNew, NewColumnName: "email",
	}), "existing column may not be recreated")
	assert.Error(t, s.ValidateMapping(MappingRequest{
		OriginalHeader: "", Action: ActionSkip,
	}))
	assert.Error(t, s.ValidateMapping(MappingRequest{
		OriginalHeader: "Quirk", Action: "explode",
	}))
}
