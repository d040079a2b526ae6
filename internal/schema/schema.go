// Package schema holds the canonical lead schema and the header mapper.
//
// Incoming spreadsheet headers are normalized (lowercased, diacritics folded,
// punctuation stripped) and looked up in an alias map. Headers without an
// exact alias hit are "unknown" and get best-guess suggestions scored by
// normalized Levenshtein similarity against every canonical name and alias.
package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kexy2025/leadgen/internal/domain"
)

const (
	// SuggestionThreshold is the minimum similarity for a suggestion.
	SuggestionThreshold = 0.60

	// MaxSuggestions is the top-k cap per unknown header.
	MaxSuggestions = 3
)

// Manual mapping actions.
const (
	ActionMapExisting = "map_existing"
	ActionCreateNew   = "create_new"
	ActionSkip        = "skip"
)

var columnNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,47}$`)

// ValidColumnName reports whether s may be used as a new canonical column name.
func ValidColumnName(s string) bool {
	return columnNameRe.MatchString(s)
}

// Normalize reduces a header to its matching form: lowercase, diacritics
// folded to ASCII, everything but letters and digits removed.
// "E-Mail Address" and "émail_address" both normalize to "emailaddress".
func Normalize(header string) string {
	s := asciiFold(strings.ToLower(strings.TrimSpace(header)))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func asciiFold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Schema is the canonical column set with a prebuilt alias lookup.
type Schema struct {
	Columns  []domain.SchemaColumn
	aliasMap map[string]string // normalized alias -> canonical name
}

// New builds a Schema from stored columns. The canonical name itself always
// counts as an alias.
func New(cols []domain.SchemaColumn) *Schema {
	s := &Schema{
		Columns:  cols,
		aliasMap: make(map[string]string),
	}
	for _, c := range cols {
		s.aliasMap[Normalize(c.Name)] = c.Name
		for _, a := range c.Aliases {
			if n := Normalize(a); n != "" {
				s.aliasMap[n] = c.Name
			}
		}
	}
	return s
}

// ColumnNames returns canonical names in schema order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Required returns the canonical names flagged required.
func (s *Schema) Required() []string {
	var req []string
	for _, c := range s.Columns {
		if c.Required {
			req = append(req, c.Name)
		}
	}
	return req
}

// Lookup resolves a single header to its canonical column, if known.
func (s *Schema) Lookup(header string) (string, bool) {
	c, ok := s.aliasMap[Normalize(header)]
	return c, ok
}

// MapHeaders resolves every header against the alias map.
// Returns the resolved header→canonical map and the unknown headers in
// their original order. Blank headers are ignored entirely.
func (s *Schema) MapHeaders(headers []string) (map[string]string, []string) {
	headerMap := make(map[string]string, len(headers))
	var unknown []string
	for _, h := range headers {
		n := Normalize(h)
		if n == "" {
			continue
		}
		if canonical, ok := s.aliasMap[n]; ok {
			headerMap[h] = canonical
		} else {
			unknown = append(unknown, h)
		}
	}
	return headerMap, unknown
}

// Suggestion is one mapping candidate for an unknown header.
type Suggestion struct {
	Column     string  `json:"column"`
	Confidence float64 `json:"confidence"`
}

// Suggest scores the unknown header against every canonical column (its name
// and all aliases, best alias wins) and returns up to MaxSuggestions
// candidates at or above SuggestionThreshold, best first. Equal scores are
// broken by the shorter canonical name.
func (s *Schema) Suggest(header string) []Suggestion {
	n := Normalize(header)
	if n == "" {
		return nil
	}

	var out []Suggestion
	for _, c := range s.Columns {
		best := similarity(n, Normalize(c.Name))
		for _, a := range c.Aliases {
			if sc := similarity(n, Normalize(a)); sc > best {
				best = sc
			}
		}
		if best >= SuggestionThreshold {
			out = append(out, Suggestion{Column: c.Name, Confidence: best})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return len(out[i].Column) < len(out[j].Column)
	})
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}

// similarity maps Levenshtein distance into [0,1]: 1 is an exact match.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	return 1 - float64(d)/float64(longest)
}

// ValidateRequired reports the required columns missing from a header map.
func (s *Schema) ValidateRequired(headerMap map[string]string) []string {
	mapped := make(map[string]bool, len(headerMap))
	for _, canonical := range headerMap {
		mapped[canonical] = true
	}
	var missing []string
	for _, name := range s.Required() {
		if !mapped[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// Defaults is the seed schema: the fifteen stock columns and their
// well-known header spellings. Email is the only required column.
func Defaults() []domain.SchemaColumn {
	seed := []struct {
		name     string
		aliases  string
		required bool
	}{
		{"name", "name,first name,full name,fname", false},
		{"email", "email,email address,e-mail,work email,email addr", true},
		{"last_name", "last name,last,lname,surname", false},
		{"title", "title,job title,position,role", false},
		{"company_name", "company,company name,organization,employer", false},
		{"mobile_phone", "mobile,mobile phone,cell,cell phone,personal phone", false},
		{"company_phone", "phone,company phone,work phone,office phone,telephone", false},
		{"employee_count", "employees,# employees,company size,headcount,# of employees", false},
		{"person_linkedin_url", "linkedin,person linkedin,linkedin url,linkedin profile,profile url", false},
		{"website", "website,url,company url,web,site", false},
		{"company_linkedin_url", "company linkedin,company linkedin url,organization linkedin", false},
		{"city", "city,town,location", false},
		{"state", "state,province,region", false},
		{"country", "country,nation", false},
		{"industry", "industry,sector,vertical,field", false},
	}

	cols := make([]domain.SchemaColumn, len(seed))
	for i, s := range seed {
		cols[i] = domain.SchemaColumn{
			Name:     s.name,
			Aliases:  strings.Split(s.aliases, ","),
			Required: s.required,
			Position: i,
		}
	}
	return cols
}

// MappingRequest is one user decision from the mapping modal.
type MappingRequest struct {
	OriginalHeader string `json:"original_header"`
	Action         string `json:"action"`
	TargetColumn   string `json:"target_column,omitempty"`
	NewColumnName  string `json:"new_column_name,omitempty"`
	IsRequired     bool   `json:"is_required,omitempty"`
}

// Validate checks a mapping request against the current schema.
func (s *Schema) ValidateMapping(m MappingRequest) error {
	if strings.TrimSpace(m.OriginalHeader) == "" {
		return fmt.Errorf("schema: mapping has no original header")
	}
	switch m.Action {
	case ActionSkip:
		return nil
	case ActionMapExisting:
		for _, c := range s.Columns {
			if c.Name == m.TargetColumn {
				return nil
			}
		}
		return fmt.Errorf("schema: unknown target column %q", m.TargetColumn)
	case ActionCreateNew:
		if !ValidColumnName(m.NewColumnName) {
			return fmt.Errorf("schema: invalid new column name %q", m.NewColumnName)
		}
		if _, exists := s.aliasMap[Normalize(m.NewColumnName)]; exists {
			return fmt.Errorf("schema: column %q already exists", m.NewColumnName)
		}
		return nil
	default:
		return fmt.Errorf("schema: unknown mapping action %q", m.Action)
	}
}
