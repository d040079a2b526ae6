package domain

import "time"

// Lead statuses stored in lead_status.
const (
	StatusActive    = "Active"
	StatusDuplicate = "Duplicate"
	StatusArchived  = "Archived"
)

// Lead is a single lead record (collection: leads).
//
// The fixed fields are the seeded canonical columns; columns created later
// through manual mapping live in Extra, keyed by canonical column name.
type Lead struct {
	ID                 string            `bson:"_id,omitempty"          json:"id,omitempty"`
	LeadID             string            `bson:"lead_id"                json:"lead_id"`
	Name               string            `bson:"name,omitempty"         json:"name,omitempty"`
	Email              string            `bson:"email,omitempty"        json:"email,omitempty"`
	LastName           string            `bson:"last_name,omitempty"    json:"last_name,omitempty"`
	Title              string            `bson:"title,omitempty"        json:"title,omitempty"`
	CompanyName        string            `bson:"company_name,omitempty" json:"company_name,omitempty"`
	MobilePhone        string            `bson:"mobile_phone,omitempty" json:"mobile_phone,omitempty"`
	CompanyPhone       string            `bson:"company_phone,omitempty" json:"company_phone,omitempty"`
	EmployeeCount      string            `bson:"employee_count,omitempty" json:"employee_count,omitempty"`
	PersonLinkedInURL  string            `bson:"person_linkedin_url,omitempty" json:"person_linkedin_url,omitempty"`
	Website            string            `bson:"website,omitempty"      json:"website,omitempty"`
	CompanyLinkedInURL string            `bson:"company_linkedin_url,omitempty" json:"company_linkedin_url,omitempty"`
	City               string            `bson:"city,omitempty"         json:"city,omitempty"`
	State              string            `bson:"state,omitempty"        json:"state,omitempty"`
	Country            string            `bson:"country,omitempty"      json:"country,omitempty"`
	Industry           string            `bson:"industry,omitempty"     json:"industry,omitempty"`
	Extra              map[string]string `bson:"extra,omitempty"        json:"extra,omitempty"`

	// Normalized lookup keys maintained by the dedup engine.
	EmailNorm string `bson:"email_norm,omitempty" json:"-"`
	PhoneNorm string `bson:"phone_norm,omitempty" json:"-"`

	SourceFile  string    `bson:"source_file,omitempty" json:"source_file,omitempty"`
	DateAdded   time.Time `bson:"date_added"            json:"date_added"`
	DateUpdated time.Time `bson:"date_updated"          json:"date_updated"`
	Status      string    `bson:"lead_status"           json:"lead_status"`
	Notes       string    `bson:"processing_notes,omitempty" json:"processing_notes,omitempty"`
}

// fixedFields maps canonical column names to accessors for the fixed Lead
// fields. Columns not listed here round-trip through Extra.
var fixedFields = map[string]struct {
	get func(*Lead) string
	set func(*Lead, string)
}{
	"name":                 {func(l *Lead) string { return l.Name }, func(l *Lead, v string) { l.Name = v }},
	"email":                {func(l *Lead) string { return l.Email }, func(l *Lead, v string) { l.Email = v }},
	"last_name":            {func(l *Lead) string { return l.LastName }, func(l *Lead, v string) { l.LastName = v }},
	"title":                {func(l *Lead) string { return l.Title }, func(l *Lead, v string) { l.Title = v }},
	"company_name":         {func(l *Lead) string { return l.CompanyName }, func(l *Lead, v string) { l.CompanyName = v }},
	"mobile_phone":         {func(l *Lead) string { return l.MobilePhone }, func(l *Lead, v string) { l.MobilePhone = v }},
	"company_phone":        {func(l *Lead) string { return l.CompanyPhone }, func(l *Lead, v string) { l.CompanyPhone = v }},
	"employee_count":       {func(l *Lead) string { return l.EmployeeCount }, func(l *Lead, v string) { l.EmployeeCount = v }},
	"person_linkedin_url":  {func(l *Lead) string { return l.PersonLinkedInURL }, func(l *Lead, v string) { l.PersonLinkedInURL = v }},
	"website":              {func(l *Lead) string { return l.Website }, func(l *Lead, v string) { l.Website = v }},
	"company_linkedin_url": {func(l *Lead) string { return l.CompanyLinkedInURL }, func(l *Lead, v string) { l.CompanyLinkedInURL = v }},
	"city":                 {func(l *Lead) string { return l.City }, func(l *Lead, v string) { l.City = v }},
	"state":                {func(l *Lead) string { return l.State }, func(l *Lead, v string) { l.State = v }},
	"country":              {func(l *Lead) string { return l.Country }, func(l *Lead, v string) { l.Country = v }},
	"industry":             {func(l *Lead) string { return l.Industry }, func(l *Lead, v string) { l.Industry = v }},
}

// Field returns the lead's value for a canonical column name.
func (l *Lead) Field(column string) string {
	if f, ok := fixedFields[column]; ok {
		return f.get(l)
	}
	return l.Extra[column]
}

// SetField stores a value under a canonical column name.
func (l *Lead) SetField(column, value string) {
	if f, ok := fixedFields[column]; ok {
		f.set(l, value)
		return
	}
	if l.Extra == nil {
		l.Extra = make(map[string]string)
	}
	l.Extra[column] = value
}

// SchemaColumn is one canonical column definition (collection: schema_columns).
type SchemaColumn struct {
	Name     string   `bson:"_id"      json:"canonical_column"`
	Aliases  []string `bson:"aliases"  json:"header_aliases"`
	Required bool     `bson:"required" json:"required"`
	Position int      `bson:"position" json:"position"`
}

// ImportResult is returned after a file has been processed.
type ImportResult struct {
	Status            string  `json:"status"`
	SourceFile        string  `json:"source_file"`
	TotalProcessed    int     `json:"total_processed"`
	LeadsAdded        int     `json:"leads_added"`
	DuplicatesSkipped int     `json:"duplicates_skipped"`
	SkippedRows       int     `json:"skipped_rows"`
	SuccessRate       float64 `json:"success_rate"`
}

// ImportLog is the persisted record of one processed file (collection: import_logs).
type ImportLog struct {
	ID                string    `bson:"_id,omitempty"      json:"id,omitempty"`
	SourceFile        string    `bson:"source_file"        json:"source_file"`
	TotalProcessed    int       `bson:"total_processed"    json:"total_processed"`
	LeadsAdded        int       `bson:"leads_added"        json:"leads_added"`
	DuplicatesSkipped int       `bson:"duplicates_skipped" json:"duplicates_skipped"`
	SkippedRows       int       `bson:"skipped_rows"       json:"skipped_rows"`
	SuccessRate       float64   `bson:"success_rate"       json:"success_rate"`
	User              string    `bson:"user"               json:"user"`
	CreatedAt         time.Time `bson:"created_at"         json:"created_at"`
}

// MappingEvent records one manual header-mapping decision (collection: mapping_events).
type MappingEvent struct {
	ID             string    `bson:"_id,omitempty"   json:"id,omitempty"`
	OriginalHeader string    `bson:"original_header" json:"original_header"`
	Action         string    `bson:"action"          json:"action"`
	TargetColumn   string    `bson:"target_column"   json:"target_column"`
	User           string    `bson:"user"            json:"user"`
	CreatedAt      time.Time `bson:"created_at"      json:"created_at"`
}

// Stats is the dashboard summary.
type Stats struct {
	TotalLeads        int     `json:"total_leads"`
	DuplicatesSkipped int     `json:"duplicates_skipped"`
	TodayImports      int     `json:"today_imports"`
	SuccessRate       float64 `json:"success_rate"`
}

// LeadPage is the paginated /api/leads response.
type LeadPage struct {
	Leads      []Lead `json:"leads"`
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
	TotalPages int    `json:"total_pages"`
}
