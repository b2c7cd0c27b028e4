package model

import "strings"

// Lead field names as they appear in the normalised export header.
const (
	FieldFirstName          = "first_name"
	FieldLastName           = "last_name"
	FieldEmail              = "email"
	FieldTitle              = "title"
	FieldCompanyName        = "company_name"
	FieldIndustry           = "industry"
	FieldCompanySize        = "company_size"
	FieldCompanyRevenue     = "company_revenue"
	FieldCity               = "city"
	FieldState              = "state"
	FieldCountry            = "country"
	FieldCompanyLinkedInURL = "company_linkedin_url"
	FieldPersonLinkedInURL  = "person_linkedin_url"
	FieldTechnologies       = "technologies"
	FieldKeywords           = "keywords"
	FieldSeniority          = "seniority"
	FieldDepartments        = "departments"
	FieldCompanyWebsite     = "company_website"
)

// RequiredFields must be present as columns in every lead export.
var RequiredFields = []string{
	FieldFirstName,
	FieldLastName,
	FieldEmail,
	FieldTitle,
	FieldCompanyName,
	FieldIndustry,
}

// OptionalFields are filled with an empty string when the export lacks them.
var OptionalFields = []string{
	FieldCompanySize,
	FieldCompanyRevenue,
	FieldCity,
	FieldState,
	FieldCountry,
	FieldCompanyLinkedInURL,
	FieldPersonLinkedInURL,
	FieldTechnologies,
	FieldKeywords,
	FieldSeniority,
	FieldDepartments,
	FieldCompanyWebsite,
}

// Lead is one prospective customer record from an export. Identity is the
// email address, compared case-sensitively.
type Lead struct {
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Email              string `json:"email" validate:"required,email"`
	Title              string `json:"title"`
	CompanyName        string `json:"company_name"`
	Industry           string `json:"industry"`
	CompanySize        string `json:"company_size"`
	CompanyRevenue     string `json:"company_revenue,omitempty"`
	City               string `json:"city"`
	State              string `json:"state,omitempty"`
	Country            string `json:"country,omitempty"`
	CompanyLinkedInURL string `json:"company_linkedin_url,omitempty"`
	PersonLinkedInURL  string `json:"person_linkedin_url,omitempty"`
	Technologies       string `json:"technologies,omitempty"`
	Keywords           string `json:"keywords"`
	Seniority          string `json:"seniority,omitempty"`
	Departments        string `json:"departments,omitempty"`
	CompanyWebsite     string `json:"company_website,omitempty"`

	// Extra holds columns outside the known field set.
	Extra map[string]string `json:"extra,omitempty"`

	present map[string]struct{}
}

// leadFields indexes the known fields by name.
var leadFields = map[string]func(l *Lead) *string{
	FieldFirstName:          func(l *Lead) *string { return &l.FirstName },
	FieldLastName:           func(l *Lead) *string { return &l.LastName },
	FieldEmail:              func(l *Lead) *string { return &l.Email },
	FieldTitle:              func(l *Lead) *string { return &l.Title },
	FieldCompanyName:        func(l *Lead) *string { return &l.CompanyName },
	FieldIndustry:           func(l *Lead) *string { return &l.Industry },
	FieldCompanySize:        func(l *Lead) *string { return &l.CompanySize },
	FieldCompanyRevenue:     func(l *Lead) *string { return &l.CompanyRevenue },
	FieldCity:               func(l *Lead) *string { return &l.City },
	FieldState:              func(l *Lead) *string { return &l.State },
	FieldCountry:            func(l *Lead) *string { return &l.Country },
	FieldCompanyLinkedInURL: func(l *Lead) *string { return &l.CompanyLinkedInURL },
	FieldPersonLinkedInURL:  func(l *Lead) *string { return &l.PersonLinkedInURL },
	FieldTechnologies:       func(l *Lead) *string { return &l.Technologies },
	FieldKeywords:           func(l *Lead) *string { return &l.Keywords },
	FieldSeniority:          func(l *Lead) *string { return &l.Seniority },
	FieldDepartments:        func(l *Lead) *string { return &l.Departments },
	FieldCompanyWebsite:     func(l *Lead) *string { return &l.CompanyWebsite },
}

// NewLead builds a Lead from a header-keyed row. Keys outside the known field
// set are kept in Extra. Every key in row counts as present, even when its
// value is empty.
func NewLead(row map[string]string) *Lead {
	l := &Lead{present: make(map[string]struct{}, len(row))}
	for k, v := range row {
		l.present[k] = struct{}{}
		if get, ok := leadFields[k]; ok {
			*get(l) = v
			continue
		}
		if l.Extra == nil {
			l.Extra = make(map[string]string)
		}
		l.Extra[k] = v
	}
	return l
}

// Lookup returns the value of the named field and whether the field was
// present in the source row. Leads built as struct literals report every
// non-empty known field as present.
func (l *Lead) Lookup(name string) (string, bool) {
	if l == nil {
		return "", false
	}
	var v string
	if get, ok := leadFields[name]; ok {
		v = *get(l)
	} else if x, ok := l.Extra[name]; ok {
		v = x
	}
	if l.present != nil {
		_, ok := l.present[name]
		return v, ok
	}
	_, extra := l.Extra[name]
	return v, v != "" || extra
}

// Field returns the named field, or "" when absent.
func (l *Lead) Field(name string) string {
	v, _ := l.Lookup(name)
	return v
}

// Vars returns every field as a template variable map. Known fields are
// always included so templates never see an undefined lead variable.
func (l *Lead) Vars() map[string]any {
	out := make(map[string]any, len(leadFields)+len(l.Extra))
	for k, v := range l.Extra {
		out[k] = v
	}
	for name, get := range leadFields {
		out[name] = *get(l)
	}
	return out
}

// HasCompanyName reports whether the company name is non-blank.
func (l *Lead) HasCompanyName() bool {
	return strings.TrimSpace(l.CompanyName) != ""
}
