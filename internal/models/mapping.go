package models

// CanonicalField is one of the closed set of lead fields a spreadsheet
// column can be mapped to.
type CanonicalField string

const (
	FieldPrimaryName       CanonicalField = "primaryName"
	FieldPhone             CanonicalField = "phone"
	FieldEmail             CanonicalField = "email"
	FieldPreferredCentre   CanonicalField = "preferredCentre"
	FieldProgrammeInterest CanonicalField = "programmeInterest"
)

// CanonicalFields lists every canonical field in display order.
var CanonicalFields = []CanonicalField{
	FieldPrimaryName,
	FieldPhone,
	FieldEmail,
	FieldPreferredCentre,
	FieldProgrammeInterest,
}

// Mapping pairs each canonical lead field with the spreadsheet header it
// is read from. An empty header means the field is unmapped; primaryName
// is the only field whose emptiness blocks validation.
type Mapping struct {
	PrimaryName       string `json:"primary_name"`
	Phone             string `json:"phone,omitempty"`
	Email             string `json:"email,omitempty"`
	PreferredCentre   string `json:"preferred_centre,omitempty"`
	ProgrammeInterest string `json:"programme_interest,omitempty"`
}

// HeaderFor is a total function from the canonical-field enum to the
// mapped source header. Unknown fields resolve to "" rather than falling
// through to an arbitrary case.
func (m Mapping) HeaderFor(field CanonicalField) string {
	switch field {
	case FieldPrimaryName:
		return m.PrimaryName
	case FieldPhone:
		return m.Phone
	case FieldEmail:
		return m.Email
	case FieldPreferredCentre:
		return m.PreferredCentre
	case FieldProgrammeInterest:
		return m.ProgrammeInterest
	default:
		return ""
	}
}

// SetHeader assigns the source header for a canonical field. Unknown
// fields are ignored.
func (m *Mapping) SetHeader(field CanonicalField, header string) {
	switch field {
	case FieldPrimaryName:
		m.PrimaryName = header
	case FieldPhone:
		m.Phone = header
	case FieldEmail:
		m.Email = header
	case FieldPreferredCentre:
		m.PreferredCentre = header
	case FieldProgrammeInterest:
		m.ProgrammeInterest = header
	}
}

// Resolve looks up the cell value a canonical field maps to in a raw row.
// Returns "" when the field is unmapped or the column is absent.
func (m Mapping) Resolve(field CanonicalField, raw map[string]string) string {
	header := m.HeaderFor(field)
	if header == "" {
		return ""
	}
	return raw[header]
}

// IsComplete reports whether the mapping satisfies the minimum contract:
// primaryName must resolve to some source header.
func (m Mapping) IsComplete() bool {
	return m.PrimaryName != ""
}
