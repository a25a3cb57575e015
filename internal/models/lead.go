package models

import (
	"time"
)

// Lead is a durable CRM lead record created by the commit engine.
// NormalizedPhone (digits only) and NormalizedEmail (lowercased) carry
// the contact identity used for deduplication.
type Lead struct {
	ID                string    `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	Phone             string    `json:"phone,omitempty" db:"phone"`
	Email             string    `json:"email,omitempty" db:"email"`
	PreferredCentre   string    `json:"preferred_centre,omitempty" db:"preferred_centre"`
	ProgrammeInterest string    `json:"programme_interest,omitempty" db:"programme_interest"`
	NormalizedPhone   string    `json:"-" db:"normalized_phone"`
	NormalizedEmail   string    `json:"-" db:"normalized_email"`
	SourceJobID       string    `json:"source_job_id,omitempty" db:"source_job_id"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// HasContact reports whether the lead carries any contact identity.
// A lead without one can never collide with another record.
func (l *Lead) HasContact() bool {
	return l.NormalizedPhone != "" || l.NormalizedEmail != ""
}
