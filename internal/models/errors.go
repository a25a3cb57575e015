package models

import (
	"errors"
)

// Structural errors surface as request-level failures. Row-level problems
// never escalate to these; they are accumulated on the rows instead.
var (
	// ErrUnsupportedFormat means the upload is not a decodable CSV/XLSX.
	// Fatal before any job is created.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrMappingIncomplete means primaryName is unmapped. Reported at
	// validate time; the job itself is left intact so the operator can
	// fix the mapping and re-validate.
	ErrMappingIncomplete = errors.New("mapping incomplete: primary name is not mapped")

	// ErrNotValidated means commit was called on a job still in PREVIEW.
	ErrNotValidated = errors.New("job has not been validated")

	// ErrJobFailed means the job reached the terminal FAILED state.
	ErrJobFailed = errors.New("job has failed")

	// ErrJobNotFound means no job exists with the given id.
	ErrJobNotFound = errors.New("job not found")
)

// Row-level reasons recorded on ImportRow. Operators see these verbatim,
// so the wording is stable.
const (
	ReasonMissingName      = "missing name"
	ReasonInvalidEmail     = "invalid email"
	ReasonInvalidPhone     = "invalid phone"
	ReasonDuplicateContact = "duplicate contact"
	ReasonLeadCreateFailed = "lead create failed"
)
