package mapper

import (
	"strings"

	"github.com/lead-import-api/internal/models"
)

// candidates lists, per canonical field, the header spellings seen across
// academy and fan-club spreadsheets. Order matters: earlier candidates
// win exact matching.
var candidates = map[models.CanonicalField][]string{
	models.FieldPrimaryName: {
		"name", "full name", "player name", "customer name",
		"student name", "lead name", "member name",
	},
	models.FieldPhone: {
		"phone", "mobile", "phone number", "mobile number",
		"contact number", "contact", "whatsapp",
	},
	models.FieldEmail: {
		"email", "e-mail", "email address", "mail",
	},
	models.FieldPreferredCentre: {
		"preferred centre", "preferred center", "centre", "center",
		"branch", "location", "academy",
	},
	models.FieldProgrammeInterest: {
		"programme interest", "program interest", "programme", "program",
		"course", "sport", "interest",
	},
}

// ProposeMapping guesses a column mapping from the spreadsheet's header
// row. For each canonical field it tries an exact case-insensitive match
// against the field's candidate list, then falls back to substring
// containment in header order, first hit wins. Unmatched fields map to
// "". Pure function: no persistence, no side effects; the proposal is
// always overridable by the operator before the job is created.
func ProposeMapping(headers []string) models.Mapping {
	var m models.Mapping
	for _, field := range models.CanonicalFields {
		m.SetHeader(field, matchHeader(headers, candidates[field]))
	}
	return m
}

func matchHeader(headers, cands []string) string {
	// Exact match, candidate priority order.
	for _, cand := range cands {
		for _, h := range headers {
			if strings.EqualFold(strings.TrimSpace(h), cand) {
				return h
			}
		}
	}

	// Substring containment, header order, first hit wins.
	for _, h := range headers {
		lower := strings.ToLower(strings.TrimSpace(h))
		if lower == "" {
			continue
		}
		for _, cand := range cands {
			if strings.Contains(lower, cand) {
				return h
			}
		}
	}

	return ""
}
