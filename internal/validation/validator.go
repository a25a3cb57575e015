package validation

import (
	"regexp"
	"strings"

	"github.com/lead-import-api/internal/models"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

var nonDigits = regexp.MustCompile(`\D`)

// minPhoneDigits is the minimum digit count for a usable phone number.
const minPhoneDigits = 7

// ValidateRow classifies a raw row under the given mapping. Rules apply
// in order and short-circuit at the first failure, so a row failing
// multiple rules reports only the first reason:
//
//  1. primaryName must resolve to a non-empty value
//  2. a mapped, non-empty email must have a local@domain shape
//  3. a mapped, non-empty phone must contain at least 7 digits
func ValidateRow(raw map[string]string, mapping models.Mapping) (models.RowState, []string) {
	name := strings.TrimSpace(mapping.Resolve(models.FieldPrimaryName, raw))
	if name == "" {
		return models.RowStateInvalid, []string{models.ReasonMissingName}
	}

	if mapping.Email != "" {
		email := strings.TrimSpace(mapping.Resolve(models.FieldEmail, raw))
		if email != "" && !emailRegex.MatchString(email) {
			return models.RowStateInvalid, []string{models.ReasonInvalidEmail}
		}
	}

	if mapping.Phone != "" {
		phone := strings.TrimSpace(mapping.Resolve(models.FieldPhone, raw))
		if phone != "" && len(NormalizePhone(phone)) < minPhoneDigits {
			return models.RowStateInvalid, []string{models.ReasonInvalidPhone}
		}
	}

	return models.RowStateValid, nil
}

// NormalizePhone strips every non-digit character. Phone identity for
// deduplication is digits-only.
func NormalizePhone(phone string) string {
	return nonDigits.ReplaceAllString(phone, "")
}

// NormalizeEmail lowercases and trims an email. Email identity for
// deduplication is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
