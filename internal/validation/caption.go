// Package validation normalizes and checks user-supplied caption and profile fields.
package validation

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"captionboard/internal/models"

	"github.com/microcosm-cc/bluemonday"
)

// Field limits, in runes.
const (
	MaxCaptionRunes   = 500
	MaxAuthorRunes    = 100
	MaxStudentIDRunes = 32
)

var strict = bluemonday.StrictPolicy()

// StripHTML removes every tag from s and returns plain text.
func StripHTML(s string) string {
	return html.UnescapeString(strict.Sanitize(s))
}

func requiredText(field, s string, max int) (string, error) {
	s = strings.TrimSpace(StripHTML(s))
	if s == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	if utf8.RuneCountInString(s) > max {
		return "", fmt.Errorf("%s must be at most %d characters", field, max)
	}
	return s, nil
}

// CaptionText returns the cleaned caption body.
func CaptionText(s string) (string, error) {
	return requiredText("caption text", s, MaxCaptionRunes)
}

// AuthorName returns the cleaned display name. Profiles reuse it for full_name.
func AuthorName(s string) (string, error) {
	return requiredText("author name", s, MaxAuthorRunes)
}

// Department parses s into one of the fixed department codes.
func Department(s string) (models.Department, error) {
	d, ok := models.ParseDepartment(s)
	if !ok {
		return "", fmt.Errorf("department %q is not one of IT, CSE, EC, EEE, ME, EP, PT", strings.TrimSpace(s))
	}
	return d, nil
}

// Year checks a year of study. Zero means the field was not supplied.
func Year(y int) error {
	if y == 0 {
		return nil
	}
	if y < models.MinYear || y > models.MaxYear {
		return fmt.Errorf("year must be between %d and %d", models.MinYear, models.MaxYear)
	}
	return nil
}

// StudentID returns the cleaned optional student identifier.
func StudentID(s string) (string, error) {
	s = strings.TrimSpace(StripHTML(s))
	if utf8.RuneCountInString(s) > MaxStudentIDRunes {
		return "", fmt.Errorf("student id must be at most %d characters", MaxStudentIDRunes)
	}
	return s, nil
}
