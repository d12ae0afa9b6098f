// Package validation provides input validation utilities
package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minPasswordLength = 6
	minNameLength     = 2
	minTitleLength    = 3
	maxTitleLength    = 100
	minContentLength  = 10
)

var (
	ErrInvalidEmail    = errors.New("Please provide a valid email address")
	ErrInvalidPassword = errors.New("Password must be at least 6 characters long")
	ErrInvalidName     = errors.New("Name must be at least 2 characters long")
)

var (
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// scriptBlockRegex matches a <script ...>...</script> block, case-insensitively
	// and across newlines, stopping at the first closing tag.
	scriptBlockRegex = regexp.MustCompile(`(?is)<script\b.*?</script>`)
)

// ValidateEmail checks the basic local@domain.tld shape. No DNS lookup is made.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword requires a non-empty password of at least six characters.
func ValidatePassword(password string) error {
	if password == "" || utf8.RuneCountInString(password) < minPasswordLength {
		return ErrInvalidPassword
	}
	return nil
}

// ValidateName requires at least two characters once surrounding whitespace is removed.
func ValidateName(name string) error {
	if utf8.RuneCountInString(strings.TrimSpace(name)) < minNameLength {
		return ErrInvalidName
	}
	return nil
}

// PostValidation is the outcome of ValidateBlogPost. Errors is keyed by field name.
type PostValidation struct {
	IsValid bool
	Errors  map[string]string
}

// ValidateBlogPost checks title and content independently, so both fields
// may be reported at once.
func ValidateBlogPost(title, content string) PostValidation {
	errs := make(map[string]string)

	titleLen := utf8.RuneCountInString(strings.TrimSpace(title))
	switch {
	case titleLen < minTitleLength:
		errs["title"] = "Title must be at least 3 characters long"
	case titleLen > maxTitleLength:
		errs["title"] = "Title must not exceed 100 characters"
	}

	if utf8.RuneCountInString(strings.TrimSpace(content)) < minContentLength {
		errs["content"] = "Content must be at least 10 characters long"
	}

	return PostValidation{
		IsValid: len(errs) == 0,
		Errors:  errs,
	}
}

// SanitizeInput trims s and strips <script> blocks. Removal repeats until
// nothing matches, so a block split around another one cannot reassemble.
//
// This is a denylist for one tag, not an HTML sanitizer: event-handler
// attributes, javascript: URLs and other markup pass through untouched.
// Output must still be escaped when rendered.
func SanitizeInput(s string) string {
	out := strings.TrimSpace(s)
	for scriptBlockRegex.MatchString(out) {
		out = strings.TrimSpace(scriptBlockRegex.ReplaceAllString(out, ""))
	}
	return out
}
