package errors

import (
	"strings"
	"unicode"
)

// maxNameLength bounds character names and node ids accepted from users and
// from request paths.
const maxNameLength = 256

// ValidateName validates a character name or node id before it is embedded
// in a request path.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 256 characters
func ValidateName(name string) error {
	if err := validateText(name); err != nil {
		return err
	}
	for _, pattern := range []string{"..", "/", "\\"} {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidInput, "name contains invalid characters: %q", pattern)
		}
	}
	return nil
}

// validateText applies the rules every user-supplied name must pass.
func validateText(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidInput, "name cannot be empty")
	}
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidInput, "name too long (max %d characters)", maxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "name contains invalid control characters")
		}
	}
	return nil
}

// ValidatePathQuery checks a shortest-path query before any network call.
// Identical endpoints are an InvalidPathQuery; comparison ignores
// surrounding whitespace. Names travel in a request body, so path
// separators are allowed.
func ValidatePathQuery(start, end string) error {
	if err := validateText(start); err != nil {
		return Wrap(ErrCodeInvalidPathQuery, err, "invalid start")
	}
	if err := validateText(end); err != nil {
		return Wrap(ErrCodeInvalidPathQuery, err, "invalid end")
	}
	if strings.TrimSpace(start) == strings.TrimSpace(end) {
		return New(ErrCodeInvalidPathQuery, "start and end are both %q", strings.TrimSpace(start))
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidConfig, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidConfig, "URL must use http or https scheme")
	}

	return nil
}
