package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateZoneID validates a zone identifier for safety and correctness.
//
// The validation rules are intentionally conservative:
//   - No empty identifiers
//   - No control characters
//   - Maximum length of 128 characters
//   - Letters, digits, underscores, hyphens and dots only
func ValidateZoneID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidZone, "zone id cannot be empty")
	}

	if len(id) > 128 {
		return New(ErrCodeInvalidZone, "zone id too long (max 128 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidZone, "zone id contains invalid control characters")
		}
	}

	if !zoneIDRegex.MatchString(id) {
		return New(ErrCodeInvalidZone, "invalid zone id: %q", id)
	}

	return nil
}

// zoneIDRegex matches valid zone identifiers.
var zoneIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// hexColorRegex matches 3- or 6-digit hex colors with a leading #.
var hexColorRegex = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ValidateHexColor validates a literal hex color value.
// Named color tokens (primary, secondary, accent, text) are resolved
// elsewhere; this only checks literal values.
func ValidateHexColor(c string) error {
	if c == "" {
		return New(ErrCodeInvalidStyle, "color cannot be empty")
	}
	if !hexColorRegex.MatchString(c) {
		return New(ErrCodeInvalidStyle, "invalid hex color: %q", c)
	}
	return nil
}

// ValidateTemplatePath validates a template file path for safety.
// It prevents path traversal and ensures reasonable path length.
func ValidateTemplatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidInput, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
