package ingest

import (
	"regexp"
)

// maxLabelLength bounds the sanitized label used in blob filenames.
const maxLabelLength = 50

// placeholderLabel substitutes for an empty or absent label.
const placeholderLabel = "no_prompt"

var unsafeLabelChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// SanitizeLabel makes a free-text label safe for use as a filename stem:
// every character outside [a-zA-Z0-9-_.] becomes an underscore and the
// result is truncated to 50 characters. Empty input yields a placeholder.
func SanitizeLabel(label string) string {
	if label == "" {
		return placeholderLabel
	}

	sanitized := unsafeLabelChars.ReplaceAllString(label, "_")
	if len(sanitized) > maxLabelLength {
		sanitized = sanitized[:maxLabelLength]
	}
	return sanitized
}
