// Package compliance scores invoices against the GST compliance checklist.
package compliance

import (
	"regexp"
	"strings"
)

// gstPattern is the canonical 15-character GST registration format:
// 2-digit state code, 5-letter PAN prefix, 4-digit PAN number, PAN check
// letter, entity code, literal 'Z', checksum character.
var (
	gstPattern       = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z]{1}[1-9A-Z]{1}[Z]{1}[0-9A-Z]{1}$`)
	gstSearchPattern = regexp.MustCompile(`[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z]{1}[1-9A-Z]{1}[Z]{1}[0-9A-Z]{1}`)
	nonAlphanumeric  = regexp.MustCompile(`[^0-9A-Z]`)
)

// ValidateGSTFormat reports whether the string is a canonical GST number.
// Any input whose length differs from 15 fails regardless of content.
func ValidateGSTFormat(gst string) bool {
	if len(gst) != 15 {
		return false
	}
	return gstPattern.MatchString(gst)
}

// CleanGSTNumber uppercases the input, strips separators and OCR noise, and
// extracts the first embedded canonical GST number. Returns "" when no
// valid candidate is present.
func CleanGSTNumber(raw string) string {
	cleaned := nonAlphanumeric.ReplaceAllString(strings.ToUpper(strings.TrimSpace(raw)), "")
	if ValidateGSTFormat(cleaned) {
		return cleaned
	}
	return gstSearchPattern.FindString(cleaned)
}
