// Package extraction enriches OCR output with locally scanned fields and
// builds the classifier feature vector.
package extraction

import (
	"regexp"
	"strings"
)

const (
	maxRawTextLen = 1000
	maxCodes      = 20
)

var (
	hsnCodePattern  = regexp.MustCompile(`\b(\d{8}|\d{6}|\d{4})\b`)
	quantityPattern = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(pcs|nos|qty|units?|pieces)\b`)
	itemLinePattern = regexp.MustCompile(`(?m)^\s*([A-Za-z][A-Za-z0-9 .,/&()-]{3,60}?)\s{2,}[\d,]+(?:\.\d+)?\s*$`)
	yearPattern     = regexp.MustCompile(`^(19|20)\d{2}$`)
)

// Enrichment holds fields recovered by scanning the raw OCR text, used when
// the structured extraction missed or dropped them.
type Enrichment struct {
	HSNCodes         []string
	ItemDescriptions []string
	Quantities       []string
}

// Enrich scans raw OCR text for HSN/SAC codes, item description lines and
// quantity expressions.
func Enrich(rawText string) Enrichment {
	return Enrichment{
		HSNCodes:         scanHSNCodes(rawText),
		ItemDescriptions: scanItemDescriptions(rawText),
		Quantities:       scanQuantities(rawText),
	}
}

// TruncateRawText bounds the stored raw text snapshot.
func TruncateRawText(rawText string) string {
	if len(rawText) <= maxRawTextLen {
		return rawText
	}
	return rawText[:maxRawTextLen]
}

// scanHSNCodes keeps 4, 6 and 8 digit tokens in order of appearance,
// deduplicated. Four-digit tokens that look like calendar years are noise
// from date lines and are skipped.
func scanHSNCodes(rawText string) []string {
	seen := make(map[string]struct{})
	var codes []string
	for _, match := range hsnCodePattern.FindAllString(rawText, -1) {
		if yearPattern.MatchString(match) {
			continue
		}
		if _, ok := seen[match]; ok {
			continue
		}
		seen[match] = struct{}{}
		codes = append(codes, match)
		if len(codes) == maxCodes {
			break
		}
	}
	return codes
}

func scanItemDescriptions(rawText string) []string {
	var descriptions []string
	for _, match := range itemLinePattern.FindAllStringSubmatch(rawText, -1) {
		description := strings.TrimSpace(match[1])
		if description == "" {
			continue
		}
		descriptions = append(descriptions, description)
		if len(descriptions) == maxCodes {
			break
		}
	}
	return descriptions
}

func scanQuantities(rawText string) []string {
	var quantities []string
	for _, match := range quantityPattern.FindAllStringSubmatch(rawText, -1) {
		quantities = append(quantities, match[1]+" "+strings.ToLower(match[2]))
		if len(quantities) == maxCodes {
			break
		}
	}
	return quantities
}
