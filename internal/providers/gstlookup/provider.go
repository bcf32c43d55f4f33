// Package gstlookup integrates the external GST registry.
package gstlookup

import (
	"context"
	"regexp"
	"strings"
)

// Result is the registry's verdict for one GST number. A Success=false
// result from a reachable registry means the registration is invalid or
// not found, which is an anomaly outcome rather than an error.
type Result struct {
	Success   bool
	IsActive  bool
	LegalName string
	TradeName string
}

// Client is the GST verification oracle boundary.
type Client interface {
	Verify(ctx context.Context, gstNumber string) (*Result, error)
}

// StaticClient serves canned results, for tests and offline runs.
type StaticClient struct {
	Results map[string]Result
}

func (c *StaticClient) Verify(ctx context.Context, gstNumber string) (*Result, error) {
	if result, ok := c.Results[gstNumber]; ok {
		return &result, nil
	}
	return &Result{Success: false}, nil
}

var nonAlphanumeric = regexp.MustCompile(`[^0-9A-Z]`)

// MatchesVendorName reports whether the extracted vendor name plausibly
// refers to the registered entity. Registry names carry legal suffixes the
// invoice usually omits, so matching is normalized containment either way.
func MatchesVendorName(result *Result, vendorName string) bool {
	if result == nil || vendorName == "" {
		return false
	}
	extracted := normalizeName(vendorName)
	if extracted == "" {
		return false
	}
	for _, registered := range []string{result.LegalName, result.TradeName} {
		name := normalizeName(registered)
		if name == "" {
			continue
		}
		if strings.Contains(name, extracted) || strings.Contains(extracted, name) {
			return true
		}
	}
	return false
}

func normalizeName(name string) string {
	return nonAlphanumeric.ReplaceAllString(strings.ToUpper(name), "")
}
