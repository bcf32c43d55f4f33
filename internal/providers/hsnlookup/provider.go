// Package hsnlookup integrates the external HSN/SAC tax rate registry.
package hsnlookup

import (
	"context"
	"regexp"
	"strings"

	invoicedomain "github.com/fintelhq/fintel/internal/invoice/domain"
)

// Code types.
const (
	CodeTypeHSN = "HSN"
	CodeTypeSAC = "SAC"
)

// rateMismatchTolerance is the rate delta, in percentage points, below
// which an extracted rate is considered to agree with the registry.
const rateMismatchTolerance = 0.5

var digitsOnly = regexp.MustCompile(`^\d+$`)

// DetectCodeType classifies a code as HSN (goods) or SAC (services).
// Six-digit codes starting with 99 are services; 4, 6 and 8 digit codes
// are goods. Anything else is not a valid code.
func DetectCodeType(code string) string {
	code = strings.TrimSpace(code)
	if !digitsOnly.MatchString(code) {
		return ""
	}
	if len(code) == 6 && strings.HasPrefix(code, "99") {
		return CodeTypeSAC
	}
	switch len(code) {
	case 4, 6, 8:
		return CodeTypeHSN
	default:
		return ""
	}
}

// Client is the HSN/SAC verification oracle boundary.
type Client interface {
	// VerifyCode checks a single code against the registry.
	VerifyCode(ctx context.Context, code string) (*invoicedomain.HSNVerification, error)

	// VerifyLineItems checks each line item's code and compares the
	// registry rate to the rate extracted from the document.
	VerifyLineItems(ctx context.Context, items []invoicedomain.LineItem, extractedRate float64) (*invoicedomain.LineItemVerification, error)
}

// StaticClient serves canned verifications, for tests and offline runs.
type StaticClient struct {
	Rates map[string]float64
}

func (c *StaticClient) VerifyCode(ctx context.Context, code string) (*invoicedomain.HSNVerification, error) {
	codeType := DetectCodeType(code)
	if codeType == "" {
		return &invoicedomain.HSNVerification{Code: code, IsValid: false}, nil
	}
	rate, ok := c.Rates[code]
	return &invoicedomain.HSNVerification{
		Code:     code,
		CodeType: codeType,
		IsValid:  ok,
		GSTRate:  rate,
	}, nil
}

func (c *StaticClient) VerifyLineItems(ctx context.Context, items []invoicedomain.LineItem, extractedRate float64) (*invoicedomain.LineItemVerification, error) {
	return verifyLineItems(ctx, c, items, extractedRate)
}

// verifyLineItems is shared by every client implementation: resolve each
// item's code, then flag rates disagreeing with the registry.
func verifyLineItems(ctx context.Context, client Client, items []invoicedomain.LineItem, extractedRate float64) (*invoicedomain.LineItemVerification, error) {
	result := &invoicedomain.LineItemVerification{}
	for _, item := range items {
		if item.HSNCode == "" {
			continue
		}
		verification, err := client.VerifyCode(ctx, item.HSNCode)
		if err != nil {
			return nil, err
		}
		result.ItemsChecked++
		if !verification.IsValid || verification.Skipped || extractedRate <= 0 {
			continue
		}
		delta := verification.GSTRate - extractedRate
		if delta < 0 {
			delta = -delta
		}
		if delta >= rateMismatchTolerance {
			result.RateMismatches = append(result.RateMismatches, invoicedomain.RateMismatch{
				ItemName:      item.Description,
				HSNCode:       item.HSNCode,
				ActualRate:    verification.GSTRate,
				ExtractedRate: extractedRate,
			})
		}
	}
	return result, nil
}
