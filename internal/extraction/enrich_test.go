package extraction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnrichScansHSNCodes(t *testing.T) {
	raw := "Invoice dated 15/03/2024\nHSN 8517 Mobile phone\nHSN 84713000 Laptop\nSAC 998313 Consulting\nHSN 8517 repeated"

	enrichment := Enrich(raw)

	assert.Equal(t, []string{"8517", "84713000", "998313"}, enrichment.HSNCodes)
}

func TestEnrichSkipsYearLikeTokens(t *testing.T) {
	raw := "FY 2024 invoice 1998 period\ncode 8471"

	enrichment := Enrich(raw)

	assert.Equal(t, []string{"8471"}, enrichment.HSNCodes)
}

func TestEnrichScansQuantities(t *testing.T) {
	raw := "Widgets 10 pcs\nGadgets 2.5 units\nBolts 100 NOS"

	enrichment := Enrich(raw)

	assert.Equal(t, []string{"10 pcs", "2.5 units", "100 nos"}, enrichment.Quantities)
}

func TestEnrichScansItemLines(t *testing.T) {
	raw := "Steel brackets heavy duty    1,250.00\nTotal    5000\nx  9\n"

	enrichment := Enrich(raw)

	assert.Contains(t, enrichment.ItemDescriptions, "Steel brackets heavy duty")
}

func TestEnrichEmptyText(t *testing.T) {
	enrichment := Enrich("")

	assert.Empty(t, enrichment.HSNCodes)
	assert.Empty(t, enrichment.ItemDescriptions)
	assert.Empty(t, enrichment.Quantities)
}

func TestTruncateRawText(t *testing.T) {
	short := "short text"
	assert.Equal(t, short, TruncateRawText(short))

	long := strings.Repeat("a", 5000)
	assert.Len(t, TruncateRawText(long), 1000)
}
