package hsnlookup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	invoicedomain "github.com/fintelhq/fintel/internal/invoice/domain"
)

func TestDetectCodeType(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"8517", CodeTypeHSN},
		{"851712", CodeTypeHSN},
		{"85171290", CodeTypeHSN},
		{"998313", CodeTypeSAC},
		{"990000", CodeTypeSAC},
		{"99", ""},
		{"85171", ""},
		{"8517A", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectCodeType(tt.code), "code %q", tt.code)
	}
}

func TestStaticClientVerifyCode(t *testing.T) {
	client := &StaticClient{Rates: map[string]float64{"8517": 12}}

	verification, err := client.VerifyCode(context.Background(), "8517")
	require.NoError(t, err)
	assert.True(t, verification.IsValid)
	assert.Equal(t, 12.0, verification.GSTRate)
	assert.Equal(t, CodeTypeHSN, verification.CodeType)

	verification, err = client.VerifyCode(context.Background(), "9999")
	require.NoError(t, err)
	assert.False(t, verification.IsValid)
}

func TestVerifyLineItemsFlagsRateDisagreement(t *testing.T) {
	client := &StaticClient{Rates: map[string]float64{"8517": 12, "8471": 18}}
	items := []invoicedomain.LineItem{
		{Description: "Mobile phone", HSNCode: "8517"},
		{Description: "Laptop", HSNCode: "8471"},
		{Description: "Unlisted", HSNCode: "9999"},
		{Description: "No code"},
	}

	result, err := client.VerifyLineItems(context.Background(), items, 18)

	require.NoError(t, err)
	assert.Equal(t, 3, result.ItemsChecked)
	require.Len(t, result.RateMismatches, 1)
	mismatch := result.RateMismatches[0]
	assert.Equal(t, "Mobile phone", mismatch.ItemName)
	assert.Equal(t, "8517", mismatch.HSNCode)
	assert.Equal(t, 12.0, mismatch.ActualRate)
	assert.Equal(t, 18.0, mismatch.ExtractedRate)
}

func TestVerifyLineItemsToleratesSmallDelta(t *testing.T) {
	client := &StaticClient{Rates: map[string]float64{"8471": 18}}
	items := []invoicedomain.LineItem{{Description: "Laptop", HSNCode: "8471"}}

	result, err := client.VerifyLineItems(context.Background(), items, 18.25)

	require.NoError(t, err)
	assert.Empty(t, result.RateMismatches)
}

func TestVerifyLineItemsSkipsWithoutExtractedRate(t *testing.T) {
	client := &StaticClient{Rates: map[string]float64{"8471": 18}}
	items := []invoicedomain.LineItem{{Description: "Laptop", HSNCode: "8471"}}

	result, err := client.VerifyLineItems(context.Background(), items, 0)

	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsChecked)
	assert.Empty(t, result.RateMismatches)
}
