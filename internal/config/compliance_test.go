package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultComplianceConfig(t *testing.T) {
	cfg := DefaultComplianceConfig()

	require.NotEmpty(t, cfg.HSNReference)
	assert.Equal(t, 12.0, cfg.HSNReference["8517"].GSTRate)
	assert.Equal(t, 18.0, cfg.HSNReference["8471"].GSTRate)
	assert.Equal(t, 25000.0, cfg.MarketAverageAmount)
	assert.Equal(t, 50.0, cfg.PriceOutlierPercent)
	require.NoError(t, validateComplianceConfig(cfg))
}

func TestStaticHolderServesFixedConfig(t *testing.T) {
	cfg := DefaultComplianceConfig()
	cfg.MarketAverageAmount = 12345

	holder := NewStaticComplianceConfigHolder(cfg)

	assert.Equal(t, 12345.0, holder.Get().MarketAverageAmount)
}

func TestApplyComplianceDefaultsFillsGaps(t *testing.T) {
	defaults := DefaultComplianceConfig()
	var cfg ComplianceConfig

	applyComplianceDefaults(&cfg, defaults)

	assert.Equal(t, defaults.MarketAverageAmount, cfg.MarketAverageAmount)
	assert.Equal(t, defaults.PriceOutlierPercent, cfg.PriceOutlierPercent)
	assert.Len(t, cfg.HSNReference, len(defaults.HSNReference))
}

func TestValidateComplianceConfigRejectsEmptyTable(t *testing.T) {
	cfg := DefaultComplianceConfig()
	cfg.HSNReference = nil

	assert.Error(t, validateComplianceConfig(cfg))
}
