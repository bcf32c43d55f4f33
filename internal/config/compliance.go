package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// HSNReferenceEntry describes one code in the regulatory HSN/SAC table.
type HSNReferenceEntry struct {
	Description string  `mapstructure:"description"`
	GSTRate     float64 `mapstructure:"gstRate"`
}

// ComplianceConfig holds the reference data the scorer evaluates against.
type ComplianceConfig struct {
	// HSNReference maps HSN/SAC code prefixes to their regulatory rate.
	HSNReference map[string]HSNReferenceEntry `mapstructure:"hsnReference"`

	// MarketAverageAmount is the baseline for the price-outlier check.
	MarketAverageAmount float64 `mapstructure:"marketAverageAmount"`

	// PriceOutlierPercent is the relative deviation beyond which an item
	// is flagged as a price outlier.
	PriceOutlierPercent float64 `mapstructure:"priceOutlierPercent"`
}

// DefaultComplianceConfig returns the built-in reference table used when no
// compliance.yml is mounted.
func DefaultComplianceConfig() ComplianceConfig {
	return ComplianceConfig{
		HSNReference: map[string]HSNReferenceEntry{
			"8517": {Description: "Telephone sets, mobile phones", GSTRate: 12.0},
			"8471": {Description: "Computers and computer peripherals", GSTRate: 18.0},
			"9403": {Description: "Office furniture", GSTRate: 12.0},
			"7326": {Description: "Articles of iron or steel", GSTRate: 18.0},
			"3926": {Description: "Articles of plastics", GSTRate: 18.0},
			"8443": {Description: "Printing machinery", GSTRate: 18.0},
			"4901": {Description: "Printed books, brochures", GSTRate: 12.0},
			"9983": {Description: "Professional services", GSTRate: 18.0},
		},
		MarketAverageAmount: 25000,
		PriceOutlierPercent: 50,
	}
}

// ComplianceConfigHolder exposes the current compliance reference data and
// hot-reloads it when the backing file changes.
type ComplianceConfigHolder struct {
	current atomic.Value // holds ComplianceConfig
}

// NewComplianceConfigHolder loads compliance.yml and watches it for changes.
func NewComplianceConfigHolder() (*ComplianceConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("compliance")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/fintel/config")
	v.AddConfigPath("/etc/fintel")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultComplianceConfig()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		v.SetDefault("compliance.hsnReference", defaults.HSNReference)
		v.SetDefault("compliance.marketAverageAmount", defaults.MarketAverageAmount)
		v.SetDefault("compliance.priceOutlierPercent", defaults.PriceOutlierPercent)
	}

	var cfg ComplianceConfig
	if err := v.UnmarshalKey("compliance", &cfg); err != nil {
		return nil, err
	}
	applyComplianceDefaults(&cfg, defaults)
	if err := validateComplianceConfig(cfg); err != nil {
		return nil, err
	}

	holder := &ComplianceConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ComplianceConfig
		if err := v.UnmarshalKey("compliance", &updated); err != nil {
			log.Printf("[compliance-config] reload failed: %v", err)
			return
		}
		applyComplianceDefaults(&updated, defaults)
		if err := validateComplianceConfig(updated); err != nil {
			log.Printf("[compliance-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[compliance-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// Get returns the current compliance reference data.
func (h *ComplianceConfigHolder) Get() ComplianceConfig {
	return h.current.Load().(ComplianceConfig)
}

// NewStaticComplianceConfigHolder wraps a fixed config, for tests.
func NewStaticComplianceConfigHolder(cfg ComplianceConfig) *ComplianceConfigHolder {
	holder := &ComplianceConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func applyComplianceDefaults(cfg *ComplianceConfig, defaults ComplianceConfig) {
	if len(cfg.HSNReference) == 0 {
		cfg.HSNReference = defaults.HSNReference
	}
	if cfg.MarketAverageAmount <= 0 {
		cfg.MarketAverageAmount = defaults.MarketAverageAmount
	}
	if cfg.PriceOutlierPercent <= 0 {
		cfg.PriceOutlierPercent = defaults.PriceOutlierPercent
	}
}

func validateComplianceConfig(cfg ComplianceConfig) error {
	if len(cfg.HSNReference) == 0 {
		return errors.New("compliance.hsnReference cannot be empty")
	}
	if cfg.MarketAverageAmount <= 0 {
		return errors.New("compliance.marketAverageAmount must be positive")
	}
	return nil
}
