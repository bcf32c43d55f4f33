package hsnlookup

import (
	"go.uber.org/fx"

	"github.com/fintelhq/fintel/internal/config"
)

// Provide picks the HTTP client when an API key is configured.
func Provide(cfg config.Config) Client {
	if cfg.HSNLookup.APIKey == "" {
		return &StaticClient{}
	}
	return NewHTTP(cfg.HSNLookup)
}

var Module = fx.Module("providers.hsnlookup", fx.Provide(Provide))
