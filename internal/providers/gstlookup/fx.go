package gstlookup

import (
	"go.uber.org/fx"

	"github.com/fintelhq/fintel/internal/config"
)

// Provide picks the HTTP client when an API key is configured.
func Provide(cfg config.Config) Client {
	if cfg.GSTLookup.APIKey == "" {
		return &StaticClient{}
	}
	return NewHTTP(cfg.GSTLookup)
}

var Module = fx.Module("providers.gstlookup", fx.Provide(Provide))
