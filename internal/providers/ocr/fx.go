package ocr

import (
	"go.uber.org/fx"

	"github.com/fintelhq/fintel/internal/config"
)

// Provide picks the HTTP extractor when an endpoint is configured.
func Provide(cfg config.Config) Extractor {
	if cfg.OCR.Endpoint == "" {
		return NoOpExtractor{}
	}
	return NewHTTP(cfg.OCR)
}

var Module = fx.Module("providers.ocr", fx.Provide(Provide))
