package classifier

import (
	"go.uber.org/fx"

	"github.com/fintelhq/fintel/internal/config"
)

// Provide picks the HTTP predictor when an endpoint is configured.
func Provide(cfg config.Config) Predictor {
	if cfg.Classifier.Endpoint == "" {
		return NoOpPredictor{}
	}
	return NewHTTP(cfg.Classifier)
}

var Module = fx.Module("providers.classifier", fx.Provide(Provide))
