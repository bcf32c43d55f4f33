package anomaly

import (
	"go.uber.org/fx"

	"github.com/fintelhq/fintel/internal/anomaly/detector"
	"github.com/fintelhq/fintel/internal/anomaly/repository"
)

var Module = fx.Module("anomaly",
	fx.Provide(repository.Provide),
	fx.Provide(detector.New),
)
