package processing

import (
	"go.uber.org/fx"

	"github.com/fintelhq/fintel/internal/compliance"
)

var Module = fx.Module("processing",
	fx.Provide(compliance.NewScorer),
	fx.Provide(NewService),
)
