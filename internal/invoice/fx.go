package invoice

import (
	"go.uber.org/fx"

	"github.com/fintelhq/fintel/internal/invoice/repository"
)

var Module = fx.Module("invoice",
	fx.Provide(repository.Provide),
)
