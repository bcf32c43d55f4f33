package vendors

import (
	"go.uber.org/fx"

	"github.com/fintelhq/fintel/internal/vendors/repository"
)

var Module = fx.Module("vendor",
	fx.Provide(repository.Provide),
)
