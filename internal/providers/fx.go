package providers

import (
	"go.uber.org/fx"

	"github.com/fintelhq/fintel/internal/providers/classifier"
	"github.com/fintelhq/fintel/internal/providers/gstlookup"
	"github.com/fintelhq/fintel/internal/providers/hsnlookup"
	"github.com/fintelhq/fintel/internal/providers/ocr"
)

var Module = fx.Module("providers",
	ocr.Module,
	gstlookup.Module,
	hsnlookup.Module,
	classifier.Module,
)
