package config

import "go.uber.org/fx"

// Module wires application and compliance configuration.
var Module = fx.Module("config",
	fx.Provide(
		Load,
		NewComplianceConfigHolder,
	),
)
