package repository

import "go.uber.org/fx"

// Module provides the RawRepository.
var Module = fx.Options(
	fx.Provide(NewRawRepository),
)
