package service

import "go.uber.org/fx"

var Module = fx.Module("allocation.service",
	fx.Provide(NewResourceLocker),
	fx.Provide(NewService),
)
